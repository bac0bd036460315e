package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fd0/affiliations/config"
	"github.com/fd0/affiliations/internal/pdftest"
	"github.com/fd0/affiliations/metadata"
	"github.com/fd0/affiliations/table"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/pflag"
)

func TestParseOptions(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)

	opts, err := parseOptions("affiliations", []string{"-vv", "-l", "run.log", "--extractor", "pdftotext", "md.json", "archive", "out.tsv"}, buf)
	if err != nil {
		t.Fatal(err)
	}

	want := options{
		LogFile:      "run.log",
		Verbosity:    2,
		Extractor:    "pdftotext",
		Validate:     true,
		MetadataFile: "md.json",
		ArchiveDir:   "archive",
		Output:       "out.tsv",
	}

	if opts != want {
		t.Errorf("wrong options\nwant %+v\n got %+v", want, opts)
	}
}

func TestParseOptionsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		err  error
	}{
		{[]string{"md.json", "archive"}, errUsage},
		{[]string{"md.json", "archive", "out.tsv", "extra"}, errUsage},
		{[]string{"-h"}, pflag.ErrHelp},
	}

	for _, test := range tests {
		test := test

		t.Run("", func(t *testing.T) {
			t.Parallel()

			buf := bytes.NewBuffer(nil)

			_, err := parseOptions("affiliations", test.args, buf)
			if !errors.Is(err, test.err) {
				t.Errorf("wrong error, want %v, got %v", test.err, err)
			}

			if !bytes.Contains(buf.Bytes(), []byte("usage: affiliations")) {
				t.Errorf("usage not printed, output: %q", buf.String())
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "run.log")
	stderr := bytes.NewBuffer(nil)

	logger, closeLog, err := setupLogger(stderr, logFile, 0)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("not shown")
	logger.WithField("paper_id", "P1").Warn("P1 has no PDF")

	err = closeLog()
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(logFile)
	if err != nil {
		t.Fatal(err)
	}

	defer f.Close()

	var records []map[string]interface{}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]interface{}

		err = json.Unmarshal(sc.Bytes(), &rec)
		if err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}

		records = append(records, rec)
	}

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d: %v", len(records), records)
	}

	if records[0]["level"] != "warning" || records[0]["paper_id"] != "P1" || records[0]["message"] != "P1 has no PDF" {
		t.Errorf("unexpected record %v", records[0])
	}

	if records[0]["filename"] != "main_test.go" {
		t.Errorf("wrong filename, want %q, got %v", "main_test.go", records[0]["filename"])
	}

	if line, ok := records[0]["line_number"].(float64); !ok || line <= 0 {
		t.Errorf("wrong line number %v", records[0]["line_number"])
	}

	if _, ok := records[0]["func"]; ok {
		t.Errorf("unexpected func field in %v", records[0])
	}

	if !bytes.Contains(stderr.Bytes(), []byte("P1 has no PDF")) {
		t.Errorf("message not printed to stderr: %q", stderr.String())
	}

	if bytes.Contains(stderr.Bytes(), []byte("main_test.go")) {
		t.Errorf("caller printed to stderr: %q", stderr.String())
	}
}

func writeFile(t testing.TB, filename, data string) {
	err := os.WriteFile(filename, []byte(data), 0600)
	if err != nil {
		t.Fatalf("writing %v: %v", filename, err)
	}
}

func testOptions(t testing.TB, metadataJSON string) options {
	tempdir := t.TempDir()

	archive := filepath.Join(tempdir, "archive")

	err := os.Mkdir(archive, 0700)
	if err != nil {
		t.Fatal(err)
	}

	opts := options{
		Extractor:    "native",
		MetadataFile: filepath.Join(tempdir, "metadata.json"),
		ArchiveDir:   archive,
		Output:       filepath.Join(tempdir, "affiliations.tsv"),
	}

	writeFile(t, opts.MetadataFile, metadataJSON)

	return opts
}

func TestRunMissingPDF(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(t, `{"papers": {"P1": {"title": "T", "authors": [["Alice", "Smith"], ["Bob", "Lee"]]}}}`)

	var outputs [][]byte

	for i := 0; i < 2; i++ {
		logger, hook := test.NewNullLogger()

		err = run(context.Background(), logger, cfg, opts)
		if err != nil {
			t.Fatal(err)
		}

		warnings := 0

		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel && e.Data["paper_id"] == "P1" {
				warnings++
			}
		}

		if warnings != 1 {
			t.Errorf("want one warning for P1, got %d", warnings)
		}

		buf, err := os.ReadFile(opts.Output)
		if err != nil {
			t.Fatal(err)
		}

		outputs = append(outputs, buf)
	}

	want := "paper_id\tauthor\taffiliation\nP1\tAlice Smith\t\nP1\tBob Lee\t\n"
	if string(outputs[0]) != want {
		t.Errorf("unexpected output\nwant %q\n got %q", want, outputs[0])
	}

	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Errorf("output differs between runs:\n%q\n%q", outputs[0], outputs[1])
	}
}

func TestRunAuthorAffiliation(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(t, `{"papers": {"P1": {"title": "T", "authors": ["Alice Smith", "Bob Lee"]}}}`)
	opts.Validate = true

	pdftest.Write(t, filepath.Join(opts.ArchiveDir, "P1.pdf"), pdftest.Lines(
		"Robust Speech Recognition",
		"Alice Smith - University of Alpha",
		"Bob Lee - Beta Institute",
		"Abstract",
		"We present a system.",
	))

	logger, hook := test.NewNullLogger()

	err = run(context.Background(), logger, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			t.Errorf("unexpected log entry %v: %v", e.Level, e.Message)
		}
	}

	buf, err := os.ReadFile(opts.Output)
	if err != nil {
		t.Fatal(err)
	}

	want := "paper_id\tauthor\taffiliation\n" +
		"P1\tAlice Smith\tUniversity of Alpha\n" +
		"P1\tBob Lee\tBeta Institute\n"
	if string(buf) != want {
		t.Errorf("unexpected output\nwant %q\n got %q", want, buf)
	}
}

func TestRunMalformedMetadata(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(t, `{"papers": {"P1": `)
	logger, _ := test.NewNullLogger()

	err = run(context.Background(), logger, cfg, opts)

	var ferr *metadata.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("want *metadata.FormatError, got %T: %v", err, err)
	}

	if errorStep(err) != "metadata_loading" {
		t.Errorf("wrong error step %q", errorStep(err))
	}

	_, err = os.Stat(opts.Output)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output table was created: %v", err)
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(t, `{"papers": {"P1": {"authors": ["Alice Smith"]}}}`)
	opts.Output = filepath.Join(filepath.Dir(opts.Output), "missing", "affiliations.tsv")

	logger, _ := test.NewNullLogger()

	err = run(context.Background(), logger, cfg, opts)

	var werr *table.WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("want *table.WriteError, got %T: %v", err, err)
	}

	if errorStep(err) != "table_writing" {
		t.Errorf("wrong error step %q", errorStep(err))
	}
}
