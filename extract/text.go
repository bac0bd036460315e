package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Backend returns the text of the first pages of a PDF file.
type Backend interface {
	Text(ctx context.Context, filename string, pages int) (string, error)
}

// BackendByName returns the backend registered as name.
func BackendByName(name string) (Backend, error) {
	switch name {
	case "native", "":
		return Native{}, nil
	case "pdftotext":
		return Pdftotext{}, nil
	}

	return nil, fmt.Errorf("unknown extractor %q, want native or pdftotext", name)
}

// Pdftotext runs poppler's pdftotext.
type Pdftotext struct {
	// Command defaults to "pdftotext" from $PATH.
	Command string
}

// Text returns the text in the pdf file.
func (p Pdftotext) Text(ctx context.Context, filename string, pages int) (string, error) {
	command := p.Command
	if command == "" {
		command = "pdftotext"
	}

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)

	cmd := exec.CommandContext(ctx, command,
		"-f", "1", "-l", strconv.Itoa(pages),
		"-enc", "UTF-8",
		filename, "-")
	cmd.Stderr = stderr
	cmd.Stdout = stdout

	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("pdftotext: %w: %v", err, msg)
		}

		return "", fmt.Errorf("pdftotext: %w", err)
	}

	// pages are separated by form feeds
	return strings.ReplaceAll(stdout.String(), "\f", "\n"), nil
}
