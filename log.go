package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

var verbosityLevels = []logrus.Level{logrus.WarnLevel, logrus.InfoLevel, logrus.DebugLevel}

// fileHook writes every log entry to w with its own formatter.
type fileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes the entry. The caller is recorded as the fields filename and
// line_number.
func (h *fileHook) Fire(entry *logrus.Entry) error {
	if entry.HasCaller() {
		e := *entry
		e.Data = make(logrus.Fields, len(entry.Data)+2)

		for k, v := range entry.Data {
			e.Data[k] = v
		}

		e.Data["filename"] = filepath.Base(entry.Caller.File)
		e.Data["line_number"] = entry.Caller.Line
		e.Caller = nil

		entry = &e
	}

	buf, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("format log entry: %w", err)
	}

	_, err = h.w.Write(buf)
	if err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}

	return nil
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
			logrus.FieldKeyTime:  "time",
		},
	}
}

// setupLogger returns a logger printing to stderr. The level is raised by
// verbosity. When logFile is set, all entries are additionally appended to
// the file as JSON objects. The returned function closes the file.
func setupLogger(stderr io.Writer, logFile string, verbosity int) (*logrus.Logger, func() error, error) {
	if verbosity < 0 {
		verbosity = 0
	}

	if verbosity >= len(verbosityLevels) {
		verbosity = len(verbosityLevels) - 1
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(verbosityLevels[verbosity])
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		CallerPrettyfier: func(*runtime.Frame) (string, string) { return "", "" },
	})

	if logFile == "" {
		return logger, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetReportCaller(true)
	logger.AddHook(&fileHook{w: f, formatter: jsonFormatter()})

	return logger, f.Close, nil
}
