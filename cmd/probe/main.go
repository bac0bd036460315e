package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fd0/affiliations/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var opts = struct {
	Config    string
	Extractor string
	Validate  bool
	ShowText  bool
	Verbose   bool
}{}

func main() {
	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	fs.StringVar(&opts.Config, "config", "", "read cleaning rules from `file`")
	fs.StringVar(&opts.Extractor, "extractor", "native", "text extractor to use: native or pdftotext")
	fs.BoolVar(&opts.Validate, "validate", false, "validate the PDF before extracting text")
	fs.BoolVar(&opts.ShowText, "show-text", false, "print the extracted text")
	fs.BoolVar(&opts.Verbose, "verbose", false, "print debug messages")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: probe [options] file.pdf author [author...]\n\n")
		fs.PrintDefaults()
	}

	err := fs.Parse(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err = probe(context.Background(), os.Stdout, logger, cfg, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
