package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fd0/affiliations/config"
	"github.com/fd0/affiliations/extract"
	"github.com/fd0/affiliations/metadata"
	"github.com/fd0/affiliations/notify"
	"github.com/fd0/affiliations/process"
	"github.com/fd0/affiliations/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type options struct {
	LogFile   string
	Verbosity int
	Config    string
	Extractor string
	Validate  bool
	Notify    bool

	MetadataFile string
	ArchiveDir   string
	Output       string
}

const usage = "usage: %v [options] input_metadata_file archive_conf_dir output_table_path\n\n" +
	"Extract the affiliations of the authors listed in the metadata file from the\n" +
	"first page of their papers and write them to a tab-separated table.\n\n"

var errUsage = errors.New("usage error")

// parseOptions parses the command line args (without the program name).
func parseOptions(name string, args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.LogFile, "log_file", "l", "", "append JSON log records to `file`")
	fs.CountVarP(&opts.Verbosity, "verbosity", "v", "increase output verbosity (repeat for debug messages)")
	fs.StringVar(&opts.Config, "config", "", "read cleaning rules from `file` instead of the built-in rules")
	fs.StringVar(&opts.Extractor, "extractor", "native", "text extractor to use: native or pdftotext")
	fs.BoolVar(&opts.Validate, "validate", true, "validate each PDF before extracting text")
	fs.BoolVar(&opts.Notify, "notify", false, "send a pushover notification when done")

	fs.Usage = func() {
		fmt.Fprintf(stderr, usage, name)
		fs.PrintDefaults()
	}

	err := fs.Parse(args)
	if err != nil {
		return options{}, err
	}

	if fs.NArg() != 3 {
		fs.Usage()

		return options{}, fmt.Errorf("%w: expected 3 arguments, got %d", errUsage, fs.NArg())
	}

	opts.MetadataFile = fs.Arg(0)
	opts.ArchiveDir = fs.Arg(1)
	opts.Output = fs.Arg(2)

	return opts, nil
}

// setupRootContext creates a root context that is cancelled when SIGINT is
// received, tied to a new errgroup.Group. The returned cancel() function
// cancels the outermost context.
func setupRootContext() (wg *errgroup.Group, ctx context.Context, cancel func()) {
	// create new root context, cancel on SIGINT
	ctx, cancel = context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	// couple this context with an errgroup
	wg, ctx = errgroup.WithContext(ctx)

	return wg, ctx, cancel
}

func run(ctx context.Context, log logrus.FieldLogger, cfg config.Config, opts options) error {
	papers, err := metadata.Load(opts.MetadataFile)
	if err != nil {
		return err
	}

	log.Infof("loaded %d papers from %v", len(papers), opts.MetadataFile)

	err = table.CheckWritable(opts.Output)
	if err != nil {
		return err
	}

	fi, err := os.Stat(opts.ArchiveDir)
	if err != nil || !fi.IsDir() {
		log.Warnf("archive dir %v is not accessible, all papers will be missing", opts.ArchiveDir)
	}

	backend, err := extract.BackendByName(opts.Extractor)
	if err != nil {
		return err
	}

	extracter := extract.New(opts.ArchiveDir, backend)
	extracter.Pages = cfg.Pages
	extracter.Validate = opts.Validate
	extracter.SetLogger(log)

	matcher := cfg.Matcher()
	matcher.SetLogger(log)

	processor := process.New(extracter, matcher)
	processor.SetLogger(log)

	tab, stats, err := processor.Run(ctx, papers)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	err = tab.Save(opts.Output)
	if err != nil {
		return err
	}

	log.WithField("output", opts.Output).Infof("done: %v", stats)

	if opts.Notify {
		conference := filepath.Base(opts.ArchiveDir)
		if len(papers) > 0 {
			conference = papers[0].Conference
		}

		notify.Notify(log, conference, opts.Output, stats)
	}

	return nil
}

// errorStep names the stage a fatal error comes from.
func errorStep(err error) string {
	var (
		ferr *metadata.FormatError
		werr *table.WriteError
	)

	switch {
	case errors.As(err, &ferr):
		return "metadata_loading"
	case errors.As(err, &werr):
		return "table_writing"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}

	return "setup"
}

func main() {
	name := filepath.Base(os.Args[0])

	opts, err := parseOptions(name, os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger, closeLog, err := setupLogger(os.Stderr, opts.LogFile, opts.Verbosity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.WithField("error_step", "config").Error(err)
		_ = closeLog()
		os.Exit(1)
	}

	wg, ctx, cancel := setupRootContext()
	defer cancel()

	wg.Go(func() error {
		return run(ctx, logger, cfg, opts)
	})

	err = wg.Wait()
	if err != nil {
		logger.WithField("error_step", errorStep(err)).Error(err)
		_ = closeLog()
		os.Exit(1)
	}

	err = closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
