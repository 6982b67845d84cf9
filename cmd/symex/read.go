package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/symex"
	"github.com/benbjohnson/symex/frontend"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadCommand represents a command for reading the expressions of a fixture.
type ReadCommand struct {
	Stdout io.Writer
}

// NewReadCommand returns a new instance of ReadCommand.
func NewReadCommand() *ReadCommand {
	return &ReadCommand{Stdout: os.Stdout}
}

// Run executes the "read" subcommand.
func (cmd *ReadCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("symex-read", flag.ContinueOnError)
	opt := registerFlags(fs)
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("fixture required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many fixtures specified")
	}

	p, logger, err := opt.load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := readAll(ctx, p, opt.propagate, cmd.Stdout); err != nil {
		return err
	}

	stats := p.State.Session().Stats()
	fmt.Fprintf(cmd.Stdout, "\n%d reads in %s, %d case splits, %d symbols minted\n",
		stats.ReadN, stats.ReadTime, stats.CaseSplitN, stats.MintN)
	return nil
}

func (cmd *ReadCommand) usage() {
	fmt.Fprintln(os.Stderr, `
Performs the reads of a fixture and prints each result.

Usage:

	symex read [arguments] FIXTURE

Arguments:

	-config PATH
	    Read session settings from a YAML file.

	-propagate
	    Propagate constants in every read.

	-v
	    Enable debug logging.
`[1:])
}

// options holds the flags shared by all subcommands.
type options struct {
	config    string
	propagate bool
	verbose   bool
}

func registerFlags(fs *flag.FlagSet) *options {
	var opt options
	fs.StringVar(&opt.config, "config", "", "config path")
	fs.BoolVar(&opt.propagate, "propagate", false, "propagate constants")
	fs.BoolVar(&opt.verbose, "v", false, "verbose")
	return &opt
}

// load builds the fixture at path with the configured session settings.
func (opt *options) load(path string) (*frontend.Program, *zap.Logger, error) {
	config := symex.DefaultConfig()
	if opt.config != "" {
		var err error
		if config, err = symex.LoadConfig(opt.config); err != nil {
			return nil, nil, err
		}
	}

	logger := zap.NewNop()
	if opt.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, errors.Wrap(err, "logger")
		}
	}

	f, err := frontend.LoadFixture(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := f.Build(config)
	if err != nil {
		return nil, nil, errors.Wrap(err, path)
	}
	p.State.Session().Logger = logger
	return p, logger, nil
}

// readAll performs every read of p and writes "src => result" lines to w.
func readAll(ctx context.Context, p *frontend.Program, propagate bool, w io.Writer) error {
	for _, decl := range p.Reads {
		if err := ctx.Err(); err != nil {
			return err
		}

		decl.Propagate = decl.Propagate || propagate
		src, result, err := p.Read(decl)
		if err != nil {
			return errors.Wrapf(err, "read %q", decl.Expr)
		}
		fmt.Fprintf(w, "%s => %s\n", src, result)
	}
	return nil
}
