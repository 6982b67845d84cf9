package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// DumpCommand represents a command for printing the state left by the reads
// of a fixture.
type DumpCommand struct {
	Stdout io.Writer
}

// NewDumpCommand returns a new instance of DumpCommand.
func NewDumpCommand() *DumpCommand {
	return &DumpCommand{Stdout: os.Stdout}
}

// Run executes the "dump" subcommand.
func (cmd *DumpCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("symex-dump", flag.ContinueOnError)
	opt := registerFlags(fs)
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() != 1 {
		return fmt.Errorf("exactly one fixture required")
	}

	p, logger, err := opt.load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := readAll(ctx, p, opt.propagate, io.Discard); err != nil {
		return err
	}

	fmt.Fprintln(cmd.Stdout, "VARIABLES")
	fmt.Fprintln(cmd.Stdout, "=========")
	if err := p.State.Session().VarMap.Dump(cmd.Stdout); err != nil {
		return err
	}

	fmt.Fprint(cmd.Stdout, p.State.Dump())
	fmt.Fprintln(cmd.Stdout, "")

	config := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	fmt.Fprintln(cmd.Stdout, "STATS")
	fmt.Fprintln(cmd.Stdout, "=====")
	config.Fdump(cmd.Stdout, p.State.Session().Stats())
	return nil
}

func (cmd *DumpCommand) usage() {
	fmt.Fprintln(os.Stderr, `
Performs the reads of a fixture and prints the variable identities, the
execution state and the session statistics.

Usage:

	symex dump [arguments] FIXTURE

Arguments:

	-config PATH
	    Read session settings from a YAML file.

	-propagate
	    Propagate constants in every read.

	-v
	    Enable debug logging.
`[1:])
}
