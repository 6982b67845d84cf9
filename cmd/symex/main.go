package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "read":
		return NewReadCommand().Run(ctx, args)
	case "dump":
		return NewDumpCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`symex %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Symex reads expressions against a symbolic execution state.

Usage:

	symex <command> [arguments]

The commands are:

	read        perform the reads of a fixture
	dump        perform the reads and print the resulting state
	help        this screen
`[1:])
}
