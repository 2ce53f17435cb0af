package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lbatista/fabrica/pkg/interfaces/cli/commands"
)

const usage = `Usage: fabrica <command> [flags]

Commands:
  simulate   aggregate requirements for a selection, read-only
  commit     create production and purchase orders from a selection
  serve      run the HTTP API (configured via environment)

Run 'fabrica <command> -help' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	var err error

	switch os.Args[1] {
	case "simulate":
		err = runSimulate(ctx, os.Args[2:])
	case "commit":
		err = runCommit(ctx, os.Args[2:])
	case "serve":
		err = commands.NewServeCommand().Execute(ctx)
	case "help", "-help", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	scenario := fs.String("scenario", "", "Path to scenario manifest (scenario.yaml)")
	format := fs.String("format", "text", "Output format: text, json")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	fs.Parse(args)

	cmd := commands.NewSimulateCommand(commands.Config{
		ScenarioFile: *scenario,
		Selections:   fs.Args(),
		Format:       *format,
		Verbose:      *verbose,
	})
	return cmd.Execute(ctx)
}

func runCommit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	scenario := fs.String("scenario", "", "Path to scenario manifest (scenario.yaml)")
	db := fs.String("db", "fabrica.db", "Path to the SQLite database")
	format := fs.String("format", "text", "Output format: text, json")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	fs.Parse(args)

	cmd := commands.NewCommitCommand(commands.Config{
		ScenarioFile: *scenario,
		Selections:   fs.Args(),
		Format:       *format,
		Verbose:      *verbose,
		DatabasePath: *db,
	})
	return cmd.Execute(ctx)
}
