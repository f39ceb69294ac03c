// Package cmd wires the reader into a small command-line tool for inspecting
// datasets.
package cmd

import (
	"fmt"
	"os"
)

func Execute(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "schema":
		runSchema(args[1:])
	case "cat":
		runCat(args[1:])
	case "insights":
		runInsights(args[1:])
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "FeedKit - parallel dataset reader tools")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  feedkit <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  schema     Print the inferred schema of a dataset")
	fmt.Fprintln(os.Stderr, "  cat        Read a dataset and print its examples")
	fmt.Fprintln(os.Stderr, "  insights   Compute per-column statistics")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'feedkit <command> -h' for command-specific options.")
}
