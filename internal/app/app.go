// Package app implements the jobradar CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "embed":
		return runEmbed(args[1:])
	case "dedup":
		return runDedup(args[1:])
	case "search":
		return runSearch(args[1:])
	case "feedback":
		return runFeedback(args[1:])
	case "train":
		return runTrain(args[1:])
	case "stats":
		return runStats(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "jobradar CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  jobradar <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest    Validate and ingest posting payload JSON")
	fmt.Fprintln(os.Stderr, "  embed     Backfill embeddings for postings without one")
	fmt.Fprintln(os.Stderr, "  dedup     Reconcile recent postings against the match tiers")
	fmt.Fprintln(os.Stderr, "  search    Run a ranked search query")
	fmt.Fprintln(os.Stderr, "  feedback  Record a search interaction event")
	fmt.Fprintln(os.Stderr, "  train     Train the ranking model from interaction logs")
	fmt.Fprintln(os.Stderr, "  stats     Show corpus counters")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"jobradar <command> -h\" for command-specific flags.")
}
