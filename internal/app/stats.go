package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/globaltime"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	formatFlag := fs.String("format", outputFormatTable, "Output format: table or json")
	timeoutFlag := fs.Duration("timeout", 30*time.Second, "Query timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format, err := parseOutputFormat(*formatFlag, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	rt, err := initRuntime(ctx, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.close()

	now := globaltime.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := rt.pool.QueryCorpusStats(ctx, rt.cfg.EmbeddingModel, rt.cfg.EmbeddingModelVersion, dayStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if format == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"active postings", strconv.FormatInt(stats.ActivePostings, 10)},
		{"duplicate postings", strconv.FormatInt(stats.DuplicatePostings, 10)},
		{"organizations", strconv.FormatInt(stats.Organizations, 10)},
		{"locations", strconv.FormatInt(stats.Locations, 10)},
		{"embedded postings", strconv.FormatInt(stats.EmbeddedPostings, 10)},
		{"pending embedding", strconv.FormatInt(stats.PendingEmbedding, 10)},
		{"dedup events today", strconv.FormatInt(stats.DedupEventsToday, 10)},
		{"interactions today", strconv.FormatInt(stats.InteractionsToday, 10)},
		{"oldest active posting", formatStatsTime(stats.OldestFirstSeenAt)},
		{"newest active posting", formatStatsTime(stats.NewestFirstSeenAt)},
	}
	if err := writeTable([]string{"METRIC", "VALUE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func formatStatsTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}
