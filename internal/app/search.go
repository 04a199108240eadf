package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/ranking"
	"jobradar.fyi/jobradar/internal/search"
)

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	queryFlag := fs.String("query", "", "Free-text query (optional)")
	locationIDFlag := fs.Int64("location-id", 0, "Filter by location id")
	seniorityFlag := fs.String("seniority", "", "Filter by seniority")
	roleFamilyFlag := fs.String("role-family", "", "Filter by role family")
	sectorFlag := fs.String("sector", "", "Filter by organization sector")
	minQualityFlag := fs.Float64("min-quality", 0, "Minimum quality score")
	limitFlag := fs.Int("limit", 20, "Results per page")
	offsetFlag := fs.Int("offset", 0, "Results to skip")
	formatFlag := fs.String("format", outputFormatTable, "Output format: table or json")
	timeoutFlag := fs.Duration("timeout", time.Minute, "Query timeout")
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

	provider, err := embedding.NewProvider(rt.cfg, rt.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	planner := search.NewPlanner(rt.pool, rt.logger)
	scorer := search.NewScorer(rt.pool, provider, rt.logger)
	ranker := ranking.NewLearnedRanker(rt.cfg.RankingArtifactPath, rt.logger)
	service := search.NewService(planner, scorer, ranker, rt.logger)

	req := search.Request{
		Query:  *queryFlag,
		Limit:  *limitFlag,
		Offset: *offsetFlag,
		Filters: search.Filters{
			Seniority:  *seniorityFlag,
			RoleFamily: *roleFamilyFlag,
			Sector:     *sectorFlag,
			MinQuality: *minQualityFlag,
		},
	}
	if *locationIDFlag > 0 {
		locationID := *locationIDFlag
		req.Filters.LocationID = &locationID
	}

	envelope, err := service.Search(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if format == outputFormatJSON {
		if err := printJSON(envelope); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	if err := printSearchTable(envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printSearchTable(envelope *search.Envelope) error {
	headers := []string{"ID", "TITLE", "ORGANIZATION", "LOCATION", "SIMILARITY", "QUALITY", "WHY"}
	rows := make([][]string, 0, len(envelope.Results))
	for _, result := range envelope.Results {
		similarity := "-"
		if result.Similarity != nil {
			similarity = strconv.FormatFloat(*result.Similarity, 'f', 3, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(result.PostingID, 10),
			truncateForTable(result.Title, 48),
			truncateForTable(pointerStringOrEmpty(result.Organization), 28),
			truncateForTable(formatResultLocation(result), 24),
			similarity,
			strconv.FormatFloat(result.QualityScore, 'f', 2, 64),
			truncateForTable(result.Explanation, 52),
		})
	}
	if err := writeTable(headers, rows); err != nil {
		return err
	}

	totalLabel := "at least"
	if envelope.TotalIsExact {
		totalLabel = "exactly"
	}
	fmt.Printf("\n%d results shown, %s %d total (ranker: %s)\n",
		len(envelope.Results), totalLabel, envelope.Total, envelope.RankerUsed)
	if envelope.HasMore {
		fmt.Println("more results available; raise --offset to page forward")
	}
	return nil
}

func formatResultLocation(result search.Result) string {
	if result.IsRemote != nil && *result.IsRemote {
		return "remote"
	}
	city := pointerStringOrEmpty(result.City)
	county := pointerStringOrEmpty(result.County)
	switch {
	case city != "" && county != "":
		return city + ", " + county
	case city != "":
		return city
	default:
		return county
	}
}
