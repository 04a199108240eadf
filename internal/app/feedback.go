package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/globaltime"
	"jobradar.fyi/jobradar/internal/search"
)

func runFeedback(args []string) int {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	queryFlag := fs.String("query", "", "Query text the result was shown for")
	postingIDFlag := fs.Int64("posting-id", 0, "Posting the event refers to")
	eventFlag := fs.String("event", "", "Event type: impression, click, or apply")
	timeoutFlag := fs.Duration("timeout", 10*time.Second, "Write timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *postingIDFlag < 1 {
		fmt.Fprintln(os.Stderr, "Error: --posting-id is required")
		return 2
	}
	eventType, ok := search.NormalizeEventType(*eventFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown event type %q (want impression, click, or apply)\n", *eventFlag)
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

	if err := rt.pool.InsertInteractionEvent(ctx, strings.TrimSpace(*queryFlag), *postingIDFlag, eventType, globaltime.UTC()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("recorded %s for posting %d\n", eventType, *postingIDFlag)
	return 0
}
