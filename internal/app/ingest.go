package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/ingest"
	"jobradar.fyi/jobradar/internal/jobposting"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	payloadFlag := fs.String("payload", "", "Posting payload JSON (object or array of objects)")
	payloadFileFlag := fs.String("payload-file", "", "Path to a file containing the payload JSON")
	timeoutFlag := fs.Duration("timeout", 5*time.Minute, "Overall ingestion timeout")
	formatFlag := fs.String("format", outputFormatTable, "Output format: table or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format, err := parseOutputFormat(*formatFlag, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	raw, err := loadJSONInput(*payloadFlag, *payloadFileFlag, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	payloads, err := splitPayloads(raw)
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

	window := time.Duration(rt.cfg.DedupWindowDays) * 24 * time.Hour
	resolver := jobposting.NewResolver(rt.pool, provider, window, rt.logger)
	merger := jobposting.NewMerger(rt.pool, rt.logger)
	service := ingest.NewService(rt.pool, resolver, merger, provider, rt.cfg.EmbeddingModelVersion, rt.logger)

	result, err := service.ProcessBatch(ctx, payloads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if format == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		fmt.Printf("processed=%d inserted=%d merged=%d invalid=%d failed=%d\n",
			result.Processed, result.Inserted, result.Merged, result.Invalid, result.Failed)
	}

	if result.Failed > 0 {
		return 1
	}
	return 0
}

// splitPayloads accepts either a single payload object or a JSON array
// of payload objects.
func splitPayloads(raw json.RawMessage) ([]json.RawMessage, error) {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			var payloads []json.RawMessage
			if err := json.Unmarshal(raw, &payloads); err != nil {
				return nil, fmt.Errorf("parse payload array: %w", err)
			}
			if len(payloads) == 0 {
				return nil, fmt.Errorf("payload array is empty")
			}
			return payloads, nil
		default:
			return []json.RawMessage{raw}, nil
		}
	}
	return nil, fmt.Errorf("payload JSON is empty")
}
