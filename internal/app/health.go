package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeoutFlag := fs.Duration("timeout", 10*time.Second, "Connection check timeout")
	if err := fs.Parse(args); err != nil {
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

	var one int
	if err := rt.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		fmt.Fprintf(os.Stderr, "Error: database check failed: %v\n", err)
		return 1
	}

	fmt.Println("database: ok")
	return 0
}
