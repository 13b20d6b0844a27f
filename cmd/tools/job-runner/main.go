// Package main implements the job-runner CLI for invoking scheduled CareWatch
// tasks directly, bypassing the Lambda shim.
//
// It is meant for local development and operational debugging. Runs are
// manual by default and skip the duplicate-delivery lock; pass --scheduled
// to take the lock exactly as the checker Lambda would.
//
// Usage:
//
//	go run ./cmd/tools/job-runner --task=alert_check
//	go run ./cmd/tools/job-runner --task=anomaly_analysis --env-file=.env.staging
//	go run ./cmd/tools/job-runner --scheduled --task=alert_check --reference-time=2026-03-14T09:30:00Z
//	go run ./cmd/tools/job-runner --dry-run --task=alert_check
//	go run ./cmd/tools/job-runner --list
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"carewatch/internal/app"
	"carewatch/internal/config"
	"carewatch/internal/scheduler"
)

// options are the parsed command-line flags.
type options struct {
	payload scheduler.Payload
	envFile string
	list    bool
	dryRun  bool
}

var errUsage = errors.New("usage")

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if opts.list {
		printAvailableTasks(os.Stdout)
		return
	}
	if opts.dryRun {
		if err := printJSON(os.Stdout, opts.payload); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			fmt.Fprintf(os.Stderr, "error: loading %s: %v\n", opts.envFile, err)
			os.Exit(1)
		}
	}

	if err := execute(opts.payload); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags validates the arguments and builds the payload.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("job-runner", flag.ContinueOnError)
	fs.SetOutput(stderr)

	task := fs.String("task", "", "Task type to execute (see --list)")
	refTime := fs.String("reference-time", "", "Override the lock reference time (RFC3339)")
	scheduled := fs.Bool("scheduled", false, "Take the duplicate-delivery lock like a scheduled run")
	envFile := fs.String("env-file", "", "Load environment variables from this file first")
	list := fs.Bool("list", false, "List all available task types and exit")
	dryRun := fs.Bool("dry-run", false, "Print the JSON payload without executing")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: job-runner [flags]\n\nRun a scheduled CareWatch task directly.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{envFile: *envFile, list: *list, dryRun: *dryRun}
	if opts.list {
		return opts, nil
	}

	if *task == "" {
		return options{}, fmt.Errorf("%w: --task is required", errUsage)
	}
	taskType := scheduler.TaskType(*task)
	if _, ok := scheduler.Tasks[taskType]; !ok {
		return options{}, fmt.Errorf("%w: unknown task type %q", errUsage, *task)
	}

	opts.payload = scheduler.Payload{Task: taskType, Manual: !*scheduled}
	if *refTime != "" {
		t, err := time.Parse(time.RFC3339, *refTime)
		if err != nil {
			return options{}, fmt.Errorf("%w: invalid --reference-time %q: expected RFC3339", errUsage, *refTime)
		}
		opts.payload.ReferenceTime = &t
	}
	return opts, nil
}

// execute builds the engine and runs one task through the scheduler Runner.
func execute(payload scheduler.Payload) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := app.New(ctx, cfg, logger, "job-runner-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.Runner.Run(ctx, payload)
	if err != nil {
		return err
	}
	logger.Info("task execution succeeded",
		"task", string(res.Task),
		"skipped", res.Skipped,
		"items", res.Items,
	)
	return printJSON(os.Stdout, res)
}

func printAvailableTasks(w io.Writer) {
	names := make([]string, 0, len(scheduler.Tasks))
	for t := range scheduler.Tasks {
		names = append(names, string(t))
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Available tasks:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", name, scheduler.Tasks[scheduler.TaskType(name)])
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
