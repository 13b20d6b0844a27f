// Package main is the entry point for the checker Lambda function.
//
// EventBridge rules invoke the function on a schedule with a JSON payload
// naming the task, for example {"task":"alert_check"} every minute and
// {"task":"anomaly_analysis"} hourly. The handler hands the payload to the
// scheduler Runner, which takes the duplicate-delivery lock, records job
// history and runs the task.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"carewatch/internal/app"
	"carewatch/internal/config"
	"carewatch/internal/scheduler"
	"carewatch/internal/types"
)

// TaskRunner executes one scheduled task.
type TaskRunner interface {
	Run(ctx context.Context, p scheduler.Payload) (scheduler.Result, error)
}

// Handler adapts the Runner to the Lambda invocation model.
type Handler struct {
	Runner TaskRunner
	Logger *slog.Logger
}

// Handle processes one invocation. The Lambda request ID becomes the request
// ID of the run so published alert events can be traced back to it.
func (h *Handler) Handle(ctx context.Context, payload scheduler.Payload) (scheduler.Result, error) {
	if payload.Task == "" {
		return scheduler.Result{}, fmt.Errorf("empty task type in payload")
	}

	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = types.WithRequestID(ctx, lc.AwsRequestID)
	}

	h.Logger.InfoContext(ctx, "checker invoked",
		"task", string(payload.Task),
		"request_id", types.GetRequestID(ctx),
	)

	return h.Runner.Run(ctx, payload)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("checker Lambda initializing (cold start)")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = app.NewLogger(cfg.LogLevel)

	// The pool lives for the lifetime of the execution environment and is
	// reused across invocations.
	engine, err := app.New(context.Background(), cfg, logger, "")
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	handler := &Handler{Runner: engine.Runner, Logger: logger}
	logger.Info("checker Lambda initialized", "worker_id", engine.Runner.WorkerID)

	lambda.Start(handler.Handle)
}
