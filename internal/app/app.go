// Package app assembles the CareWatch engine from configuration. The API
// server, the checker Lambda and the job-runner CLI all start from New so
// they share one wiring of repositories, transports and services.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"carewatch/internal/alerts"
	"carewatch/internal/anomaly"
	"carewatch/internal/config"
	"carewatch/internal/db"
	"carewatch/internal/external"
	"carewatch/internal/monitor"
	notif "carewatch/internal/notifications/core"
	"carewatch/internal/scheduler"
	"carewatch/internal/types"
)

// notifyTimeout bounds one call to the email provider.
const notifyTimeout = 10 * time.Second

// App holds the long-lived components built at startup.
type App struct {
	Pool      *pgxpool.Pool
	Alerts    *alerts.Service
	Evaluator *monitor.Evaluator
	Analyzer  *anomaly.Analyzer
	Runner    *scheduler.Runner
	Logger    *slog.Logger
}

// New connects to the database and builds every service. workerID tags job
// locks; an empty value gets a fresh UUID.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, workerID string) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), db.PoolOptions{
		MaxConns:          int32(cfg.Database.MaxConns),
		MinConns:          int32(cfg.Database.MinConns),
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	typedLogger := types.NewSlogLogger(logger)
	metrics := newMetrics(awsCfg, cfg.AWS, typedLogger)
	events := newEventPublisher(awsCfg, cfg.AWS, typedLogger)

	alertRepo := db.NewAlertRepository(pool)
	conditionRepo := db.NewConditionRepository(pool)
	signalRepo := db.NewSignalRepository(pool)

	dispatcher := notif.NewDispatcher(
		notif.DefaultChannels(newTransport(cfg.Email, logger)),
		metrics,
		typedLogger,
		cfg.Monitor.DispatchConcurrency,
	)

	evaluator := monitor.NewEvaluator(monitor.EvaluatorDeps{
		Conditions:       conditionRepo,
		Signals:          signalRepo,
		Contacts:         db.NewContactRepository(pool),
		Alerts:           alertRepo,
		Notifier:         dispatcher,
		Events:           events,
		Metrics:          metrics,
		Logger:           logger,
		FetchConcurrency: cfg.Monitor.FetchConcurrency,
	})

	analyzer := anomaly.NewAnalyzer(anomaly.Deps{
		Signals:   signalRepo,
		Generator: newTextGenerator(cfg.TextGen, logger),
		Alerts:    db.NewAlertBatchWriter(db.NewTxManager(pool)),
		Events:    events,
		Metrics:   metrics,
		Logger:    logger,
	})

	if workerID == "" {
		workerID = uuid.NewString()
	}

	return &App{
		Pool: pool,
		Alerts: alerts.NewService(alerts.Deps{
			Alerts:     alertRepo,
			Conditions: conditionRepo,
			Logger:     typedLogger,
		}),
		Evaluator: evaluator,
		Analyzer:  analyzer,
		Runner: &scheduler.Runner{
			Checker:  evaluator,
			Analyzer: analyzer,
			Locks:    db.NewJobLockRepository(pool),
			History:  db.NewJobHistoryRepository(pool),
			WorkerID: workerID,
			Logger:   logger,
		},
		Logger: logger,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// NewLogger returns a JSON slog logger at the named level. Unknown levels
// fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func newMetrics(awsCfg aws.Config, c config.AWSConfig, logger types.Logger) notif.Metrics {
	if !c.EnableMetrics {
		return notif.NopMetrics{}
	}
	return notif.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), c.MetricNamespace, logger)
}

func newEventPublisher(awsCfg aws.Config, c config.AWSConfig, logger types.Logger) notif.EventPublisher {
	if c.AlertEventQueue == "" {
		return notif.NopPublisher{}
	}
	return notif.NewAlertEventPublisher(sqs.NewFromConfig(awsCfg), c.AlertEventQueue, logger)
}

// newTransport returns the SendGrid client, or a logging stub when no API
// key is configured.
func newTransport(c config.EmailConfig, logger *slog.Logger) types.Transport {
	if !c.SendGridAPIKey.IsSet() {
		logger.Warn("SENDGRID_API_KEY not set, notifications will only be logged")
		return &external.StubTransport{Logger: logger}
	}
	return external.NewSendGridClient(&http.Client{Timeout: notifyTimeout}, external.SendGridClientConfig{
		APIKey:      c.SendGridAPIKey.Unmask(),
		BaseURL:     c.BaseURL,
		FromAddress: c.FromAddress,
		FromName:    c.FromName,
		Logger:      logger,
	})
}

// newTextGenerator returns the OpenAI-compatible generator, or a stub that
// reports no anomalies when no API key is configured.
func newTextGenerator(c config.TextGenConfig, logger *slog.Logger) types.TextGenerator {
	if !c.APIKey.IsSet() {
		logger.Warn("TEXTGEN_API_KEY not set, anomaly analysis will report no anomalies")
		return external.StubTextGenerator{}
	}
	return external.NewOpenAITextGenerator(external.NewOpenAIBaseClient(c.Timeout), external.TextGenConfig{
		APIKey:  c.APIKey.Unmask(),
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Logger:  logger,
	})
}
