// Package anomaly summarizes recent care signals into aggregate metrics, asks
// a text generator to identify behavioral anomalies, and records confident
// findings as caregiver alerts.
//
// Unlike the condition evaluator, a run fails as a whole: a malformed
// response or a storage error creates no alerts.
package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"carewatch/internal/notifications/core"
	"carewatch/internal/types"
)

// TaskAnomalyAnalysis names the analyzer run in metrics and job history.
const TaskAnomalyAnalysis = "anomaly_analysis"

// MinConfidence is the lowest confidence recorded as an alert.
const MinConfidence = types.MinAnomalyConfidence

// AlertBatchWriter stores a set of alerts atomically.
type AlertBatchWriter interface {
	CreateAll(ctx context.Context, alerts []*types.CaregiverAlert) error
}

// AnalysisSummary is the outcome of AnalyzeAndAlert. AnomaliesFound counts
// every anomaly returned, including those below the confidence cutoff.
type AnalysisSummary struct {
	AnomaliesFound int     `json:"anomalies_found"`
	AlertsCreated  int     `json:"alerts_created"`
	OverallStatus  string  `json:"overall_status"`
	Summary        string  `json:"summary"`
	Metrics        Metrics `json:"metrics"`
}

// Deps wires an Analyzer. Events, Metrics, Clock, NewID and Logger are
// optional.
type Deps struct {
	Signals   SignalReader
	Generator types.TextGenerator
	Alerts    AlertBatchWriter
	Events    core.EventPublisher
	Metrics   core.Metrics
	Clock     types.Clock
	NewID     types.IDGenerator
	Logger    *slog.Logger
}

// Analyzer runs the anomaly pipeline.
type Analyzer struct {
	signals   SignalReader
	generator types.TextGenerator
	alerts    AlertBatchWriter
	events    core.EventPublisher
	metrics   core.Metrics
	clock     types.Clock
	newID     types.IDGenerator
	log       *slog.Logger
}

// NewAnalyzer creates an Analyzer, filling defaults for optional deps.
func NewAnalyzer(d Deps) *Analyzer {
	a := &Analyzer{
		signals:   d.Signals,
		generator: d.Generator,
		alerts:    d.Alerts,
		events:    d.Events,
		metrics:   d.Metrics,
		clock:     d.Clock,
		newID:     d.NewID,
		log:       d.Logger,
	}
	if a.events == nil {
		a.events = core.NopPublisher{}
	}
	if a.metrics == nil {
		a.metrics = core.NopMetrics{}
	}
	if a.clock == nil {
		a.clock = types.RealClock{}
	}
	if a.newID == nil {
		a.newID = uuid.NewString
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	a.log = a.log.With("component", "analyzer")
	return a
}

// AnalyzeAndAlert runs one analysis. Any error leaves the alert store
// untouched.
func (a *Analyzer) AnalyzeAndAlert(ctx context.Context) (AnalysisSummary, error) {
	summary, err := a.run(ctx)
	stats := core.RunStats{Checked: summary.AnomaliesFound, Triggered: summary.AlertsCreated}
	if err != nil {
		stats.Failures = 1
		a.log.ErrorContext(ctx, "anomaly analysis failed", "error", err)
	}
	a.metrics.RecordRun(ctx, TaskAnomalyAnalysis, stats)
	return summary, err
}

func (a *Analyzer) run(ctx context.Context) (AnalysisSummary, error) {
	now := a.clock.Now()

	metrics, err := collectMetrics(ctx, a.signals, now)
	if err != nil {
		return AnalysisSummary{}, err
	}
	summary := AnalysisSummary{Metrics: metrics}

	raw, err := a.generator.Generate(ctx, buildPrompt(metrics), analysisSchema)
	if err != nil {
		var ae *types.AppError
		if errors.As(err, &ae) {
			return summary, err
		}
		return summary, types.NewAppError(types.ErrCodeUpstreamTextGen, "text generation failed", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return summary, err
	}
	summary.AnomaliesFound = len(analysis.Anomalies)
	summary.OverallStatus = analysis.OverallStatus
	summary.Summary = analysis.Summary

	var alerts []*types.CaregiverAlert
	for _, an := range analysis.Anomalies {
		if an.Confidence < MinConfidence {
			a.log.DebugContext(ctx, "anomaly below confidence cutoff",
				"anomaly_type", an.Type,
				"confidence", an.Confidence,
			)
			continue
		}
		alerts = append(alerts, a.toAlert(an, metrics, now))
	}

	if err := a.alerts.CreateAll(ctx, alerts); err != nil {
		return summary, err
	}
	summary.AlertsCreated = len(alerts)

	for _, al := range alerts {
		if err := a.events.Publish(ctx, core.AlertEvent{
			EventID:    a.newID(),
			AlertID:    al.ID,
			AlertType:  al.AlertType,
			Severity:   al.Severity,
			Title:      al.Title,
			OccurredAt: now,
		}); err != nil {
			a.log.WarnContext(ctx, "failed to publish alert event", "alert_id", al.ID, "error", err)
		}
	}

	a.log.InfoContext(ctx, "anomaly analysis completed",
		"anomalies_found", summary.AnomaliesFound,
		"alerts_created", summary.AlertsCreated,
		"overall_status", summary.OverallStatus,
	)
	return summary, nil
}

func (a *Analyzer) toAlert(an Anomaly, m Metrics, now time.Time) *types.CaregiverAlert {
	pd := m.patternData()
	pd["anomaly_type"] = an.Type
	conf := an.Confidence
	return &types.CaregiverAlert{
		ID:              a.newID(),
		AlertType:       types.AlertTypeBehaviorAnomaly,
		Severity:        an.Severity,
		Title:           an.Title,
		Message:         an.Description + "\n\nRecommendation: " + an.Recommendation,
		PatternData:     pd,
		ConfidenceScore: &conf,
		CreatedDate:     now,
	}
}

// buildPrompt renders the aggregate metrics for the generator.
func buildPrompt(m Metrics) string {
	payload, _ := json.MarshalIndent(m, "", "  ")

	var b strings.Builder
	b.WriteString("Review these behavioral metrics for an older adult using a companion app.\n")
	b.WriteString("Compare recent values with their baselines and identify meaningful changes ")
	b.WriteString("in activity, anxiety, night incidents and conversation length.\n")
	b.WriteString("Report each anomaly with a confidence between 0 and 1. Report no anomalies if behavior is stable.\n\n")
	fmt.Fprintf(&b, "Metrics:\n%s\n", payload)
	return b.String()
}
