// Package monitor evaluates caregiver alert conditions against recent care
// signals and notifies emergency contacts when a condition triggers.
//
// A run is isolate-and-continue: a failure on one condition is recorded in
// the run summary and never aborts the batch. Signal windows are prefetched
// concurrently per condition type; claiming and notifying run sequentially.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"carewatch/internal/notifications/core"
	"carewatch/internal/types"
)

// TaskAlertCheck names the evaluator run in metrics and job history.
const TaskAlertCheck = "alert_check"

const defaultFetchConcurrency = 8

// TriggerResult reports one triggered condition.
type TriggerResult struct {
	ConditionID      string         `json:"condition_id"`
	Condition        string         `json:"condition"`
	Severity         types.Severity `json:"severity"`
	ContactsNotified int            `json:"contacts_notified"`
}

// ConditionFailure reports a condition that could not be fully processed.
type ConditionFailure struct {
	ConditionID string          `json:"condition_id"`
	Condition   string          `json:"condition"`
	Code        types.ErrorCode `json:"code"`
	Message     string          `json:"message"`
}

// RunSummary is the outcome of EvaluateAll. Checked counts enabled
// conditions, including those skipped by cooldown.
type RunSummary struct {
	Checked   int                `json:"checked"`
	Triggered []TriggerResult    `json:"triggered"`
	Failures  []ConditionFailure `json:"failures,omitempty"`
}

// EvaluatorDeps wires an Evaluator. Events, Metrics, Clock, NewID and Logger
// are optional.
type EvaluatorDeps struct {
	Conditions ConditionStore
	Signals    SignalReader
	Contacts   ContactReader
	Alerts     AlertWriter
	Notifier   Notifier
	Events     core.EventPublisher
	Metrics    core.Metrics
	Clock      types.Clock
	NewID      types.IDGenerator
	Logger     *slog.Logger

	FetchConcurrency int
}

// Evaluator runs every enabled condition once per call.
type Evaluator struct {
	conditions ConditionStore
	signals    SignalReader
	contacts   ContactReader
	alerts     AlertWriter
	notifier   Notifier
	events     core.EventPublisher
	metrics    core.Metrics
	clock      types.Clock
	newID      types.IDGenerator
	log        *slog.Logger

	fetchConcurrency int
}

// NewEvaluator creates an Evaluator, filling defaults for optional deps.
func NewEvaluator(d EvaluatorDeps) *Evaluator {
	e := &Evaluator{
		conditions:       d.Conditions,
		signals:          d.Signals,
		contacts:         d.Contacts,
		alerts:           d.Alerts,
		notifier:         d.Notifier,
		events:           d.Events,
		metrics:          d.Metrics,
		clock:            d.Clock,
		newID:            d.NewID,
		log:              d.Logger,
		fetchConcurrency: d.FetchConcurrency,
	}
	if e.events == nil {
		e.events = core.NopPublisher{}
	}
	if e.metrics == nil {
		e.metrics = core.NopMetrics{}
	}
	if e.clock == nil {
		e.clock = types.RealClock{}
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.fetchConcurrency <= 0 {
		e.fetchConcurrency = defaultFetchConcurrency
	}
	e.log = e.log.With("component", "evaluator")
	return e
}

// EvaluateAll evaluates every enabled condition. The only error returned is
// a failure to list conditions; everything else lands in the summary.
func (e *Evaluator) EvaluateAll(ctx context.Context) (RunSummary, error) {
	now := e.clock.Now()
	summary := RunSummary{Triggered: []TriggerResult{}}

	conds, err := e.conditions.ListEnabled(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "failed to list enabled conditions", "error", err)
		return summary, err
	}

	var due []*types.AlertCondition
	for _, c := range conds {
		if !c.IsEnabled {
			continue
		}
		summary.Checked++
		cd := CooldownState(c.LastTriggered, c.CooldownMinutes, now)
		if cd.Phase == Cooling {
			e.log.DebugContext(ctx, "condition cooling down",
				"condition_id", c.ID,
				"remaining_s", int(cd.Remaining.Seconds()),
			)
			continue
		}
		due = append(due, c)
	}

	windows, fetchErrs := e.prefetch(ctx, due, now)

	for _, c := range due {
		if err, ok := fetchErrs[c.ConditionType]; ok {
			summary.fail(c, types.ErrCodeTransientFetch, err)
			e.log.WarnContext(ctx, "signal fetch failed; condition skipped",
				"condition_id", c.ID,
				"condition_type", string(c.ConditionType),
				"error", err,
			)
			continue
		}

		out := evaluate(c, windows[c.ConditionType], now)
		if !out.triggered {
			continue
		}
		e.trigger(ctx, &summary, c, out, now)
	}

	e.metrics.RecordRun(ctx, TaskAlertCheck, core.RunStats{
		Checked:   summary.Checked,
		Triggered: len(summary.Triggered),
		Failures:  len(summary.Failures),
	})
	e.log.InfoContext(ctx, "alert check completed",
		"checked", summary.Checked,
		"triggered", len(summary.Triggered),
		"failures", len(summary.Failures),
	)
	return summary, nil
}

// prefetch loads one signal window per distinct condition type concurrently.
func (e *Evaluator) prefetch(ctx context.Context, due []*types.AlertCondition, now time.Time) (map[types.ConditionType]signals, map[types.ConditionType]error) {
	windows := make(map[types.ConditionType]signals)
	errs := make(map[types.ConditionType]error)
	var mu sync.Mutex

	seen := make(map[types.ConditionType]bool)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)
	for _, c := range due {
		ct := c.ConditionType
		if seen[ct] {
			continue
		}
		seen[ct] = true
		g.Go(func() error {
			s, err := fetchSignals(gctx, e.signals, ct, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[ct] = err
			} else {
				windows[ct] = s
			}
			// Per-type failures are isolated; never cancel sibling fetches.
			return nil
		})
	}
	_ = g.Wait()
	return windows, errs
}

// trigger claims the condition, notifies contacts and records the alert.
func (e *Evaluator) trigger(ctx context.Context, summary *RunSummary, c *types.AlertCondition, out outcome, now time.Time) {
	log := e.log.With("condition_id", c.ID, "condition_type", string(c.ConditionType))

	contacts, err := e.contacts.GetByIDs(ctx, c.NotifyContacts)
	if err != nil {
		summary.fail(c, types.ErrCodeTransientFetch, err)
		log.WarnContext(ctx, "contact lookup failed; condition skipped", "error", err)
		return
	}

	claimed, err := e.conditions.ClaimTrigger(ctx, c.ID, c.LastTriggered, now)
	if err != nil {
		summary.fail(c, types.ErrCodeInternalPersistence, err)
		log.ErrorContext(ctx, "failed to record trigger", "error", err)
		return
	}
	if !claimed {
		summary.fail(c, types.ErrCodeConflictConcurrent,
			fmt.Errorf("condition already triggered by a concurrent run"))
		log.InfoContext(ctx, "condition already triggered elsewhere; notification skipped")
		return
	}

	msg := formatMessage(c, out)
	dispatch := e.notifier.Dispatch(ctx, contacts, c.NotificationMethod, msg)

	alert := &types.CaregiverAlert{
		ID:        e.newID(),
		AlertType: types.AlertTypeConditionTriggered,
		Severity:  c.Severity,
		Title:     msg.Subject,
		Message:   out.detail,
		PatternData: types.PatternData{
			"condition_id":      c.ID,
			"condition_type":    string(c.ConditionType),
			"observed_value":    out.observed,
			"threshold_value":   c.ThresholdValue,
			"contacts_notified": dispatch.ContactsNotified,
		},
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		summary.fail(c, types.ErrCodeInternalPersistence, err)
		log.ErrorContext(ctx, "failed to record triggered alert", "error", err)
		alert.ID = ""
	}

	if err := e.events.Publish(ctx, core.AlertEvent{
		EventID:          e.newID(),
		AlertID:          alert.ID,
		ConditionID:      c.ID,
		AlertType:        types.AlertTypeConditionTriggered,
		Severity:         c.Severity,
		Title:            msg.Subject,
		ContactsNotified: dispatch.ContactsNotified,
		OccurredAt:       now,
	}); err != nil {
		log.WarnContext(ctx, "failed to publish alert event", "error", err)
	}

	log.InfoContext(ctx, "condition triggered",
		"severity", string(c.Severity),
		"observed", out.observed,
		"contacts_notified", dispatch.ContactsNotified,
		"deliveries", len(dispatch.Deliveries),
	)
	summary.Triggered = append(summary.Triggered, TriggerResult{
		ConditionID:      c.ID,
		Condition:        c.ConditionName,
		Severity:         c.Severity,
		ContactsNotified: dispatch.ContactsNotified,
	})
}

func (s *RunSummary) fail(c *types.AlertCondition, code types.ErrorCode, err error) {
	s.Failures = append(s.Failures, ConditionFailure{
		ConditionID: c.ID,
		Condition:   c.ConditionName,
		Code:        code,
		Message:     err.Error(),
	})
}

// formatMessage renders the notification for a triggered condition.
func formatMessage(c *types.AlertCondition, out outcome) core.Message {
	return core.Message{
		Subject: fmt.Sprintf("[%s] %s", c.Severity.Upper(), c.ConditionName),
		Body: fmt.Sprintf("CareWatch alert: %s\n\n%s\n\nSeverity: %s\n",
			c.ConditionName, out.detail, c.Severity),
	}
}
