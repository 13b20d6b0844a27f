package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"carewatch/internal/notifications/core"
	"carewatch/internal/types"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memConditions is an in-memory ConditionStore with compare-and-swap claims.
type memConditions struct {
	mu      sync.Mutex
	conds   []*types.AlertCondition
	listErr error
	claimFn func(id string) (bool, error)
	claims  []string
}

func (m *memConditions) ListEnabled(context.Context) ([]*types.AlertCondition, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.AlertCondition
	for _, c := range m.conds {
		if c.IsEnabled {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memConditions) ClaimTrigger(_ context.Context, id string, prev *time.Time, now time.Time) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conds {
		if c.ID != id {
			continue
		}
		same := (c.LastTriggered == nil && prev == nil) ||
			(c.LastTriggered != nil && prev != nil && c.LastTriggered.Equal(*prev))
		if !same || (c.LastTriggered != nil && !c.LastTriggered.Before(now)) {
			return false, nil
		}
		t := now
		c.LastTriggered = &t
		m.claims = append(m.claims, id)
		return true, nil
	}
	return false, nil
}

func (m *memConditions) get(id string) *types.AlertCondition {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conds {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// fakeSignals serves fixed windows. A non-nil err field fails that read.
type fakeSignals struct {
	mu sync.Mutex

	latest        *types.ActivityRecord
	mood          []types.MoodSample
	incidents     []types.NightIncident
	distress      []types.ActivityRecord
	latestErr     error
	moodErr       error
	incidentSince time.Time
	calls         int
}

func (f *fakeSignals) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeSignals) LatestActivity(context.Context) (*types.ActivityRecord, error) {
	f.hit()
	return f.latest, f.latestErr
}

func (f *fakeSignals) RecentActivitiesByType(_ context.Context, activityType string, limit int) ([]types.ActivityRecord, error) {
	f.hit()
	if activityType != types.ActivityAnxietyDetection {
		return nil, errors.New("unexpected activity type")
	}
	if len(f.distress) > limit {
		return f.distress[:limit], nil
	}
	return f.distress, nil
}

func (f *fakeSignals) RecentMoodSamples(_ context.Context, limit, _ int) ([]types.MoodSample, error) {
	f.hit()
	if f.moodErr != nil {
		return nil, f.moodErr
	}
	if len(f.mood) > limit {
		return f.mood[:limit], nil
	}
	return f.mood, nil
}

func (f *fakeSignals) NightIncidentsSince(_ context.Context, _ []types.Severity, since time.Time) ([]types.NightIncident, error) {
	f.hit()
	f.mu.Lock()
	f.incidentSince = since
	f.mu.Unlock()
	return f.incidents, nil
}

type fakeContacts struct {
	byID map[string]types.EmergencyContact
	err  error
}

func (f *fakeContacts) GetByIDs(_ context.Context, ids []string) ([]types.EmergencyContact, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []types.EmergencyContact
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAlerts struct {
	created []*types.CaregiverAlert
	err     error
}

func (f *fakeAlerts) Create(_ context.Context, a *types.CaregiverAlert) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, a)
	return nil
}

type dispatchCall struct {
	contacts []types.EmergencyContact
	channels []types.ChannelType
	msg      core.Message
}

// fakeNotifier reports every contact as notified unless notified is set.
type fakeNotifier struct {
	calls    []dispatchCall
	notified *int
}

func (f *fakeNotifier) Dispatch(_ context.Context, contacts []types.EmergencyContact, channels []types.ChannelType, msg core.Message) core.DispatchResult {
	f.calls = append(f.calls, dispatchCall{contacts, channels, msg})
	n := len(contacts)
	if f.notified != nil {
		n = *f.notified
	}
	return core.DispatchResult{ContactsNotified: n}
}

type fakeEvents struct {
	events []core.AlertEvent
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, e core.AlertEvent) error {
	f.events = append(f.events, e)
	return f.err
}

type fakeMetrics struct {
	core.NopMetrics
	runs []core.RunStats
}

func (f *fakeMetrics) RecordRun(_ context.Context, _ string, s core.RunStats) {
	f.runs = append(f.runs, s)
}

// harness bundles an evaluator with its fakes.
type harness struct {
	conds    *memConditions
	signals  *fakeSignals
	contacts *fakeContacts
	alerts   *fakeAlerts
	notifier *fakeNotifier
	events   *fakeEvents
	metrics  *fakeMetrics
	clock    *types.FixedClock
}

func newHarness(conds ...*types.AlertCondition) *harness {
	return &harness{
		conds:   &memConditions{conds: conds},
		signals: &fakeSignals{},
		contacts: &fakeContacts{byID: map[string]types.EmergencyContact{
			"c1": {ID: "c1", Name: "Dana", Email: "dana@example.com", IsPrimary: true},
			"c2": {ID: "c2", Name: "Eli", Email: "eli@example.com"},
		}},
		alerts:   &fakeAlerts{},
		notifier: &fakeNotifier{},
		events:   &fakeEvents{},
		metrics:  &fakeMetrics{},
		clock:    &types.FixedClock{T: testNow},
	}
}

func (h *harness) evaluator() *Evaluator {
	n := 0
	return NewEvaluator(EvaluatorDeps{
		Conditions: h.conds,
		Signals:    h.signals,
		Contacts:   h.contacts,
		Alerts:     h.alerts,
		Notifier:   h.notifier,
		Events:     h.events,
		Metrics:    h.metrics,
		Clock:      h.clock,
		NewID: func() string {
			n++
			return "id_" + string(rune('a'+n-1))
		},
		Logger: discardLogger(),
	})
}

func condition(id string, ct types.ConditionType, threshold float64) *types.AlertCondition {
	return &types.AlertCondition{
		ID:                 id,
		ConditionName:      "cond " + id,
		ConditionType:      ct,
		IsEnabled:          true,
		ThresholdValue:     threshold,
		ThresholdUnit:      types.UnitHours,
		CooldownMinutes:    30,
		NotifyContacts:     []string{"c1", "c2"},
		NotificationMethod: types.ChannelList{types.ChannelEmail},
		Severity:           types.SeverityHigh,
	}
}

func moodSamples(levels ...float64) []types.MoodSample {
	out := make([]types.MoodSample, len(levels))
	for i, l := range levels {
		out[i] = types.MoodSample{ID: "m", AnxietyLevel: ptr(l), CreatedDate: testNow.Add(-time.Duration(i) * time.Hour)}
	}
	return out
}
