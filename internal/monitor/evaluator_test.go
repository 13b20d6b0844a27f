package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carewatch/internal/types"
)

func TestEvaluateAll_NoInteractionTriggers(t *testing.T) {
	c := condition("cond_a", types.ConditionNoInteraction, 12)
	c.ConditionName = "No contact today"
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "act_1", CreatedDate: testNow.Add(-13 * time.Hour)}

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Checked)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, TriggerResult{
		ConditionID:      "cond_a",
		Condition:        "No contact today",
		Severity:         types.SeverityHigh,
		ContactsNotified: 2,
	}, summary.Triggered[0])
	assert.Empty(t, summary.Failures)

	stored := h.conds.get("cond_a")
	require.NotNil(t, stored.LastTriggered)
	assert.True(t, stored.LastTriggered.Equal(testNow))

	require.Len(t, h.notifier.calls, 1)
	call := h.notifier.calls[0]
	assert.Equal(t, "[HIGH] No contact today", call.msg.Subject)
	assert.Contains(t, call.msg.Body, "13.0 hours")
	assert.Equal(t, []types.ChannelType{types.ChannelEmail}, call.channels)
	assert.Len(t, call.contacts, 2)

	require.Len(t, h.alerts.created, 1)
	alert := h.alerts.created[0]
	assert.Equal(t, types.AlertTypeConditionTriggered, alert.AlertType)
	assert.Equal(t, "[HIGH] No contact today", alert.Title)
	assert.Equal(t, "cond_a", alert.PatternData["condition_id"])
	assert.Equal(t, 2, alert.PatternData["contacts_notified"])

	require.Len(t, h.events.events, 1)
	assert.Equal(t, alert.ID, h.events.events[0].AlertID)
	assert.Equal(t, "cond_a", h.events.events[0].ConditionID)

	require.Len(t, h.metrics.runs, 1)
	assert.Equal(t, 1, h.metrics.runs[0].Triggered)
}

func TestEvaluateAll_HighAnxietyBoundaryThenCooldown(t *testing.T) {
	c := condition("cond_b", types.ConditionHighAnxiety, 7)
	h := newHarness(c)
	h.signals.mood = moodSamples(8, 9, 6, 7, 5)
	ev := h.evaluator()

	summary, err := ev.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Triggered, 1)

	// Ten minutes later with much worse data: still cooling.
	h.clock.T = testNow.Add(10 * time.Minute)
	h.signals.mood = moodSamples(10, 10, 10, 10, 10)

	summary, err = ev.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Empty(t, summary.Triggered)
	assert.Len(t, h.notifier.calls, 1)

	// Cooldown expired.
	h.clock.T = testNow.Add(30 * time.Minute)
	summary, err = ev.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Triggered, 1)
	assert.True(t, h.conds.get("cond_b").LastTriggered.Equal(testNow.Add(30*time.Minute)))
}

func TestEvaluateAll_NightIncidentWindow(t *testing.T) {
	c := condition("cond_e", types.ConditionNightIncident, 0)
	h := newHarness(c)
	h.signals.incidents = []types.NightIncident{
		{ID: "n1", IncidentType: "wandering", Severity: types.SeverityHigh, Timestamp: testNow.Add(-45 * time.Minute)},
	}

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Triggered, 1)
	assert.True(t, h.signals.incidentSince.Equal(testNow.Add(-time.Hour)))

	h2 := newHarness(condition("cond_e", types.ConditionNightIncident, 0))
	h2.signals.incidents = []types.NightIncident{
		{ID: "n2", IncidentType: "fall", Severity: types.SeverityHigh, Timestamp: testNow.Add(-3 * time.Hour)},
	}
	summary, err = h2.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Triggered)
	assert.Nil(t, h2.conds.get("cond_e").LastTriggered)
}

func TestEvaluateAll_EmptyContactsStillTriggers(t *testing.T) {
	c := condition("cond_x", types.ConditionNoInteraction, 1)
	c.NotifyContacts = nil
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-5 * time.Hour)}

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, 0, summary.Triggered[0].ContactsNotified)
	assert.NotNil(t, h.conds.get("cond_x").LastTriggered)
}

func TestEvaluateAll_FetchFailureIsolated(t *testing.T) {
	failing := condition("cond_mood", types.ConditionHighAnxiety, 5)
	healthy := condition("cond_idle", types.ConditionNoInteraction, 2)
	h := newHarness(failing, healthy)
	h.signals.moodErr = types.NewAppError(types.ErrCodeTransientFetch, "timeout", nil)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-3 * time.Hour)}

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, "cond_idle", summary.Triggered[0].ConditionID)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "cond_mood", summary.Failures[0].ConditionID)
	assert.Equal(t, types.ErrCodeTransientFetch, summary.Failures[0].Code)
	assert.Nil(t, h.conds.get("cond_mood").LastTriggered)
}

func TestEvaluateAll_SharedWindowFetchedOnce(t *testing.T) {
	a := condition("a", types.ConditionNoInteraction, 100)
	b := condition("b", types.ConditionNoInteraction, 200)
	h := newHarness(a, b)
	h.signals.latest = &types.ActivityRecord{ID: "x", CreatedDate: testNow}

	_, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.signals.calls)
}

func TestEvaluateAll_LostClaimSkipsNotification(t *testing.T) {
	c := condition("cond_race", types.ConditionNoInteraction, 1)
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}
	h.conds.claimFn = func(string) (bool, error) { return false, nil }

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Triggered)
	assert.Empty(t, h.notifier.calls)
	assert.Empty(t, h.alerts.created)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, types.ErrCodeConflictConcurrent, summary.Failures[0].Code)
}

func TestEvaluateAll_ClaimErrorReported(t *testing.T) {
	c := condition("cond_db", types.ConditionNoInteraction, 1)
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}
	h.conds.claimFn = func(string) (bool, error) { return false, errors.New("connection refused") }

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Triggered)
	assert.Empty(t, h.notifier.calls)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, types.ErrCodeInternalPersistence, summary.Failures[0].Code)
}

func TestEvaluateAll_AlertPersistenceFailureDoesNotAbort(t *testing.T) {
	c := condition("cond_p", types.ConditionNoInteraction, 1)
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}
	h.alerts.err = errors.New("disk full")
	h.events.err = errors.New("queue missing")

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, 2, summary.Triggered[0].ContactsNotified)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, types.ErrCodeInternalPersistence, summary.Failures[0].Code)
	require.Len(t, h.events.events, 1)
	assert.Empty(t, h.events.events[0].AlertID)
}

func TestEvaluateAll_ContactLookupFailureLeavesConditionUnclaimed(t *testing.T) {
	c := condition("cond_c", types.ConditionNoInteraction, 1)
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}
	h.contacts.err = errors.New("timeout")

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Triggered)
	assert.Nil(t, h.conds.get("cond_c").LastTriggered)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, types.ErrCodeTransientFetch, summary.Failures[0].Code)
}

func TestEvaluateAll_ReportsOnlyConfirmedDeliveries(t *testing.T) {
	c := condition("cond_d", types.ConditionNoInteraction, 1)
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}
	h.notifier.notified = ptr(1)

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, 1, summary.Triggered[0].ContactsNotified)
}

func TestEvaluateAll_DisabledNeverEvaluated(t *testing.T) {
	c := condition("cond_off", types.ConditionNoInteraction, 0)
	c.IsEnabled = false
	h := newHarness(c)
	h.signals.latest = &types.ActivityRecord{ID: "a", CreatedDate: testNow.Add(-2 * time.Hour)}

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Checked)
	assert.Empty(t, summary.Triggered)
	assert.Zero(t, h.signals.calls)
}

func TestEvaluateAll_ListFailureIsCatastrophic(t *testing.T) {
	h := newHarness()
	h.conds.listErr = types.NewAppError(types.ErrCodeInternalDB, "down", nil)

	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
	assert.Zero(t, summary.Checked)
	assert.Empty(t, h.metrics.runs)
}

func TestEvaluateAll_NoConditions(t *testing.T) {
	h := newHarness()
	summary, err := h.evaluator().EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Checked)
	assert.NotNil(t, summary.Triggered)
}
