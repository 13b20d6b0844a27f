package monitor

import (
	"context"
	"time"

	"carewatch/internal/notifications/core"
	"carewatch/internal/types"
)

// ConditionStore is the subset of the condition repository the evaluator uses.
type ConditionStore interface {
	ListEnabled(ctx context.Context) ([]*types.AlertCondition, error)
	// ClaimTrigger moves last_triggered from prev to now. It returns false
	// when another writer got there first.
	ClaimTrigger(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error)
}

// SignalReader reads the care signal windows rules are evaluated against.
type SignalReader interface {
	LatestActivity(ctx context.Context) (*types.ActivityRecord, error)
	RecentActivitiesByType(ctx context.Context, activityType string, limit int) ([]types.ActivityRecord, error)
	RecentMoodSamples(ctx context.Context, limit, offset int) ([]types.MoodSample, error)
	NightIncidentsSince(ctx context.Context, severities []types.Severity, since time.Time) ([]types.NightIncident, error)
}

// ContactReader resolves contact ids.
type ContactReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]types.EmergencyContact, error)
}

// AlertWriter persists caregiver alerts.
type AlertWriter interface {
	Create(ctx context.Context, a *types.CaregiverAlert) error
}

// Notifier fans a message out to contacts.
type Notifier interface {
	Dispatch(ctx context.Context, contacts []types.EmergencyContact, channels []types.ChannelType, msg core.Message) core.DispatchResult
}
