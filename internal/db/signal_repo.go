package db

import (
	"context"
	"time"

	"carewatch/internal/types"
)

// SignalRepository reads the care-activity tables written by the companion
// app: activity_logs, mood_entries, night_incidents and conversations.
// All methods are read-only.
type SignalRepository struct {
	db DBTX
}

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(db DBTX) *SignalRepository {
	return &SignalRepository{db: db}
}

// LatestActivity returns the most recent activity record of any type, or nil
// when no activity has ever been recorded.
func (r *SignalRepository) LatestActivity(ctx context.Context) (*types.ActivityRecord, error) {
	recs, err := r.queryActivities(ctx,
		`SELECT id, activity_type, anxiety_level, created_date
		 FROM activity_logs ORDER BY created_date DESC LIMIT 1`)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// RecentActivitiesByType returns up to limit records of the given type, newest first.
func (r *SignalRepository) RecentActivitiesByType(ctx context.Context, activityType string, limit int) ([]types.ActivityRecord, error) {
	return r.queryActivities(ctx,
		`SELECT id, activity_type, anxiety_level, created_date
		 FROM activity_logs WHERE activity_type = $1
		 ORDER BY created_date DESC LIMIT $2`,
		activityType, limit)
}

func (r *SignalRepository) queryActivities(ctx context.Context, query string, args ...any) ([]types.ActivityRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to query activity logs", err)
	}
	defer rows.Close()

	var out []types.ActivityRecord
	for rows.Next() {
		var a types.ActivityRecord
		if err := rows.Scan(&a.ID, &a.ActivityType, &a.AnxietyLevel, &a.CreatedDate); err != nil {
			return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to scan activity log", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "error iterating activity logs", err)
	}
	return out, nil
}

// CountActivitiesSince counts activity records created at or after since.
func (r *SignalRepository) CountActivitiesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE created_date >= $1`, since,
	).Scan(&n)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeTransientFetch, "failed to count activity logs", err)
	}
	return n, nil
}

// RecentMoodSamples returns mood samples newest first, skipping offset rows.
// RecentMoodSamples(ctx, 10, 0) is the latest ten; (40, 10) is samples 11..50.
func (r *SignalRepository) RecentMoodSamples(ctx context.Context, limit, offset int) ([]types.MoodSample, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, anxiety_level, COALESCE(mood, ''), created_date
		 FROM mood_entries ORDER BY created_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to query mood entries", err)
	}
	defer rows.Close()

	var out []types.MoodSample
	for rows.Next() {
		var m types.MoodSample
		if err := rows.Scan(&m.ID, &m.AnxietyLevel, &m.Mood, &m.CreatedDate); err != nil {
			return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to scan mood entry", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "error iterating mood entries", err)
	}
	return out, nil
}

// NightIncidentsSince returns incidents with one of the given severities whose
// timestamp is at or after since, newest first.
func (r *SignalRepository) NightIncidentsSince(ctx context.Context, severities []types.Severity, since time.Time) ([]types.NightIncident, error) {
	sev := make([]string, len(severities))
	for i, s := range severities {
		sev[i] = string(s)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, incident_type, severity, timestamp
		 FROM night_incidents
		 WHERE severity = ANY($1) AND timestamp >= $2
		 ORDER BY timestamp DESC`,
		sev, since)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to query night incidents", err)
	}
	defer rows.Close()

	var out []types.NightIncident
	for rows.Next() {
		var n types.NightIncident
		if err := rows.Scan(&n.ID, &n.IncidentType, &n.Severity, &n.Timestamp); err != nil {
			return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to scan night incident", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "error iterating night incidents", err)
	}
	return out, nil
}

// CountNightIncidents counts incidents in [from, to). A zero from means no
// lower bound.
func (r *SignalRepository) CountNightIncidents(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM night_incidents
		 WHERE ($1::timestamptz IS NULL OR timestamp >= $1) AND timestamp < $2`,
		nilIfZeroTime(from), to,
	).Scan(&n)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeTransientFetch, "failed to count night incidents", err)
	}
	return n, nil
}

// RecentConversations returns up to limit conversations, newest first.
func (r *SignalRepository) RecentConversations(ctx context.Context, limit int) ([]types.ConversationSample, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, message_count, created_date
		 FROM conversations ORDER BY created_date DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to query conversations", err)
	}
	defer rows.Close()

	var out []types.ConversationSample
	for rows.Next() {
		var c types.ConversationSample
		if err := rows.Scan(&c.ID, &c.MessageCount, &c.CreatedDate); err != nil {
			return nil, types.NewAppError(types.ErrCodeTransientFetch, "failed to scan conversation", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeTransientFetch, "error iterating conversations", err)
	}
	return out, nil
}
