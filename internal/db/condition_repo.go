package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"carewatch/internal/types"
)

const conditionColumns = `id, condition_name, condition_type, is_enabled, threshold_value,
	threshold_unit, cooldown_minutes, last_triggered, notify_contacts,
	notification_method, severity, created_date, updated_date`

// ConditionRepository provides data access for the alert_conditions table.
type ConditionRepository struct {
	db DBTX
}

// NewConditionRepository creates a new ConditionRepository backed by the
// given database connection (pool or transaction).
func NewConditionRepository(db DBTX) *ConditionRepository {
	return &ConditionRepository{db: db}
}

func scanCondition(row pgx.Row) (*types.AlertCondition, error) {
	var c types.AlertCondition
	err := row.Scan(
		&c.ID,
		&c.ConditionName,
		&c.ConditionType,
		&c.IsEnabled,
		&c.ThresholdValue,
		&c.ThresholdUnit,
		&c.CooldownMinutes,
		&c.LastTriggered,
		&c.NotifyContacts,
		&c.NotificationMethod,
		&c.Severity,
		&c.CreatedDate,
		&c.UpdatedDate,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListEnabled returns every enabled condition ordered by creation time.
// Disabled conditions are never returned to the evaluator.
func (r *ConditionRepository) ListEnabled(ctx context.Context) ([]*types.AlertCondition, error) {
	return r.list(ctx, `SELECT `+conditionColumns+` FROM alert_conditions
		WHERE is_enabled = TRUE ORDER BY created_date, id`)
}

// List returns all conditions, enabled or not.
func (r *ConditionRepository) List(ctx context.Context) ([]*types.AlertCondition, error) {
	return r.list(ctx, `SELECT `+conditionColumns+` FROM alert_conditions ORDER BY created_date, id`)
}

func (r *ConditionRepository) list(ctx context.Context, query string) ([]*types.AlertCondition, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert conditions", err)
	}
	defer rows.Close()

	var out []*types.AlertCondition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert condition", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert conditions", err)
	}
	return out, nil
}

// Get returns one condition by ID.
func (r *ConditionRepository) Get(ctx context.Context, id string) (*types.AlertCondition, error) {
	c, err := scanCondition(r.db.QueryRow(ctx,
		`SELECT `+conditionColumns+` FROM alert_conditions WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, types.ErrCodeNotFoundCondition, "alert condition")
	}
	return c, nil
}

// Create inserts a condition. The caller sets the ID. last_triggered always
// starts NULL regardless of the input.
func (r *ConditionRepository) Create(ctx context.Context, c *types.AlertCondition) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO alert_conditions
		 (id, condition_name, condition_type, is_enabled, threshold_value,
		  threshold_unit, cooldown_minutes, notify_contacts, notification_method,
		  severity, created_date, updated_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()), COALESCE($11, NOW()))
		 RETURNING created_date, updated_date`,
		c.ID,
		c.ConditionName,
		string(c.ConditionType),
		c.IsEnabled,
		c.ThresholdValue,
		string(c.ThresholdUnit),
		c.CooldownMinutes,
		c.NotifyContacts,
		c.NotificationMethod,
		string(c.Severity),
		nilIfZeroTime(c.CreatedDate),
	).Scan(&c.CreatedDate, &c.UpdatedDate)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert condition", err)
	}
	c.LastTriggered = nil
	return nil
}

// Update overwrites the caregiver-editable fields of a condition.
// last_triggered is owned by the evaluator and is not touched.
func (r *ConditionRepository) Update(ctx context.Context, c *types.AlertCondition) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_conditions SET
			condition_name = $2,
			condition_type = $3,
			is_enabled = $4,
			threshold_value = $5,
			threshold_unit = $6,
			cooldown_minutes = $7,
			notify_contacts = $8,
			notification_method = $9,
			severity = $10,
			updated_date = NOW()
		 WHERE id = $1`,
		c.ID,
		c.ConditionName,
		string(c.ConditionType),
		c.IsEnabled,
		c.ThresholdValue,
		string(c.ThresholdUnit),
		c.CooldownMinutes,
		c.NotifyContacts,
		c.NotificationMethod,
		string(c.Severity),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update alert condition", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCondition, "alert condition not found", nil)
	}
	return nil
}

// Delete removes a condition.
func (r *ConditionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM alert_conditions WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete alert condition", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCondition, "alert condition not found", nil)
	}
	return nil
}

// ClaimTrigger atomically moves last_triggered from prev to now.
// It returns false when another run already moved the timestamp (the stored
// value no longer equals prev) or when now would move it backward.
// now is truncated to the column's microsecond precision so a later claim can
// compare against the exact stored value.
func (r *ConditionRepository) ClaimTrigger(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error) {
	now = now.UTC().Truncate(time.Microsecond)
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_conditions
		 SET last_triggered = $3
		 WHERE id = $1
		   AND is_enabled = TRUE
		   AND last_triggered IS NOT DISTINCT FROM $2
		   AND (last_triggered IS NULL OR last_triggered < $3)`,
		id,
		prev,
		now,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalPersistence, "failed to record condition trigger", err)
	}
	return tag.RowsAffected() == 1, nil
}
