package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"carewatch/internal/types"
)

const alertColumns = `id, alert_type, severity, title, message, pattern_data,
	confidence_score, is_read, resolved, resolved_at, created_date`

// maxAlertListLimit caps a single listing.
const maxAlertListLimit = 500

// AlertRepository provides data access for the caregiver_alerts table.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

func scanAlert(row pgx.Row) (*types.CaregiverAlert, error) {
	var a types.CaregiverAlert
	err := row.Scan(
		&a.ID,
		&a.AlertType,
		&a.Severity,
		&a.Title,
		&a.Message,
		&a.PatternData,
		&a.ConfidenceScore,
		&a.IsRead,
		&a.Resolved,
		&a.ResolvedAt,
		&a.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new alert. The caller sets the ID. New alerts always start
// unread and unresolved.
func (r *AlertRepository) Create(ctx context.Context, a *types.CaregiverAlert) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO caregiver_alerts
		 (id, alert_type, severity, title, message, pattern_data,
		  confidence_score, is_read, resolved, created_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, COALESCE($8, NOW()))
		 RETURNING created_date`,
		a.ID,
		string(a.AlertType),
		string(a.Severity),
		a.Title,
		a.Message,
		a.PatternData,
		a.ConfidenceScore,
		nilIfZeroTime(a.CreatedDate),
	).Scan(&a.CreatedDate)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create caregiver alert", err)
	}
	a.IsRead = false
	a.Resolved = false
	a.ResolvedAt = nil
	return nil
}

// Get returns one alert by ID.
func (r *AlertRepository) Get(ctx context.Context, id string) (*types.CaregiverAlert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM caregiver_alerts WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, types.ErrCodeNotFoundAlert, "caregiver alert")
	}
	return a, nil
}

// List returns alerts matching the filter ordered by created_date.
func (r *AlertRepository) List(ctx context.Context, f types.AlertFilter) ([]*types.CaregiverAlert, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.IsRead != nil {
		add("is_read = $%d", *f.IsRead)
	}
	if f.Resolved != nil {
		add("resolved = $%d", *f.Resolved)
	}
	if f.AlertType != "" {
		add("alert_type = $%d", string(f.AlertType))
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}

	query := `SELECT ` + alertColumns + ` FROM caregiver_alerts`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	if f.SortDesc {
		query += ` ORDER BY created_date DESC, id DESC`
	} else {
		query += ` ORDER BY created_date ASC, id ASC`
	}

	limit := f.Limit
	if limit <= 0 || limit > maxAlertListLimit {
		limit = maxAlertListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list caregiver alerts", err)
	}
	defer rows.Close()

	out := make([]*types.CaregiverAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan caregiver alert", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating caregiver alerts", err)
	}
	return out, nil
}

// SetRead sets the is_read flag and returns the updated alert.
func (r *AlertRepository) SetRead(ctx context.Context, id string, read bool) (*types.CaregiverAlert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx,
		`UPDATE caregiver_alerts SET is_read = $2 WHERE id = $1
		 RETURNING `+alertColumns, id, read))
	if err != nil {
		return nil, notFoundOr(err, types.ErrCodeNotFoundAlert, "caregiver alert")
	}
	return a, nil
}

// Resolve marks the alert resolved. resolved_at keeps its first value when
// the alert was already resolved. is_read is left untouched.
func (r *AlertRepository) Resolve(ctx context.Context, id string, now time.Time) (*types.CaregiverAlert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx,
		`UPDATE caregiver_alerts
		 SET resolved = TRUE, resolved_at = COALESCE(resolved_at, $2)
		 WHERE id = $1
		 RETURNING `+alertColumns, id, now))
	if err != nil {
		return nil, notFoundOr(err, types.ErrCodeNotFoundAlert, "caregiver alert")
	}
	return a, nil
}

// Delete permanently removes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM caregiver_alerts WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete caregiver alert", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "caregiver alert not found", nil)
	}
	return nil
}

// AlertBatchWriter inserts a set of alerts atomically.
type AlertBatchWriter struct {
	tx *TxManager
}

// NewAlertBatchWriter creates an AlertBatchWriter over tx.
func NewAlertBatchWriter(tx *TxManager) *AlertBatchWriter {
	return &AlertBatchWriter{tx: tx}
}

// CreateAll inserts every alert in one transaction. Either all alerts are
// stored or none are.
func (w *AlertBatchWriter) CreateAll(ctx context.Context, alerts []*types.CaregiverAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	err := w.tx.RunInTx(ctx, func(ctx context.Context, tx DBTX) error {
		repo := NewAlertRepository(tx)
		for _, a := range alerts {
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var ae *types.AppError
		if errors.As(err, &ae) {
			return types.NewAppError(types.ErrCodeInternalPersistence, ae.Message, err)
		}
		return types.NewAppError(types.ErrCodeInternalPersistence, "failed to store alerts", err)
	}
	return nil
}
