// Package alerts implements the caregiver-facing lifecycle of alerts and the
// registry of alert conditions.
//
// Alerts move from unread to read and from unresolved to resolved. Resolution
// is terminal: an alert is never reopened. Conditions are created and edited
// here, but their last_triggered timestamp belongs to the evaluator and cannot
// be written through this package.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"carewatch/internal/types"
)

// AlertStore is the persistence surface for caregiver alerts.
type AlertStore interface {
	Create(ctx context.Context, a *types.CaregiverAlert) error
	Get(ctx context.Context, id string) (*types.CaregiverAlert, error)
	List(ctx context.Context, f types.AlertFilter) ([]*types.CaregiverAlert, error)
	SetRead(ctx context.Context, id string, read bool) (*types.CaregiverAlert, error)
	Resolve(ctx context.Context, id string, now time.Time) (*types.CaregiverAlert, error)
	Delete(ctx context.Context, id string) error
}

// ConditionStore is the persistence surface for alert conditions.
type ConditionStore interface {
	List(ctx context.Context) ([]*types.AlertCondition, error)
	Get(ctx context.Context, id string) (*types.AlertCondition, error)
	Create(ctx context.Context, c *types.AlertCondition) error
	Update(ctx context.Context, c *types.AlertCondition) error
	Delete(ctx context.Context, id string) error
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Alerts     AlertStore
	Conditions ConditionStore
	Clock      types.Clock
	NewID      types.IDGenerator
	Logger     types.Logger
}

// Service applies lifecycle rules on top of the stores.
type Service struct {
	alerts     AlertStore
	conditions ConditionStore
	clock      types.Clock
	newID      types.IDGenerator
	logger     types.Logger
}

// NewService builds a Service. Clock, NewID and Logger default to the real
// clock, random UUIDs and the default slog logger.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = types.RealClock{}
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Logger == nil {
		d.Logger = types.NewSlogLogger(nil)
	}
	return &Service{
		alerts:     d.Alerts,
		conditions: d.Conditions,
		clock:      d.Clock,
		newID:      d.NewID,
		logger:     d.Logger.With("component", "alerts"),
	}
}

// --- Alerts ---

// ListAlerts returns alerts matching the filter.
func (s *Service) ListAlerts(ctx context.Context, f types.AlertFilter) ([]*types.CaregiverAlert, error) {
	if f.Severity != "" && !f.Severity.IsValid() {
		return nil, invalid(types.ErrCodeValidationRequest, "severity", "unknown severity")
	}
	return s.alerts.List(ctx, f)
}

// GetAlert returns one alert.
func (s *Service) GetAlert(ctx context.Context, id string) (*types.CaregiverAlert, error) {
	return s.alerts.Get(ctx, id)
}

// CreateAlert stores a manually authored alert. Any non-blank alert type is
// accepted; behavior_anomaly alerts are held to the analyzer's confidence
// cutoff (see CheckConfidence). The alert always starts unread and
// unresolved; ID and created_date are assigned here.
func (s *Service) CreateAlert(ctx context.Context, a *types.CaregiverAlert) (*types.CaregiverAlert, error) {
	if strings.TrimSpace(a.Title) == "" {
		return nil, invalid(types.ErrCodeValidationMissingField, "title", "title is required")
	}
	a.AlertType = types.AlertType(strings.TrimSpace(string(a.AlertType)))
	if !a.AlertType.IsValid() {
		return nil, invalid(types.ErrCodeValidationMissingField, "alert_type", "alert_type is required")
	}
	if a.Severity == "" {
		a.Severity = types.SeverityMedium
	}
	if !a.Severity.IsValid() {
		return nil, invalid(types.ErrCodeValidationRequest, "severity", "unknown severity")
	}
	if err := CheckConfidence(a.AlertType, a.ConfidenceScore); err != nil {
		return nil, err
	}

	a.ID = s.newID()
	a.CreatedDate = s.clock.Now()
	a.IsRead = false
	a.Resolved = false
	a.ResolvedAt = nil
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("alert created", "alert_id", a.ID, "alert_type", a.AlertType, "severity", a.Severity)
	return a, nil
}

// MarkRead flags the alert as read. Marking an already-read alert is a no-op.
func (s *Service) MarkRead(ctx context.Context, id string) (*types.CaregiverAlert, error) {
	return s.alerts.SetRead(ctx, id, true)
}

// Resolve closes the alert. The first resolution time is kept when the alert
// was already resolved, and is_read is unaffected.
func (s *Service) Resolve(ctx context.Context, id string) (*types.CaregiverAlert, error) {
	a, err := s.alerts.Resolve(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("alert resolved", "alert_id", id)
	return a, nil
}

// UpdateAlert applies a partial lifecycle patch. Moving a resolved alert back
// to unresolved fails with conflict_alert_resolved and changes nothing.
func (s *Service) UpdateAlert(ctx context.Context, id string, p types.AlertPatch) (*types.CaregiverAlert, error) {
	current, err := s.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Resolved != nil && !*p.Resolved && current.Resolved {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeConflictResolved,
			"a resolved alert cannot be reopened",
			nil,
			map[string]any{"alert_id": id},
		)
	}

	if p.IsRead != nil && *p.IsRead != current.IsRead {
		if current, err = s.alerts.SetRead(ctx, id, *p.IsRead); err != nil {
			return nil, err
		}
	}
	if p.Resolved != nil && *p.Resolved {
		if current, err = s.Resolve(ctx, id); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// DeleteAlert permanently removes an alert.
func (s *Service) DeleteAlert(ctx context.Context, id string) error {
	return s.alerts.Delete(ctx, id)
}

// --- Conditions ---

// ConditionInput carries the caregiver-editable fields of a condition.
// Pointer fields distinguish "not supplied" from zero values.
type ConditionInput struct {
	ConditionName      string              `json:"condition_name" validate:"required,max=200"`
	ConditionType      types.ConditionType `json:"condition_type" validate:"required"`
	IsEnabled          *bool               `json:"is_enabled,omitempty"`
	ThresholdValue     float64             `json:"threshold_value"`
	ThresholdUnit      types.ThresholdUnit `json:"threshold_unit,omitempty"`
	CooldownMinutes    *int                `json:"cooldown_minutes,omitempty"`
	NotifyContacts     []string            `json:"notify_contacts"`
	NotificationMethod types.ChannelList   `json:"notification_method"`
	Severity           types.Severity      `json:"severity,omitempty"`
}

// Validate checks the input against the condition registry rules and returns
// the first violation as a validation AppError.
func (in ConditionInput) Validate() error {
	if strings.TrimSpace(in.ConditionName) == "" {
		return invalid(types.ErrCodeValidationMissingField, "condition_name", "condition_name is required")
	}
	if !in.ConditionType.IsValid() {
		return invalid(types.ErrCodeValidationConditionType, "condition_type", "unknown condition type")
	}
	if in.ThresholdValue < 0 {
		return invalid(types.ErrCodeValidationThresholdRange, "threshold_value", "threshold_value must be >= 0")
	}
	if !in.ThresholdUnit.IsValid() {
		return invalid(types.ErrCodeValidationThresholdUnit, "threshold_unit", "threshold_unit must be minutes, hours or days")
	}
	if in.CooldownMinutes != nil && *in.CooldownMinutes < 1 {
		return invalid(types.ErrCodeValidationThresholdRange, "cooldown_minutes", "cooldown_minutes must be >= 1")
	}
	for i, ch := range in.NotificationMethod {
		if !ch.IsValid() {
			return types.NewAppErrorWithDetails(
				types.ErrCodeValidationChannel,
				"unknown notification method",
				nil,
				map[string]any{"field": "notification_method", "index": i, "value": string(ch)},
			)
		}
	}
	if in.Severity != "" && !in.Severity.IsValid() {
		return invalid(types.ErrCodeValidationRequest, "severity", "unknown severity")
	}
	return nil
}

// apply copies the input onto c, filling defaults for unset fields.
func (in ConditionInput) apply(c *types.AlertCondition) {
	c.ConditionName = strings.TrimSpace(in.ConditionName)
	c.ConditionType = in.ConditionType
	c.IsEnabled = true
	if in.IsEnabled != nil {
		c.IsEnabled = *in.IsEnabled
	}
	c.ThresholdValue = in.ThresholdValue
	c.ThresholdUnit = in.ThresholdUnit
	c.CooldownMinutes = types.DefaultCooldownMinutes
	if in.CooldownMinutes != nil {
		c.CooldownMinutes = *in.CooldownMinutes
	}
	c.NotifyContacts = in.NotifyContacts
	if c.NotifyContacts == nil {
		c.NotifyContacts = []string{}
	}
	c.NotificationMethod = in.NotificationMethod
	if c.NotificationMethod == nil {
		c.NotificationMethod = types.ChannelList{}
	}
	c.Severity = in.Severity
	if c.Severity == "" {
		c.Severity = types.SeverityMedium
	}
}

// ListConditions returns every condition, enabled or not.
func (s *Service) ListConditions(ctx context.Context) ([]*types.AlertCondition, error) {
	return s.conditions.List(ctx)
}

// GetCondition returns one condition.
func (s *Service) GetCondition(ctx context.Context, id string) (*types.AlertCondition, error) {
	return s.conditions.Get(ctx, id)
}

// CreateCondition validates and stores a new condition.
func (s *Service) CreateCondition(ctx context.Context, in ConditionInput) (*types.AlertCondition, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &types.AlertCondition{ID: s.newID(), CreatedDate: s.clock.Now()}
	in.apply(c)
	if err := s.conditions.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("alert condition created",
		"condition_id", c.ID,
		"condition_type", c.ConditionType,
		"enabled", c.IsEnabled,
	)
	return c, nil
}

// UpdateCondition replaces the editable fields of an existing condition.
// The stored last_triggered value is preserved.
func (s *Service) UpdateCondition(ctx context.Context, id string, in ConditionInput) (*types.AlertCondition, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.conditions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.conditions.Update(ctx, c); err != nil {
		return nil, err
	}
	c.UpdatedDate = s.clock.Now()
	return c, nil
}

// DeleteCondition removes a condition.
func (s *Service) DeleteCondition(ctx context.Context, id string) error {
	if err := s.conditions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("alert condition deleted", "condition_id", id)
	return nil
}

// CheckConfidence validates the confidence_score of a new alert of type t.
// Scores must lie in [0, 1], and behavior_anomaly alerts must carry one of at
// least types.MinAnomalyConfidence.
func CheckConfidence(t types.AlertType, score *float64) error {
	if score != nil && (*score < 0 || *score > 1) {
		return invalid(types.ErrCodeValidationThresholdRange, "confidence_score", "confidence_score must be within [0, 1]")
	}
	if t != types.AlertTypeBehaviorAnomaly {
		return nil
	}
	if score == nil {
		return invalid(types.ErrCodeValidationMissingField, "confidence_score", "confidence_score is required for behavior_anomaly alerts")
	}
	if *score < types.MinAnomalyConfidence {
		return invalid(types.ErrCodeValidationThresholdRange, "confidence_score",
			fmt.Sprintf("behavior_anomaly alerts need confidence_score >= %.1f", types.MinAnomalyConfidence))
	}
	return nil
}

func invalid(code types.ErrorCode, field, msg string) error {
	return types.NewAppErrorWithDetails(code, msg, nil, map[string]any{"field": field})
}
