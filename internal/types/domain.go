package types

import (
	"time"
)

// DefaultCooldownMinutes applies when a condition is stored without a cooldown.
const DefaultCooldownMinutes = 30

// MinAnomalyConfidence is the lowest confidence a behavior_anomaly alert may
// carry, whether produced by analysis or created by hand.
const MinAnomalyConfidence = 0.6

// AlertCondition is a caregiver-authored rule evaluated against care signals.
// LastTriggered is written only by the evaluator and never moves backward.
type AlertCondition struct {
	ID                 string        `json:"id" db:"id"`
	ConditionName      string        `json:"condition_name" db:"condition_name"`
	ConditionType      ConditionType `json:"condition_type" db:"condition_type"`
	IsEnabled          bool          `json:"is_enabled" db:"is_enabled"`
	ThresholdValue     float64       `json:"threshold_value" db:"threshold_value"`
	ThresholdUnit      ThresholdUnit `json:"threshold_unit,omitempty" db:"threshold_unit"`
	CooldownMinutes    int           `json:"cooldown_minutes" db:"cooldown_minutes"`
	LastTriggered      *time.Time    `json:"last_triggered,omitempty" db:"last_triggered"`
	NotifyContacts     []string      `json:"notify_contacts" db:"notify_contacts"`
	NotificationMethod ChannelList   `json:"notification_method" db:"notification_method"`
	Severity           Severity      `json:"severity" db:"severity"`

	CreatedDate time.Time `json:"created_date" db:"created_date"`
	UpdatedDate time.Time `json:"updated_date" db:"updated_date"`
}

// EffectiveCooldown returns the cooldown in minutes, substituting the default
// for unset or non-positive values.
func (c *AlertCondition) EffectiveCooldown() int {
	if c.CooldownMinutes <= 0 {
		return DefaultCooldownMinutes
	}
	return c.CooldownMinutes
}

// CaregiverAlert is a persisted notice shown to caregivers.
type CaregiverAlert struct {
	ID              string      `json:"id" db:"id"`
	AlertType       AlertType   `json:"alert_type" db:"alert_type"`
	Severity        Severity    `json:"severity" db:"severity"`
	Title           string      `json:"title" db:"title"`
	Message         string      `json:"message" db:"message"`
	PatternData     PatternData `json:"pattern_data,omitempty" db:"pattern_data"`
	ConfidenceScore *float64    `json:"confidence_score,omitempty" db:"confidence_score"`
	IsRead          bool        `json:"is_read" db:"is_read"`
	Resolved        bool        `json:"resolved" db:"resolved"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedDate     time.Time   `json:"created_date" db:"created_date"`
}

// EmergencyContact is a person who can receive caregiver notifications.
type EmergencyContact struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email,omitempty" db:"email"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	IsPrimary bool   `json:"is_primary" db:"is_primary"`
}

// ActivityRecord is a logged interaction from the companion.
type ActivityRecord struct {
	ID           string    `json:"id" db:"id"`
	ActivityType string    `json:"activity_type" db:"activity_type"`
	AnxietyLevel *float64  `json:"anxiety_level,omitempty" db:"anxiety_level"`
	CreatedDate  time.Time `json:"created_date" db:"created_date"`
}

// MoodSample is a self-reported or detected mood entry.
type MoodSample struct {
	ID           string    `json:"id" db:"id"`
	AnxietyLevel *float64  `json:"anxiety_level,omitempty" db:"anxiety_level"`
	Mood         string    `json:"mood,omitempty" db:"mood"`
	CreatedDate  time.Time `json:"created_date" db:"created_date"`
}

// NightIncident is a nighttime event recorded by the companion.
type NightIncident struct {
	ID           string    `json:"id" db:"id"`
	IncidentType string    `json:"incident_type" db:"incident_type"`
	Severity     Severity  `json:"severity" db:"severity"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// ConversationSample carries the length of one conversation.
type ConversationSample struct {
	ID           string    `json:"id" db:"id"`
	MessageCount int       `json:"message_count" db:"message_count"`
	CreatedDate  time.Time `json:"created_date" db:"created_date"`
}

// AlertFilter narrows alert listings. Nil fields are not applied.
type AlertFilter struct {
	IsRead    *bool
	Resolved  *bool
	AlertType AlertType
	Severity  Severity
	SortDesc  bool
	Limit     int
}

// AlertPatch carries the mutable lifecycle flags of an alert.
type AlertPatch struct {
	IsRead   *bool `json:"is_read,omitempty"`
	Resolved *bool `json:"resolved,omitempty"`
}
