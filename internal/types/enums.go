package types

import "strings"

// ConditionType identifies the rule family of an AlertCondition. The set is
// closed; evaluators switch over it exhaustively.
type ConditionType string

const (
	ConditionNoInteraction     ConditionType = "no_interaction"
	ConditionHighAnxiety       ConditionType = "high_anxiety"
	ConditionNightIncident     ConditionType = "night_incident"
	ConditionProlongedDistress ConditionType = "prolonged_distress"
)

// AllConditionTypes lists every supported condition type.
var AllConditionTypes = []ConditionType{
	ConditionNoInteraction,
	ConditionHighAnxiety,
	ConditionNightIncident,
	ConditionProlongedDistress,
}

// IsValid reports whether the condition type is one of the known values.
func (c ConditionType) IsValid() bool {
	for _, t := range AllConditionTypes {
		if c == t {
			return true
		}
	}
	return false
}

// ThresholdUnit qualifies the threshold of time-based conditions.
type ThresholdUnit string

const (
	UnitMinutes ThresholdUnit = "minutes"
	UnitHours   ThresholdUnit = "hours"
	UnitDays    ThresholdUnit = "days"
)

// Hours converts a threshold expressed in this unit to hours.
// An empty unit is interpreted as hours.
func (u ThresholdUnit) Hours(value float64) float64 {
	switch u {
	case UnitMinutes:
		return value / 60
	case UnitDays:
		return value * 24
	default:
		return value
	}
}

// IsValid reports whether the unit is known. The empty unit is accepted and
// read as hours.
func (u ThresholdUnit) IsValid() bool {
	switch u {
	case "", UnitMinutes, UnitHours, UnitDays:
		return true
	}
	return false
}

// ChannelType identifies a notification delivery method.
type ChannelType string

const (
	ChannelEmail           ChannelType = "email"
	ChannelSMS             ChannelType = "sms"
	ChannelPhoneCall       ChannelType = "phone_call"
	ChannelAppNotification ChannelType = "app_notification"
)

// IsValid reports whether the channel is one of the known delivery methods.
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPhoneCall, ChannelAppNotification:
		return true
	}
	return false
}

// Severity is a display label attached to conditions and alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Upper returns the label in upper case for message subjects.
func (s Severity) Upper() string {
	return strings.ToUpper(string(s))
}

// IsValid reports whether the severity is one of the known labels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertType categorizes the origin of a CaregiverAlert.
type AlertType string

const (
	AlertTypeBehaviorAnomaly    AlertType = "behavior_anomaly"
	AlertTypeConditionTriggered AlertType = "condition_triggered"
)

// IsValid reports whether t is usable as an alert type. Besides the two
// built-in types, caregiver-authored alerts may carry any non-blank type.
func (t AlertType) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// ActivityType values used by the signal store.
const (
	ActivityConversation     = "conversation"
	ActivityAnxietyDetection = "anxiety_detection"
)

// DeliveryStatus is the outcome of one contact/channel delivery attempt.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliverySkipped DeliveryStatus = "skipped"
	DeliveryFailed  DeliveryStatus = "failed"
)
