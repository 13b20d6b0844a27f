// Package core fans caregiver notifications out to emergency contacts over
// their configured channels, and carries the delivery observability shared by
// the evaluator and analyzer: CloudWatch metrics and the alert event stream.
package core

import (
	"context"
	"time"

	"carewatch/internal/types"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// DeliveryResult is the outcome of one (contact, channel) attempt.
type DeliveryResult struct {
	ContactID string               `json:"contact_id"`
	Channel   types.ChannelType    `json:"channel"`
	Status    types.DeliveryStatus `json:"status"`
	Reason    string               `json:"reason,omitempty"`
}

// DispatchResult summarizes a fan-out. ContactsNotified counts contacts with
// at least one sent delivery.
type DispatchResult struct {
	ContactsNotified int
	Deliveries       []DeliveryResult
}

// Channel delivers a message to one contact. A channel returns
// DeliverySkipped with a reason when it cannot or does not deliver, and an
// error only for a failed attempt.
type Channel interface {
	Type() types.ChannelType
	Deliver(ctx context.Context, contact types.EmergencyContact, msg Message) (types.DeliveryStatus, string, error)
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricSkipped MetricResult = "skipped"
)

func metricResultFor(s types.DeliveryStatus) MetricResult {
	switch s {
	case types.DeliverySent:
		return MetricSuccess
	case types.DeliverySkipped:
		return MetricSkipped
	default:
		return MetricFailed
	}
}

// Metrics abstracts the telemetry emitted by notification and run pipelines.
type Metrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordRun(ctx context.Context, task string, stats RunStats)
}

// RunStats are the counters reported at the end of an evaluator or analyzer run.
type RunStats struct {
	Checked   int
	Triggered int
	Failures  int
}

// NopMetrics discards everything. Used when metrics are disabled.
type NopMetrics struct{}

func (NopMetrics) RecordDelivery(context.Context, types.ChannelType, MetricResult) {}
func (NopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}
func (NopMetrics) RecordRun(context.Context, string, RunStats)                     {}
