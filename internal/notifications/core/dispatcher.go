package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"carewatch/internal/types"
)

const defaultDispatchConcurrency = 4

// Dispatcher fans a message out to every (contact, channel) pair.
type Dispatcher struct {
	channels    map[types.ChannelType]Channel
	metrics     Metrics
	logger      types.Logger
	concurrency int
}

// NewDispatcher creates a Dispatcher over the given channels. A nil metrics
// sink disables metrics, a nil logger writes through slog.Default, and
// concurrency <= 0 uses the default.
func NewDispatcher(channels []Channel, metrics Metrics, logger types.Logger, concurrency int) *Dispatcher {
	byType := make(map[types.ChannelType]Channel, len(channels))
	for _, ch := range channels {
		byType[ch.Type()] = ch
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	if concurrency <= 0 {
		concurrency = defaultDispatchConcurrency
	}
	return &Dispatcher{
		channels:    byType,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Dispatch attempts every pair independently. Failures are logged and
// recorded in the result; Dispatch itself never fails. Deliveries are ordered
// contact-major in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, contacts []types.EmergencyContact, channels []types.ChannelType, msg Message) DispatchResult {
	deliveries := make([]DeliveryResult, len(contacts)*len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, contact := range contacts {
		for j, channel := range channels {
			idx := i*len(channels) + j
			g.Go(func() error {
				deliveries[idx] = d.deliver(gctx, contact, channel, msg)
				return nil
			})
		}
	}
	_ = g.Wait()

	notified := 0
	for i := range contacts {
		for j := range channels {
			if deliveries[i*len(channels)+j].Status == types.DeliverySent {
				notified++
				break
			}
		}
	}

	return DispatchResult{ContactsNotified: notified, Deliveries: deliveries}
}

func (d *Dispatcher) deliver(ctx context.Context, contact types.EmergencyContact, channel types.ChannelType, msg Message) DeliveryResult {
	result := DeliveryResult{ContactID: contact.ID, Channel: channel}

	ch, ok := d.channels[channel]
	if !ok {
		result.Status = types.DeliveryFailed
		result.Reason = "unsupported channel"
		d.logger.Warn("unsupported notification channel",
			"contact_id", contact.ID,
			"channel", string(channel),
		)
		d.metrics.RecordDelivery(ctx, channel, MetricFailed)
		return result
	}

	start := time.Now()
	status, reason, err := ch.Deliver(ctx, contact, msg)
	d.metrics.RecordLatency(ctx, channel, time.Since(start))

	result.Status = status
	result.Reason = reason
	if err != nil {
		result.Status = types.DeliveryFailed
		result.Reason = err.Error()
		d.logger.Error("notification delivery failed",
			"code", string(types.ErrCodeNotificationDelivery),
			"contact_id", contact.ID,
			"to", types.RedactAddress(contact.Email),
			"channel", string(channel),
			"error", err.Error(),
		)
	}
	d.metrics.RecordDelivery(ctx, channel, metricResultFor(result.Status))
	return result
}
