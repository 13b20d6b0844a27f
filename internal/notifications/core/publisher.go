package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"carewatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertEvent is published whenever a caregiver alert is raised, so that
// downstream consumers (dashboards, push gateways) can react without polling.
type AlertEvent struct {
	EventID          string          `json:"event_id"`
	AlertID          string          `json:"alert_id,omitempty"`
	ConditionID      string          `json:"condition_id,omitempty"`
	AlertType        types.AlertType `json:"alert_type"`
	Severity         types.Severity  `json:"severity"`
	Title            string          `json:"title"`
	ContactsNotified int             `json:"contacts_notified"`
	OccurredAt       time.Time       `json:"occurred_at"`
	RequestID        string          `json:"request_id,omitempty"`
}

// EventPublisher is the sink the evaluator and analyzer publish to.
type EventPublisher interface {
	Publish(ctx context.Context, event AlertEvent) error
}

// AlertEventPublisher sends AlertEvents to an SQS queue as JSON.
type AlertEventPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

// NewAlertEventPublisher creates a publisher targeting queueURL.
func NewAlertEventPublisher(client SQSSender, queueURL string, logger types.Logger) *AlertEventPublisher {
	return &AlertEventPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes the event and sends it. The request ID from ctx is
// stamped on the event when the caller did not set one.
func (p *AlertEventPublisher) Publish(ctx context.Context, event AlertEvent) error {
	if event.RequestID == "" {
		event.RequestID = types.GetRequestID(ctx)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("alert event publisher: failed to marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"alert_type": {DataType: aws.String("String"), StringValue: aws.String(string(event.AlertType))},
			"severity":   {DataType: aws.String("String"), StringValue: aws.String(string(event.Severity))},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("alert event publisher: failed to send message to %s: %w", p.queueURL, err)
	}

	p.logger.Info("alert event published",
		"event_id", event.EventID,
		"alert_id", event.AlertID,
		"alert_type", string(event.AlertType),
	)
	return nil
}

// NopPublisher drops events. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AlertEvent) error { return nil }
