package core

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"carewatch/internal/types"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// mockLogger captures log calls. Safe for concurrent use.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *mockLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *mockLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *mockLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *mockLogger) With(...any) types.Logger      { return l }

func (l *mockLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type sentMessage struct {
	channel types.ChannelType
	address string
	subject string
	body    string
}

// mockTransport records sends and fails for addresses in failFor.
type mockTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
}

func (t *mockTransport) Send(_ context.Context, channel types.ChannelType, address, subject, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failFor[address]; ok {
		return err
	}
	t.sent = append(t.sent, sentMessage{channel, address, subject, body})
	return nil
}

// mockMetrics counts recorded delivery results per channel.
type mockMetrics struct {
	mu         sync.Mutex
	deliveries map[types.ChannelType][]MetricResult
	latencies  int
	runs       []RunStats
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{deliveries: map[types.ChannelType][]MetricResult{}}
}

func (m *mockMetrics) RecordDelivery(_ context.Context, ch types.ChannelType, r MetricResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[ch] = append(m.deliveries[ch], r)
}

func (m *mockMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *mockMetrics) RecordRun(_ context.Context, _ string, stats RunStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, stats)
}

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// mockSQSSender records all SendMessage calls for verification.
type mockSQSSender struct {
	calls     []*sqs.SendMessageInput
	returnErr error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &sqs.SendMessageOutput{}, nil
}
