package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the notification jobs stream.
	StreamName = "NOTIFICATIONS"

	// SubjectPrefix is the prefix for all notification subjects.
	SubjectPrefix = "notify"

	// ConsumerName is the durable consumer for the delivery worker.
	ConsumerName = "notification-worker"
)

// StreamManager handles the notification stream: handlers publish jobs,
// the background worker consumes them so delivery never rides the
// request path.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the notification stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Notification jobs are disposable: short retention, modest cap.
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024, // 1GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Hot-lead notification jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// HotLeadSubject returns the subject for a tenant's hot-lead jobs.
func HotLeadSubject(tenantID string) string {
	return fmt.Sprintf("%s.hotlead.%s", SubjectPrefix, tenantID)
}

// Publish publishes a job payload to the stream.
func (m *StreamManager) Publish(ctx context.Context, subject string, data []byte) (uint64, error) {
	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish job: %w", err)
	}
	return ack.Sequence, nil
}

// Consume attaches a durable consumer and invokes handler for every job.
// Jobs are acked regardless of handler outcome: delivery is best-effort
// and a failed webhook is dropped, not retried forever.
func (m *StreamManager) Consume(ctx context.Context, handler func(data []byte)) (jetstream.ConsumeContext, error) {
	js := m.client.JetStream()

	consumer, err := js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		FilterSubject: fmt.Sprintf("%s.>", SubjectPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		handler(msg.Data())
		msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	return cc, nil
}
