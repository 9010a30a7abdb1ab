package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	natsclient "github.com/leadline-ai/bot-platform/internal/nats"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// Dispatcher hands hot-lead jobs to the delivery path. The orchestrator
// only ever sees "attempted".
type Dispatcher interface {
	NotifyHotLead(job *HotLeadJob)
}

// QueueDispatcher publishes jobs to the JetStream notification queue so
// delivery survives process restarts and never blocks a turn. When the
// queue is unreachable it degrades to direct in-process delivery.
type QueueDispatcher struct {
	stream  *natsclient.StreamManager
	sender  *Sender
	timeout time.Duration
	logger  *logger.Logger
}

// NewQueueDispatcher creates a dispatcher. stream may be nil, in which
// case every job is delivered directly.
func NewQueueDispatcher(stream *natsclient.StreamManager, sender *Sender, log *logger.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		stream:  stream,
		sender:  sender,
		timeout: 10 * time.Second,
		logger:  log,
	}
}

// NotifyHotLead enqueues the job. Fire-and-forget: all failures are
// logged and swallowed.
func (d *QueueDispatcher) NotifyHotLead(job *HotLeadJob) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if d.stream != nil {
			data, err := json.Marshal(job)
			if err != nil {
				d.logger.Error("failed to marshal notification job", zap.Error(err))
				return
			}
			if _, err := d.stream.Publish(ctx, natsclient.HotLeadSubject(job.TenantID), data); err == nil {
				return
			} else {
				d.logger.Warn("notification queue unavailable, delivering directly",
					zap.String("tenant_id", job.TenantID),
					zap.Error(err),
				)
			}
		}

		d.sender.Deliver(ctx, job)
	}()
}

// Worker consumes queued jobs and delivers them.
type Worker struct {
	stream *natsclient.StreamManager
	sender *Sender
	logger *logger.Logger
}

// NewWorker creates the background delivery worker.
func NewWorker(stream *natsclient.StreamManager, sender *Sender, log *logger.Logger) *Worker {
	return &Worker{stream: stream, sender: sender, logger: log}
}

// Start attaches the durable consumer. Returned stop function drains the
// consumer; call it on shutdown.
func (w *Worker) Start(ctx context.Context) (func(), error) {
	cc, err := w.stream.Consume(ctx, func(data []byte) {
		var job HotLeadJob
		if err := json.Unmarshal(data, &job); err != nil {
			w.logger.Error("dropping malformed notification job", zap.Error(err))
			return
		}

		deliverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		w.sender.Deliver(deliverCtx, &job)
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("notification worker started")
	return cc.Stop, nil
}
