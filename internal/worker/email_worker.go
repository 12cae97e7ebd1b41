package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/mailer"
	"github.com/campus-nfc/card-service/internal/mailer/templates"
	"github.com/campus-nfc/card-service/internal/mq"
	"github.com/campus-nfc/card-service/internal/observability"
)

// EmailWorker consumes email jobs and delivers them.
type EmailWorker struct {
	consumer mq.Backend
	sender   mailer.Sender
	queue    string
	metrics  *observability.Metrics
	logger   *zap.Logger
	timeout  time.Duration
}

// NewEmailWorker builds the worker.
func NewEmailWorker(consumer mq.Backend, sender mailer.Sender, queue string, metrics *observability.Metrics, logger *zap.Logger) *EmailWorker {
	return &EmailWorker{
		consumer: consumer,
		sender:   sender,
		queue:    queue,
		metrics:  metrics,
		logger:   logger,
		timeout:  15 * time.Second,
	}
}

// Run blocks consuming the queue until ctx is cancelled.
func (w *EmailWorker) Run(ctx context.Context) error {
	w.logger.Info("email worker listening", zap.String("queue", w.queue))
	err := w.consumer.Subscribe(ctx, w.queue, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle processes one message. Malformed jobs are dropped; delivery
// failures are returned so the broker redelivers.
func (w *EmailWorker) Handle(ctx context.Context, msg mq.Message) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.logger.Warn("drop malformed email job", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if job.To == "" {
		w.logger.Warn("drop email job without recipient", zap.String("message_id", msg.ID))
		return nil
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = templates.Render(job.Template, job.Data)
		if err != nil {
			w.metrics.RecordEmailJob(job.Template, "render_failed")
			w.logger.Error("render email", zap.String("template", job.Template), zap.Error(err))
			return nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, job.To, subject, text, html); err != nil {
		w.metrics.RecordEmailJob(job.Template, "send_failed")
		w.logger.Warn("send email", zap.String("template", job.Template), zap.String("job_id", job.ID), zap.Error(err))
		return err
	}

	w.metrics.RecordEmailJob(job.Template, "sent")
	w.logger.Info("email sent", zap.String("template", job.Template), zap.String("job_id", job.ID))
	return nil
}
