package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/mailer"
	"github.com/campus-nfc/card-service/internal/mq"
	"github.com/campus-nfc/card-service/internal/observability"
)

// NotificationService turns domain events into email jobs on the queue.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  mq.Backend
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
	appName    string
	queue      string
}

// NotificationDependencies encapsulates collaborators of the notifier.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Publisher  mq.Backend
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.Config, deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg.Notification,
		appName:    cfg.App.Name,
		queue:      cfg.MQ.EmailQueue,
	}
}

var eventTemplates = map[events.EventType]string{
	events.EventUserRegistered:         mailer.TemplateAccountRegistered,
	events.EventUserCreated:            mailer.TemplateAccountCreated,
	events.EventUserApproved:           mailer.TemplateAccountApproved,
	events.EventUserRejected:           mailer.TemplateAccountRejected,
	events.EventUserActivated:          mailer.TemplateAccountActivated,
	events.EventUserDeactivated:        mailer.TemplateAccountDeactivated,
	events.EventNFCAssigned:            mailer.TemplateNFCAssigned,
	events.EventPasswordResetRequested: mailer.TemplatePasswordReset,
	events.EventPasswordChanged:        mailer.TemplatePasswordChanged,
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled {
		return
	}
	for eventType := range eventTemplates {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	job, err := n.BuildJob(event)
	if err != nil {
		n.logger.Warn("skip notification", zap.String("event", string(event.Type)), zap.Error(err))
		return nil
	}
	return n.enqueue(ctx, job)
}

// BuildJob maps an event onto the email job for its recipient.
func (n *NotificationService) BuildJob(event events.Event) (mailer.EmailJob, error) {
	template, ok := eventTemplates[event.Type]
	if !ok {
		return mailer.EmailJob{}, fmt.Errorf("no template for event %s", event.Type)
	}

	data := map[string]any{
		"AppName":   n.appName,
		"PortalURL": n.cfg.PortalURL,
	}
	var recipient events.Recipient

	switch p := event.Payload.(type) {
	case events.UserRegisteredPayload:
		recipient = p.Recipient
		data["CardNumber"] = p.CardNumber
		data["Department"] = p.Department
		data["Role"] = string(p.Role)
	case events.StateChangedPayload:
		recipient = p.Recipient
		data["From"] = string(p.From)
		data["To"] = string(p.To)
	case events.NFCAssignedPayload:
		recipient = p.Recipient
		data["NFCID"] = p.NFCID
	case events.PasswordResetRequestedPayload:
		recipient = p.Recipient
		data["Token"] = p.Token
		data["ExpiresAtText"] = p.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")
	case events.PasswordChangedPayload:
		recipient = p.Recipient
	default:
		return mailer.EmailJob{}, fmt.Errorf("unexpected payload %T for event %s", event.Payload, event.Type)
	}

	if strings.TrimSpace(recipient.Email) == "" {
		return mailer.EmailJob{}, fmt.Errorf("event %s has no recipient", event.Type)
	}
	data["FirstName"] = recipient.FirstName
	data["LastName"] = recipient.LastName

	return mailer.EmailJob{
		ID:       event.ID,
		To:       recipient.Email,
		Template: template,
		Data:     data,
	}, nil
}

func (n *NotificationService) enqueue(ctx context.Context, job mailer.EmailJob) error {
	if n.publisher == nil {
		return nil
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	msgID, err := n.publisher.Publish(ctx, n.queue, body, map[string]string{"template": job.Template})
	if err != nil {
		n.metrics.RecordEmailJob(job.Template, "publish_failed")
		return fmt.Errorf("publish email job: %w", err)
	}
	n.metrics.RecordEmailJob(job.Template, "queued")
	n.logger.Debug("email job queued",
		zap.String("template", job.Template),
		zap.String("job_id", job.ID),
		zap.String("message_id", msgID),
	)
	return nil
}
