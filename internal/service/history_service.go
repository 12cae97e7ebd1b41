package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/repository"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// HistoryService keeps the account audit trail by listening to domain events.
type HistoryService struct {
	repo       repository.AccountHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewHistoryService creates the service.
func NewHistoryService(repo repository.AccountHistoryRepository, dispatcher events.Dispatcher, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to every account-changing event.
func (s *HistoryService) RegisterHandlers() {
	if s.dispatcher == nil || s.repo == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserCreated,
		events.EventUserApproved,
		events.EventUserRejected,
		events.EventUserActivated,
		events.EventUserDeactivated,
		events.EventNFCAssigned,
		events.EventPermissionChanged,
	} {
		s.dispatcher.Subscribe(t, s.handle)
	}
}

// A failed insert never fails the originating operation.
func (s *HistoryService) handle(ctx context.Context, event events.Event) error {
	entry, ok := EntryFor(event)
	if !ok {
		return nil
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Warn("record account history",
			zap.String("event", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
	return nil
}

// EntryFor converts an event into an audit entry.
func EntryFor(event events.Event) (domain.AccountHistory, bool) {
	entry := domain.AccountHistory{
		UserID:        event.UserID,
		ChangedByRole: event.Actor.Role,
		EventType:     string(event.Type),
	}
	if event.Actor.UserID != "" && event.Actor.UserID != event.UserID {
		id := event.Actor.UserID
		entry.ChangedByID = &id
	}

	switch p := event.Payload.(type) {
	case events.UserRegisteredPayload:
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue = map[string]any{"role": p.Role, "department": p.Department, "card_number": p.CardNumber}
	case events.StateChangedPayload:
		entry.ChangeType = domain.ChangeTypeState
		if p.To == domain.StateRejected {
			entry.ChangeType = domain.ChangeTypeDeleted
		}
		entry.OldValue = map[string]any{"state": p.From}
		entry.NewValue = map[string]any{"state": p.To}
	case events.NFCAssignedPayload:
		entry.ChangeType = domain.ChangeTypeNFC
		entry.NewValue = map[string]any{"nfc_id": p.NFCID}
	case events.PermissionChangedPayload:
		entry.ChangeType = domain.ChangeTypePermission
		entry.OldValue = map[string]any{"can_approve_students": !p.Allowed}
		entry.NewValue = map[string]any{"can_approve_students": p.Allowed}
	default:
		return domain.AccountHistory{}, false
	}
	return entry, true
}

// ListForUser returns the audit trail of one account, newest first.
func (s *HistoryService) ListForUser(ctx context.Context, actor domain.Actor, userID string, limit int) ([]domain.AccountHistory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
