package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/events"
	"github.com/campus-nfc/card-service/internal/observability"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

const defaultMaxParallel = 8

// ApprovalService runs bulk approve/reject/activate/deactivate requests.
type ApprovalService struct {
	directory   UserDirectory
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	maxParallel int
}

// ApprovalDependencies encapsulates collaborators of the workflow.
type ApprovalDependencies struct {
	Directory   UserDirectory
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	MaxParallel int
}

// NewApprovalService builds the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	maxParallel := deps.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		directory:   deps.Directory,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		maxParallel: maxParallel,
	}
}

// IsInScope reports whether actor may act on target. Admins reach everyone;
// staff reach students of their own department; nobody else reaches anyone.
func IsInScope(actor domain.Actor, target *domain.User) bool {
	if !actor.IsAuthenticated() || target == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleStaff:
		return target.Role == domain.RoleStudent && domain.SameDepartment(actor.Department, target.Department)
	default:
		return false
	}
}

// authorizeBatch checks the actor once for the whole batch.
func authorizeBatch(actor domain.Actor, transition domain.Transition) error {
	if !actor.IsAuthenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Usable {
		return apperrors.NewForbidden("account is not active")
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleStaff:
		if (transition == domain.TransitionApprove || transition == domain.TransitionReject) && !actor.CanApproveStudents {
			return apperrors.NewForbidden("staff member is not allowed to approve students")
		}
		return nil
	default:
		return apperrors.NewForbidden("admin or staff role required")
	}
}

// NormalizeIDs trims identifiers, drops blanks and removes duplicates while
// keeping first-seen order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type itemOutcome struct {
	change    *domain.TransitionChange
	failure   *domain.TransitionFailure
	recipient events.Recipient
}

// ApplyBulkTransition applies transition to every selected user and
// aggregates per-user outcomes. Per-user failures never abort the batch.
//
// The caller-facing errors are NO_SELECTION, VALIDATION_FAILED, UNAUTHORIZED,
// FORBIDDEN and BACKEND_UNAVAILABLE. When every user failed on the backend the
// result is returned together with BACKEND_UNAVAILABLE.
func (s *ApprovalService) ApplyBulkTransition(ctx context.Context, actor domain.Actor, targetIDs []string, transition domain.Transition) (domain.BulkResult, error) {
	ids := NormalizeIDs(targetIDs)
	if len(ids) == 0 {
		s.metrics.RecordBulkBatch(string(transition), "no_selection")
		return domain.BulkResult{Transition: transition}, apperrors.ErrNoSelection
	}
	if !transition.Valid() {
		return domain.BulkResult{}, apperrors.NewValidationError("unknown transition", map[string]any{"transition": string(transition)})
	}
	if err := authorizeBatch(actor, transition); err != nil {
		s.metrics.RecordBulkBatch(string(transition), "forbidden")
		return domain.BulkResult{Transition: transition}, err
	}
	if err := s.directory.Ping(ctx); err != nil {
		s.metrics.RecordBulkBatch(string(transition), "backend_unavailable")
		s.logger.Error("directory unavailable before bulk transition",
			zap.String("transition", string(transition)),
			zap.Error(err),
		)
		return domain.BulkResult{Transition: transition}, apperrors.NewBackendUnavailable(err)
	}

	// Item writes survive the caller going away.
	itemCtx := context.WithoutCancel(ctx)
	outcomes := make([]itemOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = s.applyOne(itemCtx, actor, id, transition)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.BulkResult{Transition: transition, Requested: len(ids)}
	backendFailures := 0
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failed++
			result.Failures = append(result.Failures, *o.failure)
			if o.failure.Reason == domain.ReasonBackendError {
				backendFailures++
			}
			continue
		}
		result.Succeeded++
		if o.change != nil {
			result.Changed = append(result.Changed, *o.change)
		}
	}

	s.emitEvents(itemCtx, actor, transition, outcomes)
	s.record(actor, result)

	if backendFailures == result.Requested {
		return result, apperrors.NewBackendUnavailable(fmt.Errorf("all %d updates failed", backendFailures))
	}
	return result, nil
}

func (s *ApprovalService) applyOne(ctx context.Context, actor domain.Actor, id string, transition domain.Transition) itemOutcome {
	fail := func(reason domain.FailureReason, msg string) itemOutcome {
		return itemOutcome{failure: &domain.TransitionFailure{UserID: id, Reason: reason, Message: msg}}
	}

	user, err := s.directory.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fail(domain.ReasonNotFound, "user not found")
		}
		s.logger.Warn("load user for transition", zap.String("user_id", id), zap.Error(err))
		return fail(domain.ReasonBackendError, "could not load user")
	}

	if !IsInScope(actor, user) {
		return fail(domain.ReasonOutOfScope, "user is outside your scope")
	}

	next, err := transition.Next(user.State)
	if err != nil {
		return fail(domain.ReasonInvalidTransition, fmt.Sprintf("cannot %s a user in state %s", transition, user.State))
	}
	if next == user.State {
		return itemOutcome{}
	}

	if next == domain.StateRejected {
		err = s.directory.DeleteUser(ctx, id)
	} else {
		_, err = s.directory.UpdateUser(ctx, id, domain.UserPatch{State: &next})
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fail(domain.ReasonNotFound, "user not found")
		}
		s.logger.Warn("apply transition", zap.String("user_id", id), zap.String("transition", string(transition)), zap.Error(err))
		return fail(domain.ReasonBackendError, "could not update user")
	}

	return itemOutcome{
		change:    &domain.TransitionChange{UserID: id, From: user.State, To: next},
		recipient: events.RecipientOf(user),
	}
}

func (s *ApprovalService) emitEvents(ctx context.Context, actor domain.Actor, transition domain.Transition, outcomes []itemOutcome) {
	if s.dispatcher == nil {
		return
	}
	eventType := events.TransitionEventType(transition)
	for _, o := range outcomes {
		if o.change == nil {
			continue
		}
		event := events.NewEvent(eventType, o.change.UserID,
			events.Actor{UserID: actor.ID, Role: actor.Role},
			events.StateChangedPayload{Recipient: o.recipient, From: o.change.From, To: o.change.To},
		)
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish transition event", zap.String("event", string(eventType)), zap.String("user_id", o.change.UserID), zap.Error(err))
		}
	}
}

func (s *ApprovalService) record(actor domain.Actor, result domain.BulkResult) {
	t := string(result.Transition)
	s.metrics.RecordBulkItems(t, "succeeded", result.Succeeded)
	byReason := map[domain.FailureReason]int{}
	for _, f := range result.Failures {
		byReason[f.Reason]++
	}
	for reason, n := range byReason {
		s.metrics.RecordBulkItems(t, strings.ToLower(string(reason)), n)
	}

	batch := "ok"
	switch {
	case result.Failed == result.Requested:
		batch = "failed"
	case result.Failed > 0:
		batch = "partial"
	}
	s.metrics.RecordBulkBatch(t, batch)

	s.logger.Info("bulk transition applied",
		zap.String("transition", t),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("changed", len(result.Changed)),
	)
}
