package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-nfc/card-service/internal/domain"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventUserApproved, func(_ context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventUserApproved, func(_ context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventUserRejected, func(_ context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserApproved, "u-1", Actor{}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventUserCreated, "u-1", Actor{}, nil)))
}

func TestTransitionEventType(t *testing.T) {
	assert.Equal(t, EventUserApproved, TransitionEventType(domain.TransitionApprove))
	assert.Equal(t, EventUserRejected, TransitionEventType(domain.TransitionReject))
	assert.Equal(t, EventUserActivated, TransitionEventType(domain.TransitionActivate))
	assert.Equal(t, EventUserDeactivated, TransitionEventType(domain.TransitionDeactivate))
}

func TestNewIDIsMonotonic(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}
