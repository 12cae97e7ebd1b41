package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/mailer"
	"github.com/campus-nfc/card-service/internal/mq"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, to, subject, text, html string) error {
	args := m.Called(ctx, to, subject, text, html)
	return args.Error(0)
}

func jobMessage(t *testing.T, job mailer.EmailJob) mq.Message {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return mq.Message{ID: "m-1", Data: data}
}

func TestEmailWorkerRendersAndSends(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, "ana@campus.test",
		"Your campus card registration was received",
		mock.MatchedBy(func(text string) bool { return len(text) > 0 }),
		mock.MatchedBy(func(html string) bool { return len(html) > 0 }),
	).Return(nil).Once()

	w := NewEmailWorker(nil, sender, "email.jobs", nil, zap.NewNop())
	err := w.Handle(context.Background(), jobMessage(t, mailer.EmailJob{
		ID:       "j-1",
		To:       "ana@campus.test",
		Template: mailer.TemplateAccountRegistered,
		Data:     map[string]any{"FirstName": "Ana", "CardNumber": "C-1", "Department": "CS"},
	}))
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestEmailWorkerSendsLiteralBodies(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, "ana@campus.test", "Hi", "plain", "").Return(nil).Once()

	w := NewEmailWorker(nil, sender, "email.jobs", nil, zap.NewNop())
	require.NoError(t, w.Handle(context.Background(), jobMessage(t, mailer.EmailJob{To: "ana@campus.test", Subject: "Hi", Text: "plain"})))
	sender.AssertExpectations(t)
}

func TestEmailWorkerReturnsSendErrorForRedelivery(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	w := NewEmailWorker(nil, sender, "email.jobs", nil, zap.NewNop())
	err := w.Handle(context.Background(), jobMessage(t, mailer.EmailJob{To: "ana@campus.test", Subject: "Hi", Text: "plain"}))
	assert.Error(t, err)
}

func TestEmailWorkerDropsBadJobs(t *testing.T) {
	sender := &mockSender{}
	w := NewEmailWorker(nil, sender, "email.jobs", nil, zap.NewNop())

	assert.NoError(t, w.Handle(context.Background(), mq.Message{ID: "m-1", Data: []byte("{not json")}))
	assert.NoError(t, w.Handle(context.Background(), jobMessage(t, mailer.EmailJob{Subject: "no recipient"})))
	assert.NoError(t, w.Handle(context.Background(), jobMessage(t, mailer.EmailJob{To: "a@b.c", Template: "missing_template"})))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEmailWorkerRunTreatsCancelAsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewEmailWorker(cancelledBackend{}, &mockSender{}, "email.jobs", nil, zap.NewNop())
	assert.NoError(t, w.Run(ctx))

	w = NewEmailWorker(mq.NewLogBackend(zap.NewNop()), &mockSender{}, "email.jobs", nil, zap.NewNop())
	assert.ErrorIs(t, w.Run(context.Background()), mq.ErrNoBroker)
}

type cancelledBackend struct{}

func (cancelledBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (cancelledBackend) Subscribe(ctx context.Context, _ string, _ mq.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (cancelledBackend) Close() error { return nil }
