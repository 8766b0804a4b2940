package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	mocks "github.com/shelfwatch/notifier/internal/mocks/worker"
	"github.com/shelfwatch/notifier/internal/model"
	"github.com/shelfwatch/notifier/internal/service/notification"
)

func setupDispatcher(t *testing.T, cfg DispatcherConfig) (*Dispatcher, *mocks.MockdispatchService) {
	zlog.Init()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	service := mocks.NewMockdispatchService(ctrl)
	d := NewDispatcher(service, retry.Strategy{Attempts: 1}, cfg)

	return d, service
}

func TestRunOnce_EmptyBatch(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{})

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelEmail, gomock.Any(), 10*time.Minute).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelEmail, gomock.Any(), 100).
		Return(nil, nil)

	summary := d.RunOnce(context.Background(), model.ChannelEmail)

	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Errors)
}

func TestRunOnce_ClaimError(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{})

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelPush, gomock.Any(), gomock.Any()).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelPush, gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("db down"))

	summary := d.RunOnce(context.Background(), model.ChannelPush)

	assert.Equal(t, 0, summary.Processed)
	assert.Len(t, summary.Errors, 1)
}

func TestRunOnce_Sent(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{Workers: 2})

	batch := []model.Notification{
		{ID: uuid.New(), Contacts: []string{"a@example.com"}},
		{ID: uuid.New(), Contacts: []string{"b@example.com"}},
	}

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return(int64(1), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return(batch, nil)

	for _, n := range batch {
		service.EXPECT().
			Deliver(gomock.Any(), model.ChannelEmail, n).
			Return(nil)
		service.EXPECT().
			CompleteSend(gomock.Any(), gomock.Any(), model.ChannelEmail, n.ID, gomock.Any()).
			Return(nil)
	}

	summary := d.RunOnce(context.Background(), model.ChannelEmail)

	assert.Equal(t, int64(1), summary.Reclaimed)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Retried)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunOnce_RetryAndFail(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{Workers: 1})

	retried := model.Notification{ID: uuid.New(), AttemptCount: 0, AttemptLimit: 3, Contacts: []string{"+15551234567"}}
	exhausted := model.Notification{ID: uuid.New(), AttemptCount: 2, AttemptLimit: 3, Contacts: []string{"+15557654321"}}

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelSMS, gomock.Any(), gomock.Any()).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelSMS, gomock.Any(), gomock.Any()).
		Return([]model.Notification{retried, exhausted}, nil)

	sendErr := fmt.Errorf("gateway unavailable")

	service.EXPECT().
		Deliver(gomock.Any(), model.ChannelSMS, retried).
		Return(sendErr)
	service.EXPECT().
		FailSend(gomock.Any(), gomock.Any(), model.ChannelSMS, retried, gomock.Any(), sendErr).
		Return(model.StatusScheduled, nil)

	service.EXPECT().
		Deliver(gomock.Any(), model.ChannelSMS, exhausted).
		Return(sendErr)
	service.EXPECT().
		FailSend(gomock.Any(), gomock.Any(), model.ChannelSMS, exhausted, gomock.Any(), sendErr).
		Return(model.StatusFailed, nil)

	summary := d.RunOnce(context.Background(), model.ChannelSMS)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Errors, 2)
}

func TestRunOnce_SkipsWithoutContact(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{Workers: 1})

	n := model.Notification{ID: uuid.New()}

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return([]model.Notification{n}, nil)
	service.EXPECT().
		Deliver(gomock.Any(), model.ChannelEmail, n).
		Return(notification.ErrNoContact)

	// No attempt is charged: neither CompleteSend nor FailSend may be called.
	summary := d.RunOnce(context.Background(), model.ChannelEmail)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunOnce_RecoversSenderPanic(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{Workers: 1})

	n := model.Notification{ID: uuid.New(), AttemptCount: 0, AttemptLimit: 3, Contacts: []string{"token-a"}}

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelPush, gomock.Any(), gomock.Any()).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelPush, gomock.Any(), gomock.Any()).
		Return([]model.Notification{n}, nil)
	service.EXPECT().
		Deliver(gomock.Any(), model.ChannelPush, n).
		DoAndReturn(func(context.Context, model.Channel, model.Notification) error {
			panic("sender blew up")
		})
	service.EXPECT().
		FailSend(gomock.Any(), gomock.Any(), model.ChannelPush, n, gomock.Any(), gomock.Any()).
		Return(model.StatusScheduled, nil)

	summary := d.RunOnce(context.Background(), model.ChannelPush)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Retried)
}

func TestRunOnce_SendTimeout(t *testing.T) {
	d, service := setupDispatcher(t, DispatcherConfig{Workers: 1, SendTimeout: 20 * time.Millisecond})

	n := model.Notification{ID: uuid.New(), AttemptCount: 0, AttemptLimit: 3, Contacts: []string{"a@example.com"}}

	service.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return(int64(0), nil)
	service.EXPECT().
		ClaimDueBatch(gomock.Any(), model.ChannelEmail, gomock.Any(), gomock.Any()).
		Return([]model.Notification{n}, nil)
	service.EXPECT().
		Deliver(gomock.Any(), model.ChannelEmail, n).
		DoAndReturn(func(ctx context.Context, _ model.Channel, _ model.Notification) error {
			// Ignores cancellation on purpose.
			time.Sleep(200 * time.Millisecond)
			return nil
		})
	service.EXPECT().
		FailSend(gomock.Any(), gomock.Any(), model.ChannelEmail, n, gomock.Any(), gomock.Any()).
		Return(model.StatusScheduled, nil)

	summary := d.RunOnce(context.Background(), model.ChannelEmail)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Retried)
}
