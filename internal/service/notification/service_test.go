package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	mocks "github.com/shelfwatch/notifier/internal/mocks/service/notification"
	"github.com/shelfwatch/notifier/internal/model"
)

type serviceFixture struct {
	service *Service
	repo    *mocks.MocknotificationRepository
	cache   *mocks.Mockcache
	senders map[model.Channel]*mocks.MockSender
}

func setupService(t *testing.T) *serviceFixture {
	zlog.Init()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMocknotificationRepository(ctrl)
	cache := mocks.NewMockcache(ctrl)

	senders := map[model.Channel]*mocks.MockSender{
		model.ChannelPush:  mocks.NewMockSender(ctrl),
		model.ChannelEmail: mocks.NewMockSender(ctrl),
		model.ChannelSMS:   mocks.NewMockSender(ctrl),
	}

	senderMap := make(map[model.Channel]Sender, len(senders))
	for ch, s := range senders {
		senderMap[ch] = s
	}

	service := NewService(repo, senderMap, cache, validator.New(), Options{})

	return &serviceFixture{
		service: service,
		repo:    repo,
		cache:   cache,
		senders: senders,
	}
}

var strategy = retry.Strategy{Attempts: 1}

func TestSchedule(t *testing.T) {
	f := setupService(t)

	id := uuid.New()
	dueAt := time.Now().Add(time.Hour)

	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelEmail, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ model.Channel, n model.Notification) (uuid.UUID, error) {
			assert.Equal(t, model.StatusScheduled, n.Status)
			assert.Equal(t, 3, n.AttemptLimit)
			assert.Equal(t, 0, n.AttemptCount)
			// Kind and lead days fall back to their defaults.
			assert.Equal(t, "reminder", n.Kind)
			assert.Equal(t, 7, n.LeadDays)
			return id, nil
		})
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "email:"+id.String(), "scheduled").
		Return(nil)

	got, err := f.service.Schedule(context.Background(), strategy, model.ChannelEmail, ScheduleInput{
		OwnerID:      "owner-1",
		SubjectID:    "item-1",
		SubjectLabel: "Laptop Warranty",
		Category:     model.CategoryHardware,
		DueAt:        dueAt,
		Contacts:     []string{"user@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSchedule_Validation(t *testing.T) {
	f := setupService(t)

	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		channel model.Channel
		in      ScheduleInput
	}{
		{
			name:    "missing owner",
			channel: model.ChannelEmail,
			in:      ScheduleInput{SubjectID: "item-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"user@example.com"}},
		},
		{
			name:    "missing subject",
			channel: model.ChannelEmail,
			in:      ScheduleInput{OwnerID: "owner-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"user@example.com"}},
		},
		{
			name:    "due in the past",
			channel: model.ChannelEmail,
			in:      ScheduleInput{OwnerID: "owner-1", SubjectID: "item-1", SubjectLabel: "x", DueAt: time.Now().Add(-time.Minute), Contacts: []string{"user@example.com"}},
		},
		{
			name:    "malformed email",
			channel: model.ChannelEmail,
			in:      ScheduleInput{OwnerID: "owner-1", SubjectID: "item-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"not-an-address"}},
		},
		{
			name:    "malformed phone",
			channel: model.ChannelSMS,
			in:      ScheduleInput{OwnerID: "owner-1", SubjectID: "item-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"555-1234"}},
		},
		{
			name:    "no device tokens",
			channel: model.ChannelPush,
			in:      ScheduleInput{OwnerID: "owner-1", SubjectID: "item-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"  "}},
		},
		{
			name:    "unknown channel",
			channel: model.Channel("fax"),
			in:      ScheduleInput{OwnerID: "owner-1", SubjectID: "item-1", SubjectLabel: "x", DueAt: future, Contacts: []string{"555"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Nothing may reach the repository on a validation failure.
			_, err := f.service.Schedule(context.Background(), strategy, tt.channel, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRequestReminder_NoEligibleChannels(t *testing.T) {
	f := setupService(t)

	tests := []struct {
		name string
		req  ReminderRequest
	}{
		{
			name: "all preferences off",
			req: ReminderRequest{
				Contacts: Contacts{Email: "user@example.com", Phone: "+15551234567"},
			},
		},
		{
			name: "preferences on but no contacts",
			req: ReminderRequest{
				Preferences: ChannelPreferences{Push: true, Email: true, SMS: true},
				Contacts:    Contacts{Email: "   "},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.RequestReminder(context.Background(), strategy, tt.req)
			assert.ErrorIs(t, err, ErrNoEligibleChannels)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRequestReminder_FanOut(t *testing.T) {
	f := setupService(t)

	dueAt := time.Now().Add(time.Hour)
	pushID, emailID, smsID := uuid.New(), uuid.New(), uuid.New()

	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelPush, gomock.Any()).
		Return(pushID, nil)
	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelEmail, gomock.Any()).
		Return(emailID, nil)
	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelSMS, gomock.Any()).
		Return(smsID, nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, gomock.Any(), "scheduled").
		Return(nil).
		Times(3)

	result, err := f.service.RequestReminder(context.Background(), strategy, ReminderRequest{
		OwnerID:      "owner-1",
		SubjectID:    "item-1",
		SubjectLabel: "Music Subscription",
		Category:     model.CategorySubscription,
		DueAt:        dueAt,
		Preferences:  ChannelPreferences{Push: true, Email: true, SMS: true},
		Contacts: Contacts{
			DeviceTokens: []string{"token-a", "token-b"},
			Email:        "user@example.com",
			Phone:        "+15551234567",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, pushID, result.Scheduled[model.ChannelPush])
	assert.Equal(t, emailID, result.Scheduled[model.ChannelEmail])
	assert.Equal(t, smsID, result.Scheduled[model.ChannelSMS])
	assert.Empty(t, result.Errors)
	assert.Equal(t, "scheduled 3 of 3 eligible channels", result.Summary)
}

func TestRequestReminder_PartialFailure(t *testing.T) {
	f := setupService(t)

	dueAt := time.Now().Add(time.Hour)
	pushID := uuid.New()

	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelPush, gomock.Any()).
		Return(pushID, nil)
	f.repo.EXPECT().
		CreateNotification(gomock.Any(), model.ChannelEmail, gomock.Any()).
		Return(uuid.Nil, fmt.Errorf("insert failed"))
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "push:"+pushID.String(), "scheduled").
		Return(nil)

	result, err := f.service.RequestReminder(context.Background(), strategy, ReminderRequest{
		OwnerID:      "owner-1",
		SubjectID:    "item-1",
		SubjectLabel: "Laptop Warranty",
		DueAt:        dueAt,
		Preferences:  ChannelPreferences{Push: true, Email: true},
		Contacts: Contacts{
			DeviceTokens: []string{"token-a"},
			Email:        "user@example.com",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, pushID, result.Scheduled[model.ChannelPush])
	assert.NotContains(t, result.Scheduled, model.ChannelEmail)
	assert.Contains(t, result.Errors[model.ChannelEmail], "insert failed")
	assert.Equal(t, "scheduled 1 of 2 eligible channels", result.Summary)
}

func TestCancelReminder(t *testing.T) {
	f := setupService(t)

	pushID, emailID1, emailID2 := uuid.New(), uuid.New(), uuid.New()

	f.repo.EXPECT().
		CancelBySubject(gomock.Any(), model.ChannelPush, "item-1", "owner-1", gomock.Any()).
		Return([]uuid.UUID{pushID}, nil)
	f.repo.EXPECT().
		CancelBySubject(gomock.Any(), model.ChannelEmail, "item-1", "owner-1", gomock.Any()).
		Return([]uuid.UUID{emailID1, emailID2}, nil)
	f.repo.EXPECT().
		CancelBySubject(gomock.Any(), model.ChannelSMS, "item-1", "owner-1", gomock.Any()).
		Return(nil, nil)

	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "push:"+pushID.String(), "cancelled").
		Return(nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "email:"+emailID1.String(), "cancelled").
		Return(nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "email:"+emailID2.String(), "cancelled").
		Return(nil)

	cancelled, err := f.service.CancelReminder(context.Background(), strategy, "item-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cancelled)
}

func TestCancelReminder_MissingSubject(t *testing.T) {
	f := setupService(t)

	_, err := f.service.CancelReminder(context.Background(), strategy, "", "owner-1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListNotifications(t *testing.T) {
	f := setupService(t)

	now := time.Now()
	early := model.Notification{ID: uuid.New(), DueAt: now.Add(time.Hour)}
	mid := model.Notification{ID: uuid.New(), DueAt: now.Add(2 * time.Hour)}
	late := model.Notification{ID: uuid.New(), DueAt: now.Add(3 * time.Hour)}

	f.repo.EXPECT().
		ListByOwner(gomock.Any(), model.ChannelPush, "owner-1", model.Status(""), 2).
		Return([]model.Notification{mid}, nil)
	f.repo.EXPECT().
		ListByOwner(gomock.Any(), model.ChannelEmail, "owner-1", model.Status(""), 2).
		Return([]model.Notification{early}, nil)
	f.repo.EXPECT().
		ListByOwner(gomock.Any(), model.ChannelSMS, "owner-1", model.Status(""), 2).
		Return([]model.Notification{late}, nil)

	list, err := f.service.ListNotifications(context.Background(), "owner-1", "", 2)
	require.NoError(t, err)

	// Merged across channels, newest due first, truncated to the limit.
	require.Len(t, list, 2)
	assert.Equal(t, late.ID, list[0].ID)
	assert.Equal(t, mid.ID, list[1].ID)
}

func TestListNotifications_MissingOwner(t *testing.T) {
	f := setupService(t)

	_, err := f.service.ListNotifications(context.Background(), "", "", 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetStatus_CacheHit(t *testing.T) {
	f := setupService(t)

	id := uuid.New()

	f.cache.EXPECT().
		GetWithRetry(gomock.Any(), strategy, "email:"+id.String()).
		Return("sent", nil)

	status, err := f.service.GetStatus(context.Background(), strategy, model.ChannelEmail, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
}

func TestGetStatus_CacheMiss(t *testing.T) {
	f := setupService(t)

	id := uuid.New()

	f.cache.EXPECT().
		GetWithRetry(gomock.Any(), strategy, "sms:"+id.String()).
		Return("", redis.Nil)
	f.repo.EXPECT().
		GetStatusByID(gomock.Any(), model.ChannelSMS, id).
		Return(model.StatusScheduled, nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "sms:"+id.String(), "scheduled").
		Return(nil)

	status, err := f.service.GetStatus(context.Background(), strategy, model.ChannelSMS, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, status)
}

func TestGetStatus_CacheUnavailable(t *testing.T) {
	f := setupService(t)

	id := uuid.New()

	// A broken cache degrades to a store read, it never fails the request.
	f.cache.EXPECT().
		GetWithRetry(gomock.Any(), strategy, "push:"+id.String()).
		Return("", fmt.Errorf("connection refused"))
	f.repo.EXPECT().
		GetStatusByID(gomock.Any(), model.ChannelPush, id).
		Return(model.StatusFailed, nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "push:"+id.String(), "failed").
		Return(nil)

	status, err := f.service.GetStatus(context.Background(), strategy, model.ChannelPush, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
}

func TestReclaimStale(t *testing.T) {
	f := setupService(t)

	now := time.Now()
	staleAfter := 10 * time.Minute

	f.repo.EXPECT().
		ReclaimStale(gomock.Any(), model.ChannelEmail, now.Add(-staleAfter), now).
		Return(int64(2), nil)

	count, err := f.service.ReclaimStale(context.Background(), model.ChannelEmail, now, staleAfter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeliver_Email(t *testing.T) {
	f := setupService(t)

	n := model.Notification{
		ID:           uuid.New(),
		SubjectLabel: "Laptop Warranty",
		Category:     model.CategoryHardware,
		DueAt:        time.Now().Add(time.Hour),
		LeadDays:     7,
		Contacts:     []string{"user@example.com"},
	}

	f.senders[model.ChannelEmail].EXPECT().
		Send(gomock.Any(), "user@example.com", "Warranty reminder: Laptop Warranty", gomock.Any()).
		Return(nil)

	err := f.service.Deliver(context.Background(), model.ChannelEmail, n)
	assert.NoError(t, err)
}

func TestDeliver_NoContact(t *testing.T) {
	f := setupService(t)

	n := model.Notification{ID: uuid.New(), Contacts: []string{" ", ""}}

	err := f.service.Deliver(context.Background(), model.ChannelSMS, n)
	assert.ErrorIs(t, err, ErrNoContact)
}

func TestDeliver_NoSender(t *testing.T) {
	f := setupService(t)

	err := f.service.Deliver(context.Background(), model.Channel("fax"), model.Notification{})
	assert.Error(t, err)
}

func TestDeliver_PushPartialSuccess(t *testing.T) {
	f := setupService(t)

	n := model.Notification{
		ID:           uuid.New(),
		SubjectLabel: "Music Subscription",
		Category:     model.CategorySubscription,
		DueAt:        time.Now().Add(time.Hour),
		Contacts:     []string{"token-a", "token-b"},
	}

	f.senders[model.ChannelPush].EXPECT().
		Send(gomock.Any(), "token-a", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("token expired"))
	f.senders[model.ChannelPush].EXPECT().
		Send(gomock.Any(), "token-b", gomock.Any(), gomock.Any()).
		Return(nil)

	// One accepting token is enough.
	err := f.service.Deliver(context.Background(), model.ChannelPush, n)
	assert.NoError(t, err)
}

func TestDeliver_PushAllTokensRejected(t *testing.T) {
	f := setupService(t)

	n := model.Notification{
		ID:       uuid.New(),
		Contacts: []string{"token-a", "token-b"},
	}

	f.senders[model.ChannelPush].EXPECT().
		Send(gomock.Any(), "token-a", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("token expired"))
	f.senders[model.ChannelPush].EXPECT().
		Send(gomock.Any(), "token-b", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("unregistered"))

	err := f.service.Deliver(context.Background(), model.ChannelPush, n)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 device tokens rejected")
}

func TestCompleteSend(t *testing.T) {
	f := setupService(t)

	id := uuid.New()
	at := time.Now()

	f.repo.EXPECT().
		MarkSent(gomock.Any(), model.ChannelEmail, id, at).
		Return(nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "email:"+id.String(), "sent").
		Return(nil)

	err := f.service.CompleteSend(context.Background(), strategy, model.ChannelEmail, id, at)
	assert.NoError(t, err)
}

func TestFailSend_Backoff(t *testing.T) {
	f := setupService(t)

	at := time.Now()

	// Base 5m doubles per attempt: 10, 20 minutes before the limit hits.
	tests := []struct {
		attemptCount int
		wantDelay    time.Duration
	}{
		{attemptCount: 0, wantDelay: 10 * time.Minute},
		{attemptCount: 1, wantDelay: 20 * time.Minute},
	}

	for _, tt := range tests {
		n := model.Notification{
			ID:           uuid.New(),
			AttemptCount: tt.attemptCount,
			AttemptLimit: 3,
		}

		f.repo.EXPECT().
			MarkRetry(gomock.Any(), model.ChannelSMS, n.ID, tt.attemptCount+1, at.Add(tt.wantDelay), "gateway unavailable").
			Return(nil)
		f.cache.EXPECT().
			SetWithRetry(gomock.Any(), strategy, "sms:"+n.ID.String(), "scheduled").
			Return(nil)

		status, err := f.service.FailSend(context.Background(), strategy, model.ChannelSMS, n, at, fmt.Errorf("gateway unavailable"))
		require.NoError(t, err)
		assert.Equal(t, model.StatusScheduled, status)
	}
}

func TestFailSend_AttemptLimitReached(t *testing.T) {
	f := setupService(t)

	at := time.Now()
	n := model.Notification{
		ID:           uuid.New(),
		AttemptCount: 2,
		AttemptLimit: 3,
	}

	f.repo.EXPECT().
		MarkFailed(gomock.Any(), model.ChannelEmail, n.ID, 3, at, "smtp refused").
		Return(nil)
	f.cache.EXPECT().
		SetWithRetry(gomock.Any(), strategy, "email:"+n.ID.String(), "failed").
		Return(nil)

	status, err := f.service.FailSend(context.Background(), strategy, model.ChannelEmail, n, at, fmt.Errorf("smtp refused"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
}
