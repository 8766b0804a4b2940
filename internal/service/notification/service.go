package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/shelfwatch/notifier/internal/model"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

var (
	// ErrValidation marks caller errors: bad or missing input, a due time
	// that is not in the future, a malformed contact. Nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNoEligibleChannels is returned by RequestReminder when no channel
	// is both enabled and contactable.
	ErrNoEligibleChannels = fmt.Errorf("%w: no eligible delivery channels", ErrValidation)

	// ErrNoContact marks a record with no usable destination. The dispatcher
	// treats it as a skip, not a delivery failure.
	ErrNoContact = errors.New("no contact on record")
)

type notificationRepository interface {
	CreateNotification(ctx context.Context, channel model.Channel, n model.Notification) (uuid.UUID, error)
	ClaimDue(ctx context.Context, channel model.Channel, now time.Time, limit int) ([]model.Notification, error)
	ReclaimStale(ctx context.Context, channel model.Channel, cutoff, now time.Time) (int64, error)
	MarkSent(ctx context.Context, channel model.Channel, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, channel model.Channel, id uuid.UUID, attempt int, dueAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, channel model.Channel, id uuid.UUID, attempt int, at time.Time, lastError string) error
	CancelBySubject(ctx context.Context, channel model.Channel, subjectID, ownerID string, at time.Time) ([]uuid.UUID, error)
	ListByOwner(ctx context.Context, channel model.Channel, ownerID string, status model.Status, limit int) ([]model.Notification, error)
	GetStatusByID(ctx context.Context, channel model.Channel, id uuid.UUID) (model.Status, error)
}

// Sender delivers one composed message to one destination on a channel.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Options tunes the engine defaults.
type Options struct {
	AttemptLimit int           // delivery attempts per record, default 3
	BackoffBase  time.Duration // retry backoff base, default 5m (10, 20, 40 min for attempts 1..3)
	LeadDays     int           // default reminder lead, default 7
}

func (o Options) withDefaults() Options {
	if o.AttemptLimit <= 0 {
		o.AttemptLimit = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 5 * time.Minute
	}
	if o.LeadDays <= 0 {
		o.LeadDays = 7
	}
	return o
}

// Service implements the reminder engine: scheduling, fan-out across
// channels, cancellation, listing and the dispatch-side state transitions.
type Service struct {
	repo     notificationRepository
	senders  map[model.Channel]Sender
	cache    cache
	validate *validator.Validate
	opts     Options
}

func NewService(
	repo notificationRepository,
	senders map[model.Channel]Sender,
	cache cache,
	validate *validator.Validate,
	opts Options,
) *Service {
	return &Service{
		repo:     repo,
		senders:  senders,
		cache:    cache,
		validate: validate,
		opts:     opts.withDefaults(),
	}
}

func statusKey(channel model.Channel, id uuid.UUID) string {
	return string(channel) + ":" + id.String()
}

func (s *Service) cacheStatus(ctx context.Context, strategy retry.Strategy, channel model.Channel, id uuid.UUID, status model.Status) {
	if err := s.cache.SetWithRetry(ctx, strategy, statusKey(channel, id), string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
	}
}

// ScheduleInput is one delivery intent on one channel.
type ScheduleInput struct {
	OwnerID      string
	SubjectID    string
	SubjectLabel string
	Category     model.Category
	Kind         string
	DueAt        time.Time
	Contacts     []string
	LeadDays     int
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Service) validateContact(channel model.Channel, contacts []string) error {
	switch channel {
	case model.ChannelPush:
		if len(contacts) == 0 {
			return fmt.Errorf("%w: at least one device token is required", ErrValidation)
		}
	case model.ChannelEmail:
		if len(contacts) == 0 || s.validate.Var(contacts[0], "required,email") != nil {
			return fmt.Errorf("%w: a valid email address is required", ErrValidation)
		}
	case model.ChannelSMS:
		if len(contacts) == 0 || s.validate.Var(contacts[0], "required,e164") != nil {
			return fmt.Errorf("%w: a valid E.164 phone number is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrValidation, channel)
	}
	return nil
}

// Schedule validates one delivery intent and persists it as a scheduled
// notification. No delivery is attempted here.
func (s *Service) Schedule(ctx context.Context, strategy retry.Strategy, channel model.Channel, in ScheduleInput) (uuid.UUID, error) {
	if in.OwnerID == "" || in.SubjectID == "" || in.SubjectLabel == "" {
		return uuid.Nil, fmt.Errorf("%w: owner, subject and label are required", ErrValidation)
	}

	if !in.DueAt.After(time.Now()) {
		return uuid.Nil, fmt.Errorf("%w: due time must be in the future", ErrValidation)
	}

	contacts := nonEmpty(in.Contacts)
	if err := s.validateContact(channel, contacts); err != nil {
		return uuid.Nil, err
	}

	if in.Kind == "" {
		in.Kind = "reminder"
	}
	if in.LeadDays <= 0 {
		in.LeadDays = s.opts.LeadDays
	}

	n := model.Notification{
		OwnerID:      in.OwnerID,
		SubjectID:    in.SubjectID,
		SubjectLabel: in.SubjectLabel,
		Category:     in.Category,
		Kind:         in.Kind,
		DueAt:        in.DueAt,
		Contacts:     contacts,
		LeadDays:     in.LeadDays,
		Status:       model.StatusScheduled,
		AttemptCount: 0,
		AttemptLimit: s.opts.AttemptLimit,
	}

	id, err := s.repo.CreateNotification(ctx, channel, n)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create notification: %w", err)
	}

	s.cacheStatus(ctx, strategy, channel, id, model.StatusScheduled)

	return id, nil
}

// ChannelPreferences holds the per-channel opt-in flags of an owner.
type ChannelPreferences struct {
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Contacts holds the owner's destinations per channel.
type Contacts struct {
	DeviceTokens []string `json:"device_tokens"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
}

// ReminderRequest is the caller-facing fan-out intent.
type ReminderRequest struct {
	OwnerID      string
	SubjectID    string
	SubjectLabel string
	Category     model.Category
	Kind         string
	DueAt        time.Time
	LeadDays     int
	Preferences  ChannelPreferences
	Contacts     Contacts
}

// FanoutResult reports the per-channel outcome of a reminder request.
// Channels that failed to schedule are reported alongside the ones that
// succeeded; nothing is rolled back across channels.
type FanoutResult struct {
	Scheduled map[model.Channel]uuid.UUID `json:"scheduled"`
	Errors    map[model.Channel]string    `json:"errors,omitempty"`
	Summary   string                      `json:"summary"`
}

func (r ReminderRequest) eligibleContacts() map[model.Channel][]string {
	eligible := make(map[model.Channel][]string)

	if r.Preferences.Push {
		if tokens := nonEmpty(r.Contacts.DeviceTokens); len(tokens) > 0 {
			eligible[model.ChannelPush] = tokens
		}
	}
	if r.Preferences.Email && strings.TrimSpace(r.Contacts.Email) != "" {
		eligible[model.ChannelEmail] = []string{strings.TrimSpace(r.Contacts.Email)}
	}
	if r.Preferences.SMS && strings.TrimSpace(r.Contacts.Phone) != "" {
		eligible[model.ChannelSMS] = []string{strings.TrimSpace(r.Contacts.Phone)}
	}

	return eligible
}

// RequestReminder schedules the reminder on every channel that is both
// enabled by preference and contactable. It fails only when zero channels
// are eligible; per-channel scheduling failures are reported in the result.
func (s *Service) RequestReminder(ctx context.Context, strategy retry.Strategy, req ReminderRequest) (*FanoutResult, error) {
	eligible := req.eligibleContacts()
	if len(eligible) == 0 {
		return nil, ErrNoEligibleChannels
	}

	result := &FanoutResult{
		Scheduled: make(map[model.Channel]uuid.UUID),
		Errors:    make(map[model.Channel]string),
	}

	for _, channel := range model.Channels {
		contacts, ok := eligible[channel]
		if !ok {
			continue
		}

		id, err := s.Schedule(ctx, strategy, channel, ScheduleInput{
			OwnerID:      req.OwnerID,
			SubjectID:    req.SubjectID,
			SubjectLabel: req.SubjectLabel,
			Category:     req.Category,
			Kind:         req.Kind,
			DueAt:        req.DueAt,
			Contacts:     contacts,
			LeadDays:     req.LeadDays,
		})
		if err != nil {
			zlog.Logger.Warn().Err(err).
				Str("channel", string(channel)).
				Str("subject_id", req.SubjectID).
				Msg("channel scheduling failed")
			result.Errors[channel] = err.Error()
			continue
		}

		result.Scheduled[channel] = id
	}

	result.Summary = fmt.Sprintf("scheduled %d of %d eligible channels", len(result.Scheduled), len(eligible))

	return result, nil
}

// CancelReminder cancels every still-scheduled notification for a subject
// across all channels, optionally restricted to one owner. Records already
// claimed by a dispatcher pass keep going; that race is accepted.
func (s *Service) CancelReminder(ctx context.Context, strategy retry.Strategy, subjectID, ownerID string) (int64, error) {
	if subjectID == "" {
		return 0, fmt.Errorf("%w: subject id is required", ErrValidation)
	}

	now := time.Now()

	var cancelled int64
	for _, channel := range model.Channels {
		ids, err := s.repo.CancelBySubject(ctx, channel, subjectID, ownerID, now)
		if err != nil {
			return cancelled, fmt.Errorf("cancel %s notifications: %w", channel, err)
		}

		for _, id := range ids {
			s.cacheStatus(ctx, strategy, channel, id, model.StatusCancelled)
		}

		cancelled += int64(len(ids))
	}

	return cancelled, nil
}

// ListNotifications returns the owner's notifications across all channels,
// each tagged with its channel, ordered by due time descending.
func (s *Service) ListNotifications(ctx context.Context, ownerID string, status model.Status, limit int) ([]model.Notification, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var merged []model.Notification
	for _, channel := range model.Channels {
		list, err := s.repo.ListByOwner(ctx, channel, ownerID, status, limit)
		if err != nil {
			return nil, fmt.Errorf("list %s notifications: %w", channel, err)
		}

		merged = append(merged, list...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].DueAt.After(merged[j].DueAt)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}

// GetStatus retrieves a notification's status, cache first.
func (s *Service) GetStatus(ctx context.Context, strategy retry.Strategy, channel model.Channel, id uuid.UUID) (model.Status, error) {
	cached, err := s.cache.GetWithRetry(ctx, strategy, statusKey(channel, id))
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status from cache")
	}

	if err == nil && cached != "" {
		return model.Status(cached), nil
	}

	status, err := s.repo.GetStatusByID(ctx, channel, id)
	if err != nil {
		return "", fmt.Errorf("get notification status: %w", err)
	}

	s.cacheStatus(ctx, strategy, channel, id, status)

	return status, nil
}

// ClaimDueBatch claims up to limit due notifications on one channel.
func (s *Service) ClaimDueBatch(ctx context.Context, channel model.Channel, now time.Time, limit int) ([]model.Notification, error) {
	claimed, err := s.repo.ClaimDue(ctx, channel, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}

	return claimed, nil
}

// ReclaimStale requeues notifications stuck in processing longer than
// staleAfter, charging them one attempt.
func (s *Service) ReclaimStale(ctx context.Context, channel model.Channel, now time.Time, staleAfter time.Duration) (int64, error) {
	count, err := s.repo.ReclaimStale(ctx, channel, now.Add(-staleAfter), now)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale notifications: %w", err)
	}

	return count, nil
}

// Deliver composes the message for a claimed notification and sends it.
// For push, every device token is attempted in parallel and delivery
// counts as successful if at least one token accepts.
func (s *Service) Deliver(ctx context.Context, channel model.Channel, n model.Notification) error {
	sender, ok := s.senders[channel]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", channel)
	}

	msg := Compose(n)
	contacts := nonEmpty(n.Contacts)
	if len(contacts) == 0 {
		return ErrNoContact
	}

	if channel != model.ChannelPush {
		return sender.Send(ctx, contacts[0], msg.Subject, msg.Body)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(contacts))

	wg.Add(len(contacts))
	for i, token := range contacts {
		go func(i int, token string) {
			defer wg.Done()
			errs[i] = sender.Send(ctx, token, msg.Subject, msg.Body)
		}(i, token)
	}
	wg.Wait()

	delivered := 0
	for i, err := range errs {
		if err != nil {
			zlog.Logger.Warn().Err(err).
				Str("id", n.ID.String()).
				Int("token", i).
				Msg("push delivery to device token failed")
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("all %d device tokens rejected: %w", len(contacts), errors.Join(errs...))
	}

	if delivered < len(contacts) {
		zlog.Logger.Warn().
			Str("id", n.ID.String()).
			Int("delivered", delivered).
			Int("tokens", len(contacts)).
			Msg("partial push delivery")
	}

	return nil
}

// CompleteSend transitions a claimed notification to sent.
func (s *Service) CompleteSend(ctx context.Context, strategy retry.Strategy, channel model.Channel, id uuid.UUID, at time.Time) error {
	if err := s.repo.MarkSent(ctx, channel, id, at); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	s.cacheStatus(ctx, strategy, channel, id, model.StatusSent)

	return nil
}

// FailSend records a failed delivery attempt: the notification is either
// rescheduled with exponential backoff or, once the attempt limit is
// reached, moved to its terminal failed state. Returns the resulting status.
func (s *Service) FailSend(ctx context.Context, strategy retry.Strategy, channel model.Channel, n model.Notification, at time.Time, sendErr error) (model.Status, error) {
	attempt := n.AttemptCount + 1
	lastError := sendErr.Error()

	if attempt >= n.AttemptLimit {
		if err := s.repo.MarkFailed(ctx, channel, n.ID, attempt, at, lastError); err != nil {
			return "", fmt.Errorf("mark notification failed: %w", err)
		}

		s.cacheStatus(ctx, strategy, channel, n.ID, model.StatusFailed)

		return model.StatusFailed, nil
	}

	// Backoff doubles per attempt: base 5m gives 10, 20, 40 minutes.
	dueAt := at.Add(s.opts.BackoffBase * time.Duration(1<<attempt))

	if err := s.repo.MarkRetry(ctx, channel, n.ID, attempt, dueAt, lastError); err != nil {
		return "", fmt.Errorf("reschedule notification: %w", err)
	}

	s.cacheStatus(ctx, strategy, channel, n.ID, model.StatusScheduled)

	return model.StatusScheduled, nil
}
