package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/shelfwatch/notifier/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnknownChannel       = errors.New("unknown notification channel")
)

// channelTables maps each delivery channel to its notifications table.
// The tables share one shape; only the contact column differs (text[]
// of device tokens for push, a single text address otherwise).
var channelTables = map[model.Channel]string{
	model.ChannelPush:  "push_notifications",
	model.ChannelEmail: "email_notifications",
	model.ChannelSMS:   "sms_notifications",
}

const notificationColumns = `id, owner_id, subject_id, subject_label, category, kind, due_at, contact, lead_days, status, attempt_count, attempt_limit, last_error, created_at, claimed_at, sent_at, failed_at, cancelled_at`

// Repository provides access to the per-channel notification tables.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

func table(channel model.Channel) (string, error) {
	t, ok := channelTables[channel]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	return t, nil
}

// contactArg converts the contact slice into the column value for the
// given channel: an array for push, the single address otherwise.
func contactArg(channel model.Channel, contacts []string) interface{} {
	if channel == model.ChannelPush {
		return pq.Array(contacts)
	}

	if len(contacts) == 0 {
		return ""
	}

	return contacts[0]
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(channel model.Channel, row rowScanner) (model.Notification, error) {
	var (
		n       model.Notification
		tokens  pq.StringArray
		contact string
	)

	contactDest := interface{}(&contact)
	if channel == model.ChannelPush {
		contactDest = &tokens
	}

	err := row.Scan(
		&n.ID, &n.OwnerID, &n.SubjectID, &n.SubjectLabel, &n.Category, &n.Kind,
		&n.DueAt, contactDest, &n.LeadDays, &n.Status, &n.AttemptCount,
		&n.AttemptLimit, &n.LastError, &n.CreatedAt, &n.ClaimedAt, &n.SentAt,
		&n.FailedAt, &n.CancelledAt,
	)
	if err != nil {
		return model.Notification{}, err
	}

	n.Channel = channel
	if channel == model.ChannelPush {
		n.Contacts = tokens
	} else {
		n.Contacts = []string{contact}
	}

	return n, nil
}

// CreateNotification inserts a new scheduled notification and returns its ID.
func (r *Repository) CreateNotification(ctx context.Context, channel model.Channel, n model.Notification) (uuid.UUID, error) {
	t, err := table(channel)
	if err != nil {
		return uuid.Nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
		    owner_id, subject_id, subject_label, category, kind, due_at,
		    contact, lead_days, status, attempt_count, attempt_limit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id;
    `, t)

	err = r.db.Master.QueryRowContext(
		ctx, query,
		n.OwnerID, n.SubjectID, n.SubjectLabel, n.Category, n.Kind, n.DueAt,
		contactArg(channel, n.Contacts), n.LeadDays, n.Status, n.AttemptCount, n.AttemptLimit,
	).Scan(&n.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n.ID, nil
}

// ClaimDue atomically moves up to limit due scheduled notifications to
// processing and returns the claimed records. The status condition makes
// the claim a conditional update: rows grabbed by an overlapping run are
// simply not matched.
func (r *Repository) ClaimDue(ctx context.Context, channel model.Channel, now time.Time, limit int) ([]model.Notification, error) {
	t, err := table(channel)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, claimed_at = $2
		WHERE id IN (
		    SELECT id FROM %s
		    WHERE status = $3 AND due_at <= $4
		    ORDER BY due_at
		    LIMIT $5
		) AND status = $3
		RETURNING `+notificationColumns+`;
    `, t, t)

	rows, err := r.db.QueryContext(ctx, query, model.StatusProcessing, now, model.StatusScheduled, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due notifications: %w", err)
	}
	defer rows.Close()

	var claimed []model.Notification
	for rows.Next() {
		n, err := scanNotification(channel, rows)
		if err != nil {
			return nil, err
		}

		claimed = append(claimed, n)
	}

	return claimed, rows.Err()
}

// ReclaimStale requeues processing notifications whose claim is older than
// cutoff. A crash mid-batch leaves records parked in processing; this
// counts the lost attempt and either reschedules them or, once the attempt
// limit is reached, fails them.
func (r *Repository) ReclaimStale(ctx context.Context, channel model.Channel, cutoff, now time.Time) (int64, error) {
	t, err := table(channel)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = CASE WHEN attempt_count + 1 >= attempt_limit THEN $1 ELSE $2 END,
		    attempt_count = attempt_count + 1,
		    failed_at = CASE WHEN attempt_count + 1 >= attempt_limit THEN $3 ELSE failed_at END,
		    last_error = $4
		WHERE status = $5 AND claimed_at < $6;
    `, t)

	res, err := r.db.ExecContext(
		ctx, query,
		model.StatusFailed, model.StatusScheduled, now,
		"claim expired before delivery completed",
		model.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale notifications: %w", err)
	}

	count, _ := res.RowsAffected()

	return count, nil
}

// MarkSent transitions a processing notification to sent.
func (r *Repository) MarkSent(ctx context.Context, channel model.Channel, id uuid.UUID, at time.Time) error {
	t, err := table(channel)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, sent_at = $2
		WHERE id = $3 AND status = $4;
    `, t)

	res, err := r.db.ExecContext(ctx, query, model.StatusSent, at, id, model.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkRetry moves a processing notification back to scheduled with the
// incremented attempt count, the recomputed due time and the last error.
func (r *Repository) MarkRetry(ctx context.Context, channel model.Channel, id uuid.UUID, attempt int, dueAt time.Time, lastError string) error {
	t, err := table(channel)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, due_at = $2, attempt_count = $3, last_error = $4
		WHERE id = $5 AND status = $6;
    `, t)

	res, err := r.db.ExecContext(ctx, query, model.StatusScheduled, dueAt, attempt, lastError, id, model.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkFailed transitions a processing notification to its terminal failed
// state after the attempt limit has been exhausted.
func (r *Repository) MarkFailed(ctx context.Context, channel model.Channel, id uuid.UUID, attempt int, at time.Time, lastError string) error {
	t, err := table(channel)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, failed_at = $2, attempt_count = $3, last_error = $4
		WHERE id = $5 AND status = $6;
    `, t)

	res, err := r.db.ExecContext(ctx, query, model.StatusFailed, at, attempt, lastError, id, model.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// CancelBySubject cancels all still-scheduled notifications for a subject,
// optionally restricted to one owner. Records already claimed or terminal
// are left untouched. Returns the IDs of the records cancelled.
func (r *Repository) CancelBySubject(ctx context.Context, channel model.Channel, subjectID, ownerID string, at time.Time) ([]uuid.UUID, error) {
	t, err := table(channel)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, cancelled_at = $2
		WHERE status = $3 AND subject_id = $4 AND ($5 = '' OR owner_id = $5)
		RETURNING id;
    `, t)

	rows, err := r.db.QueryContext(ctx, query, model.StatusCancelled, at, model.StatusScheduled, subjectID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel notifications: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListByOwner retrieves notifications for one owner on one channel, newest
// due first, optionally filtered by status.
func (r *Repository) ListByOwner(ctx context.Context, channel model.Channel, ownerID string, status model.Status, limit int) ([]model.Notification, error) {
	t, err := table(channel)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT `+notificationColumns+`
		FROM %s
		WHERE owner_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY due_at DESC
		LIMIT $3;
    `, t)

	rows, err := r.db.QueryContext(ctx, query, ownerID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(channel, rows)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// GetStatusByID retrieves the status of a notification by its ID.
func (r *Repository) GetStatusByID(ctx context.Context, channel model.Channel, id uuid.UUID) (model.Status, error) {
	t, err := table(channel)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		SELECT status
		FROM %s
		WHERE id = $1;
    `, t)

	var status model.Status
	err = r.db.Master.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to get notification status: %w", err)
	}

	return status, nil
}

// DeleteTerminalBefore deletes one batch of sent or failed notifications
// whose terminal timestamp is older than cutoff. Returns the number of
// rows removed; callers loop until it reports zero.
func (r *Repository) DeleteTerminalBefore(ctx context.Context, channel model.Channel, cutoff time.Time, batch int) (int64, error) {
	t, err := table(channel)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE ctid IN (
		    SELECT ctid FROM %s
		    WHERE status IN ($1, $2)
		      AND COALESCE(sent_at, failed_at, claimed_at) < $3
		    LIMIT $4
		);
    `, t, t)

	res, err := r.db.ExecContext(ctx, query, model.StatusSent, model.StatusFailed, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}

	count, _ := res.RowsAffected()

	return count, nil
}
