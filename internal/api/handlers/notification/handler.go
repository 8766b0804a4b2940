package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/shelfwatch/notifier/internal/api/respond"
	"github.com/shelfwatch/notifier/internal/config"
	"github.com/shelfwatch/notifier/internal/model"
	"github.com/shelfwatch/notifier/internal/repository/notification"
	svc "github.com/shelfwatch/notifier/internal/service/notification"
)

// reminderService defines the interface that the Handler depends on.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks
type reminderService interface {
	RequestReminder(ctx context.Context, strategy retry.Strategy, req svc.ReminderRequest) (*svc.FanoutResult, error)
	CancelReminder(ctx context.Context, strategy retry.Strategy, subjectID, ownerID string) (int64, error)
	ListNotifications(ctx context.Context, ownerID string, status model.Status, limit int) ([]model.Notification, error)
	GetStatus(ctx context.Context, strategy retry.Strategy, channel model.Channel, id uuid.UUID) (model.Status, error)
}

// Handler handles HTTP requests for scheduling, cancelling and inspecting
// reminders.
type Handler struct {
	service   reminderService
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(s reminderService, v *validator.Validate, cfg *config.Config) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// CreateRequest represents the JSON body of a reminder request.
type CreateRequest struct {
	OwnerID      string                 `json:"owner_id" validate:"required"`
	SubjectID    string                 `json:"subject_id" validate:"required"`
	SubjectLabel string                 `json:"subject_label" validate:"required"`
	Category     string                 `json:"category"`
	Kind         string                 `json:"kind"`
	DueAt        string                 `json:"due_at" validate:"required"`
	LeadDays     int                    `json:"lead_days"`
	Preferences  svc.ChannelPreferences `json:"preferences"`
	Contacts     svc.Contacts           `json:"contacts"`
}

// Create handles POST requests to schedule a reminder across the owner's
// enabled channels.
func (h *Handler) Create(c *ginext.Context) {
	var req CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse due_at time")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid due_at format, expected RFC3339"))
		return
	}

	result, err := h.service.RequestReminder(c.Request.Context(), h.cfg.Retry, svc.ReminderRequest{
		OwnerID:      req.OwnerID,
		SubjectID:    req.SubjectID,
		SubjectLabel: req.SubjectLabel,
		Category:     model.Category(req.Category),
		Kind:         req.Kind,
		DueAt:        dueAt,
		LeadDays:     req.LeadDays,
		Preferences:  req.Preferences,
		Contacts:     req.Contacts,
	})
	if err != nil {
		if errors.Is(err, svc.ErrValidation) {
			zlog.Logger.Warn().Err(err).Str("subject_id", req.SubjectID).Msg("reminder request rejected")
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("subject_id", req.SubjectID).Msg("failed to schedule reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, result)
}

// TestRequest represents the JSON body of the diagnostic endpoint.
type TestRequest struct {
	OwnerID     string                 `json:"owner_id" validate:"required"`
	Preferences svc.ChannelPreferences `json:"preferences"`
	Contacts    svc.Contacts           `json:"contacts"`
}

// Test handles POST requests to the diagnostic entry point: it schedules a
// one-off test reminder two minutes out on every contactable channel.
func (h *Handler) Test(c *ginext.Context) {
	var req TestRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	result, err := h.service.RequestReminder(c.Request.Context(), h.cfg.Retry, svc.ReminderRequest{
		OwnerID:      req.OwnerID,
		SubjectID:    "test-" + uuid.NewString(),
		SubjectLabel: "Test reminder",
		Category:     model.CategoryTest,
		Kind:         "test",
		DueAt:        time.Now().Add(2 * time.Minute),
		Preferences:  req.Preferences,
		Contacts:     req.Contacts,
	})
	if err != nil {
		if errors.Is(err, svc.ErrValidation) {
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to schedule test reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, result)
}

// Cancel handles DELETE requests to cancel every still-scheduled
// notification for a subject, optionally restricted to one owner.
func (h *Handler) Cancel(c *ginext.Context) {
	subjectID := c.Param("subjectId")
	if subjectID == "" {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing subject id"))
		return
	}

	ownerID := c.Query("owner_id")

	cancelled, err := h.service.CancelReminder(c.Request.Context(), h.cfg.Retry, subjectID, ownerID)
	if err != nil {
		if errors.Is(err, svc.ErrValidation) {
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("subject_id", subjectID).Msg("failed to cancel reminders")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, map[string]int64{"cancelled": cancelled})
}

// List handles GET requests for an owner's notifications across all
// channels, newest due first.
func (h *Handler) List(c *ginext.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing owner_id"))
		return
	}

	status := model.Status(c.Query("status"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid limit"))
			return
		}
		limit = parsed
	}

	notifications, err := h.service.ListNotifications(c.Request.Context(), ownerID, status, limit)
	if err != nil {
		if errors.Is(err, svc.ErrValidation) {
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("owner_id", ownerID).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notifications)
}

// GetStatus handles GET requests for one notification's delivery status.
func (h *Handler) GetStatus(c *ginext.Context) {
	channel := model.Channel(c.Param("channel"))
	if !channel.Valid() {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid channel"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", c.Param("id")).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), h.cfg.Retry, channel, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}
