package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/shelfwatch/notifier/internal/model"
	"github.com/shelfwatch/notifier/internal/service/notification"
)

//go:generate mockgen -source=dispatcher.go -destination=../mocks/worker/mock.go -package=mocks

// dispatchService is the slice of the notification service the dispatcher
// drives: claiming due work, delivering it and recording outcomes.
type dispatchService interface {
	ReclaimStale(ctx context.Context, channel model.Channel, now time.Time, staleAfter time.Duration) (int64, error)
	ClaimDueBatch(ctx context.Context, channel model.Channel, now time.Time, limit int) ([]model.Notification, error)
	Deliver(ctx context.Context, channel model.Channel, n model.Notification) error
	CompleteSend(ctx context.Context, strategy retry.Strategy, channel model.Channel, id uuid.UUID, at time.Time) error
	FailSend(ctx context.Context, strategy retry.Strategy, channel model.Channel, n model.Notification, at time.Time, sendErr error) (model.Status, error)
}

// DispatcherConfig tunes one dispatcher pass.
type DispatcherConfig struct {
	BatchSize   int           // records claimed per pass, default 100
	Workers     int           // concurrent sends per pass, default 4
	SendTimeout time.Duration // wall-time bound per send, default 30s
	StaleAfter  time.Duration // processing age treated as an abandoned claim, default 10m
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Minute
	}
	return c
}

// Summary reports the outcome of one dispatcher pass on one channel.
type Summary struct {
	Channel   model.Channel
	Reclaimed int64
	Processed int
	Sent      int
	Retried   int
	Failed    int
	Skipped   int
	Errors    []string
}

// Dispatcher periodically drains due notifications on a channel: it claims
// a bounded batch, sends each record through the channel sender and
// transitions it to sent, back to scheduled with backoff, or to failed.
type Dispatcher struct {
	service  dispatchService
	strategy retry.Strategy
	cfg      DispatcherConfig
}

func NewDispatcher(service dispatchService, strategy retry.Strategy, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		service:  service,
		strategy: strategy,
		cfg:      cfg.withDefaults(),
	}
}

// RunOnce performs a single dispatcher pass for one channel.
func (d *Dispatcher) RunOnce(ctx context.Context, channel model.Channel) Summary {
	now := time.Now()
	summary := Summary{Channel: channel}

	reclaimed, err := d.service.ReclaimStale(ctx, channel, now, d.cfg.StaleAfter)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("channel", string(channel)).Msg("failed to reclaim stale notifications")
	} else if reclaimed > 0 {
		zlog.Logger.Warn().Int64("count", reclaimed).Str("channel", string(channel)).Msg("requeued abandoned claims")
	}
	summary.Reclaimed = reclaimed

	claimed, err := d.service.ClaimDueBatch(ctx, channel, now, d.cfg.BatchSize)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("channel", string(channel)).Msg("failed to claim due notifications")
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}

	if len(claimed) == 0 {
		return summary
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan model.Notification)
	)

	workers := d.cfg.Workers
	if workers > len(claimed) {
		workers = len(claimed)
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for n := range jobs {
				outcome := d.process(ctx, channel, n)

				mu.Lock()
				summary.Processed++
				switch outcome.status {
				case model.StatusSent:
					summary.Sent++
				case model.StatusScheduled:
					summary.Retried++
				case model.StatusFailed:
					summary.Failed++
				default:
					summary.Skipped++
				}
				if outcome.err != "" {
					summary.Errors = append(summary.Errors, outcome.err)
				}
				mu.Unlock()
			}
		}()
	}

	for _, n := range claimed {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	zlog.Logger.Info().
		Str("channel", string(channel)).
		Int("processed", summary.Processed).
		Int("sent", summary.Sent).
		Int("retried", summary.Retried).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("dispatcher pass finished")

	return summary
}

type outcome struct {
	status model.Status
	err    string
}

// process delivers one claimed notification and records the transition.
// One record's failure never aborts the rest of the batch.
func (d *Dispatcher) process(ctx context.Context, channel model.Channel, n model.Notification) outcome {
	sendErr := d.deliver(ctx, channel, n)
	now := time.Now()

	if errors.Is(sendErr, notification.ErrNoContact) {
		// No destination: no attempt is charged. The record stays claimed
		// and the stale-claim reclaim will eventually retire it.
		zlog.Logger.Warn().Str("id", n.ID.String()).Str("channel", string(channel)).Msg("skipping notification without contact")
		return outcome{}
	}

	if sendErr == nil {
		if err := d.service.CompleteSend(ctx, d.strategy, channel, n.ID, now); err != nil {
			zlog.Logger.Error().Err(err).Str("id", n.ID.String()).Msg("failed to mark notification sent")
			return outcome{status: model.StatusSent, err: err.Error()}
		}
		return outcome{status: model.StatusSent}
	}

	status, err := d.service.FailSend(ctx, d.strategy, channel, n, now, sendErr)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", n.ID.String()).Msg("failed to record delivery failure")
		return outcome{err: err.Error()}
	}

	return outcome{
		status: status,
		err:    fmt.Sprintf("%s: %s", n.ID, sendErr),
	}
}

// deliver runs one send under the per-send timeout, recovering sender
// panics. Senders that ignore context cancellation still cannot hold the
// batch: the wait is bounded even if the goroutine lingers.
func (d *Dispatcher) deliver(ctx context.Context, channel model.Channel, n model.Notification) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sender panic: %v", r)
			}
		}()
		done <- d.service.Deliver(sendCtx, channel, n)
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("send timed out: %w", sendCtx.Err())
	}
}
