package worker

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/shelfwatch/notifier/internal/model"
)

//go:generate mockgen -source=sweeper.go -destination=../mocks/worker/mock_sweeper.go -package=mocks

// retentionStore is the slice of the repository the sweeper needs.
type retentionStore interface {
	DeleteTerminalBefore(ctx context.Context, channel model.Channel, cutoff time.Time, batch int) (int64, error)
}

// SweeperConfig tunes the retention sweep.
type SweeperConfig struct {
	Window    time.Duration // retention of terminal records, default 30 days
	BatchSize int           // rows deleted per statement, default 500
	MaxPasses int           // single-run safety cap, default 20
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Window <= 0 {
		c.Window = 30 * 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxPasses <= 0 {
		c.MaxPasses = 20
	}
	return c
}

// Sweeper purges sent and failed notifications older than the retention
// window. Scheduled, processing and cancelled records are never touched.
type Sweeper struct {
	store retentionStore
	cfg   SweeperConfig
}

func NewSweeper(store retentionStore, cfg SweeperConfig) *Sweeper {
	return &Sweeper{store: store, cfg: cfg.withDefaults()}
}

// RunOnce sweeps one channel in bounded batches until no more rows match
// or the pass cap is hit. Returns the number of rows removed.
func (s *Sweeper) RunOnce(ctx context.Context, channel model.Channel) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.Window)

	var total int64
	for pass := 0; pass < s.cfg.MaxPasses; pass++ {
		deleted, err := s.store.DeleteTerminalBefore(ctx, channel, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, err
		}

		total += deleted
		if deleted == 0 {
			break
		}
	}

	if total > 0 {
		zlog.Logger.Info().
			Str("channel", string(channel)).
			Int64("deleted", total).
			Msg("retention sweep finished")
	}

	return total, nil
}
