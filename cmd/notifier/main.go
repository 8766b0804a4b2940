package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	"github.com/shelfwatch/notifier/internal/api/handlers/notification"
	"github.com/shelfwatch/notifier/internal/api/router"
	"github.com/shelfwatch/notifier/internal/api/server"
	"github.com/shelfwatch/notifier/internal/config"
	"github.com/shelfwatch/notifier/internal/model"
	notifrepo "github.com/shelfwatch/notifier/internal/repository/notification"
	notifsvc "github.com/shelfwatch/notifier/internal/service/notification"
	"github.com/shelfwatch/notifier/internal/worker"
	"github.com/shelfwatch/notifier/pkg/email"
	"github.com/shelfwatch/notifier/pkg/push"
	"github.com/shelfwatch/notifier/pkg/sms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	repo := notifrepo.NewRepository(db)

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
	}

	senders := map[model.Channel]notifsvc.Sender{
		model.ChannelPush: push.NewClient(cfg.Push.Endpoint, cfg.Push.ServerKey),
		model.ChannelEmail: email.NewClient(
			cfg.Email.SMTPHost,
			smtpPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
		),
		model.ChannelSMS: sms.NewClient(
			cfg.SMS.GatewayURL,
			cfg.SMS.AccountSID,
			cfg.SMS.AuthToken,
			cfg.SMS.From,
		),
	}

	service := notifsvc.NewService(repo, senders, rdb, val, notifsvc.Options{
		AttemptLimit: cfg.Engine.AttemptLimit,
		BackoffBase:  cfg.Engine.BackoffBase,
		LeadDays:     cfg.Engine.LeadDays,
	})

	jobTimeout := cfg.Engine.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 300 * time.Second
	}

	dispatcher := worker.NewDispatcher(service, cfg.Retry, worker.DispatcherConfig{
		BatchSize:   cfg.Engine.BatchSize,
		Workers:     cfg.Engine.Workers,
		SendTimeout: cfg.Engine.SendTimeout,
		StaleAfter:  2 * jobTimeout,
	})
	sweeper := worker.NewSweeper(repo, worker.SweeperConfig{
		Window:    cfg.Retention.Window,
		BatchSize: cfg.Retention.BatchSize,
		MaxPasses: cfg.Retention.MaxPasses,
	})

	dispatchEvery := cfg.Engine.DispatchInterval
	if dispatchEvery <= 0 {
		dispatchEvery = 5 * time.Minute
	}
	sweepEvery := cfg.Retention.SweepInterval
	if sweepEvery <= 0 {
		sweepEvery = 24 * time.Hour
	}
	sweepTimeout := cfg.Retention.JobTimeout
	if sweepTimeout <= 0 {
		sweepTimeout = 300 * time.Second
	}

	// Overlapping runs are skipped rather than stacked: a hung pass must
	// not pile concurrent claims onto the same records.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	for _, channel := range model.Channels {
		channel := channel
		_, err = c.AddFunc("@every "+dispatchEvery.String(), func() {
			runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			dispatcher.RunOnce(runCtx, channel)
		})
		if err != nil {
			zlog.Logger.Fatal().Err(err).Str("channel", string(channel)).Msg("failed to schedule dispatcher")
		}
	}

	_, err = c.AddFunc("@every "+sweepEvery.String(), func() {
		runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()

		for _, channel := range model.Channels {
			if _, err := sweeper.RunOnce(runCtx, channel); err != nil {
				zlog.Logger.Error().Err(err).Str("channel", string(channel)).Msg("retention sweep failed")
			}
		}
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to schedule retention sweeper")
	}

	c.Start()

	notifHandler := notification.NewHandler(service, val, cfg)

	r := router.New(notifHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}
}
