package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/festivo/ticketing/internal/bootstrap"
	"github.com/festivo/ticketing/internal/domain/outbox"
	infraRedis "github.com/festivo/ticketing/internal/infrastructure/redis"
	"github.com/festivo/ticketing/internal/relay"
	"github.com/festivo/ticketing/internal/repository/postgres"
	"github.com/festivo/ticketing/internal/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "ticketing-worker", "ticketing_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	ticketRepo := postgres.NewTicketRepository(app.Pool)
	messageRepo := postgres.NewMessageRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Services ---
	replySvc := service.NewReplyService(orderRepo, ticketRepo, messageRepo, outboxRepo, txManager)

	// --- Outbox relay ---
	producer := infraRedis.NewStreamProducer(app.Redis)
	leaderLock := infraRedis.NewDistributedLock(app.Redis, "outbox-relay", app.Config.Relay.LeaderLockTTL)
	outboxRelay := relay.New(
		outboxRepo, txManager, producer, leaderLock, app.Logger, app.Metrics,
		relay.Config{
			PollInterval:   app.Config.Relay.PollInterval,
			BatchSize:      app.Config.Relay.BatchSize,
			PublishRetries: app.Config.Relay.PublishRetries,
		},
	)

	// --- Reply consumers, one per reply stream ---
	handlers := relay.NewReplyHandlers(replySvc)
	consumerCfg := app.Config.Consumer
	consumers := make([]*relay.Consumer, 0, len(handlers))
	for _, topic := range []string{
		outbox.TopicTicketCreateReply,
		outbox.TopicMessageSendReply,
		outbox.TopicCancellationWindow,
	} {
		stream := infraRedis.NewStreamConsumer(
			app.Redis,
			topic,
			consumerCfg.Group,
			app.Config.InstanceID,
			consumerCfg.BatchSize,
			consumerCfg.BlockDuration,
		)
		consumers = append(consumers,
			relay.NewConsumer(stream, topic, handlers[topic], app.Logger, app.Metrics))
	}

	app.Logger.Info().
		Str("group", consumerCfg.Group).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return outboxRelay.Run(gCtx)
	})

	for _, c := range consumers {
		g.Go(func() error {
			return c.Run(gCtx)
		})
	}

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
