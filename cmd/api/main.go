package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/festivo/ticketing/internal/bootstrap"
	"github.com/festivo/ticketing/internal/clock"
	"github.com/festivo/ticketing/internal/controller"
	"github.com/festivo/ticketing/internal/providers"
	"github.com/festivo/ticketing/internal/repository/postgres"
	"github.com/festivo/ticketing/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "ticketing-api", "ticketing")
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
	clk := clock.NewSystem()
	encryptors := providers.NewRegistry()
	reservationSvc := service.NewReservationService(
		orderRepo, ticketRepo, txManager, clk,
		service.WithReservationTTL(app.Config.Reservation.TTL),
	)
	paymentSvc := service.NewPaymentService(
		orderRepo, ticketRepo, messageRepo, outboxRepo, txManager, encryptors, clk,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:               app.Pool,
		RedisClient:        app.Redis,
		OrderRepo:          orderRepo,
		ReservationService: reservationSvc,
		PaymentService:     paymentSvc,
		Metrics:            app.Metrics,
		CORSConfig:         app.Config.Server.CORS,
		JWTSecret:          app.Config.Auth.JWTSecret,
		RateLimitPerMinute: app.Config.Server.RateLimitPerMinute,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
