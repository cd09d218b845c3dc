package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ticketgate/internal/booking"
	"ticketgate/internal/checkin"
	"ticketgate/internal/config"
	"ticketgate/internal/http-server/handlers/booking/cancelBooking"
	"ticketgate/internal/http-server/handlers/booking/register"
	"ticketgate/internal/http-server/handlers/checkin/checkIn"
	"ticketgate/internal/http-server/handlers/event/createEvent"
	"ticketgate/internal/http-server/handlers/event/getEvent"
	"ticketgate/internal/http-server/handlers/event/listEvents"
	"ticketgate/internal/http-server/middleware/mwlogger"
	"ticketgate/internal/lib/logger/handlers/slogpretty"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/pubsub"
	"ticketgate/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting ticketgate", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.InitDB(&cfg.Database)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pub pubsub.Publisher = pubsub.Noop{}
	var redisPub *pubsub.Redis
	if cfg.Redis.Enabled {
		redisPub, err = pubsub.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Error("failed to connect to redis", sl.Err(err))
			os.Exit(1)
		}
		pub = redisPub
	}

	bookingSvc := booking.New(log, storage, storage, pub)
	protocol := checkin.New(log, storage, storage)

	go bookingSvc.RunPromotionSweep(ctx, cfg.Waitlist.SweepInterval)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/events", createEvent.New(log, storage))
	router.Get("/events", listEvents.New(log, storage))
	router.Get("/events/{id}", getEvent.New(log, storage))
	router.Post("/events/{id}/register", register.New(log, bookingSvc))
	router.Post("/events/{id}/checkin", checkIn.New(log, protocol))
	router.Post("/bookings/{id}/cancel", cancelBooking.New(log, bookingSvc))

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	go func() {
		if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop <- syscall.SIGTERM
		}
	}()

	sign := <-stop

	log.Info("application stopping", slog.String("signal", sign.String()))

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	log.Info("application stopped")

	if redisPub != nil {
		if err = redisPub.Close(); err != nil {
			log.Error("failed to close redis connection", sl.Err(err))
		}
	}

	if err = storage.Close(); err != nil {
		log.Error("failed to close postgres connection", sl.Err(err))
	}

	log.Info("postgres connection closed")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
