// Command handler runs the booking handler service: the intake worker that
// commits bookings from the broker, and the HTTP endpoint listing them.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/taxa-booking/internal/config"
	"github.com/iliyamo/taxa-booking/internal/handler"
	"github.com/iliyamo/taxa-booking/internal/logging"
	"github.com/iliyamo/taxa-booking/internal/middleware"
	"github.com/iliyamo/taxa-booking/internal/queue"
	"github.com/iliyamo/taxa-booking/internal/repository"
	"github.com/iliyamo/taxa-booking/internal/router"
)

func main() {
	cfg, err := config.Load("8081")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewBookingRepo()
	defer func() { _ = repo.Close() }()

	worker := queue.NewWorker(queue.WorkerConfig{
		URL:         queue.BrokerURL(cfg.BrokerHost, cfg.BrokerPort, cfg.BrokerUser, cfg.BrokerPass),
		Concurrency: cfg.WorkerConcurrency,
		ConsumerTag: "taxabooking-handler",
	}, repo, logger)
	// An unreachable broker is fatal at startup; there is no retry loop.
	if err := worker.Start(ctx); err != nil {
		logger.Fatal("start booking worker", zap.String("host", cfg.BrokerHost), zap.Error(err))
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil {
			stop()
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestLogger(logger))
	router.RegisterRoutes(e, &handler.VersionHandler{Service: "BookingHandler", Version: cfg.Version})
	router.RegisterBookingList(e, handler.NewBookingListHandler(repo))

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	<-workerDone
}
