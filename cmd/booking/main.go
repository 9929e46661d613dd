// Command booking runs the booking service: it accepts bookings over HTTP
// and forwards them to the broker for the handler service to pick up.
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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/taxa-booking/internal/config"
	"github.com/iliyamo/taxa-booking/internal/handler"
	"github.com/iliyamo/taxa-booking/internal/logging"
	"github.com/iliyamo/taxa-booking/internal/middleware"
	"github.com/iliyamo/taxa-booking/internal/queue"
	"github.com/iliyamo/taxa-booking/internal/router"
	"github.com/iliyamo/taxa-booking/internal/service"
)

func main() {
	cfg, err := config.Load("8080")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	brokerURL := queue.BrokerURL(cfg.BrokerHost, cfg.BrokerPort, cfg.BrokerUser, cfg.BrokerPass)
	logger.Info("using message broker", zap.String("host", cfg.BrokerHost), zap.Bool("confirm", cfg.PublishConfirm))
	pub := queue.NewPublisher(queue.PublisherConfig{
		URL:            brokerURL,
		Confirm:        cfg.PublishConfirm,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, logger)
	defer func() { _ = pub.Close() }()

	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Fatal("load rate limit config", zap.Error(err))
	}
	var rdb *redis.Client
	if rlCfg.Enabled {
		if rdb = config.NewRedisClient(); rdb == nil {
			logger.Warn("redis unavailable, rate limiting disabled")
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestLogger(logger))
	router.RegisterRoutes(e, &handler.VersionHandler{Service: "Booking", Version: cfg.Version})
	router.RegisterBooking(e,
		handler.NewBookingHandler(service.NewBookingService(pub, logger)),
		middleware.NewTokenBucket(rlCfg, rdb, logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
}
