package main

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/deskwatch/deskwatch/pkg/collector"
	"github.com/deskwatch/deskwatch/pkg/config"
	"github.com/deskwatch/deskwatch/pkg/logging"
	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	client := zendesk.NewClient(cfg.Zendesk, logger)
	engine := sla.NewEngine(sla.WithCalendar(sla.NewCalendar(cfg.Calendar)))
	coll := collector.New(client, engine, cfg.Window(), cfg.EnrichLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collectErr := make(chan error, 1)
	go func() {
		collectErr <- coll.Run(ctx, cfg.RefreshInterval)
	}()

	h := &handler{
		client: client,
		engine: engine,
		coll:   coll,
		log:    logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	if cfg.DashboardToken != "" {
		token := cfg.DashboardToken
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:Authorization,query:token",
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
			},
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/healthz"
			},
		}))
	}

	e.GET("/", h.index)
	e.GET("/healthz", h.health)
	e.GET("/api/tickets", h.tickets)
	e.GET("/api/ticket/:id", h.ticketDetail)

	go func() {
		logger.Info("starting dashboard", zap.String("addr", cfg.DashboardAddr))
		if err := e.Start(cfg.DashboardAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-collectErr:
		if err != nil {
			logger.Error("collector stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
