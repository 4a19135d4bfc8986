// Package server is the HTTP surface: health, metrics and the ticker API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pscheid92/memepulse/internal/app"
	"github.com/pscheid92/memepulse/internal/config"
)

// redisPinger is the minimal readiness check against Redis.
type redisPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	service   *app.Service
	redis     redisPinger // nil when Redis is not configured
	startTime time.Time
}

// NewServer wires the HTTP layer. redis may be nil.
func NewServer(cfg *config.Config, service *app.Service, redis redisPinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		service:   service,
		redis:     redis,
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
