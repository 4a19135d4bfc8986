package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Ticker API
	s.echo.GET("/api/cycle", s.handleCycle)
	s.echo.GET("/api/tickers", s.handleTickers)
	s.echo.GET("/api/tickers/:symbol", s.handleTicker)

	// Operations
	s.echo.POST("/api/refresh", s.handleRefresh)
	s.echo.POST("/api/refresh/:symbol", s.handleRefresh)
	s.echo.GET("/api/weights", s.handleGetWeights)
	s.echo.PUT("/api/weights", s.handleSetWeights)
	s.echo.POST("/api/cache/invalidate", s.handleInvalidateCache)
	s.echo.DELETE("/api/history", s.handleClearHistory)
}
