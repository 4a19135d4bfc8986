package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
)

func (s *Server) handleCycle(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Cycle())
}

func (s *Server) handleTickers(c echo.Context) error {
	snapshots := s.service.Snapshots()
	if snapshots == nil {
		snapshots = []domain.TickerSnapshot{}
	}
	return c.JSON(http.StatusOK, snapshots)
}

func (s *Server) handleTicker(c echo.Context) error {
	snap, err := s.service.Snapshot(c.Param("symbol"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.service.RefreshNow(c.Request().Context(), c.Param("symbol")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *Server) handleGetWeights(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Weighting())
}

func (s *Server) handleSetWeights(c echo.Context) error {
	var w domain.Weights
	if err := c.Bind(&w); err != nil {
		return errorResponse(c, apperrors.ValidationError("malformed weights payload"))
	}
	if err := s.service.SetWeighting(w); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleInvalidateCache(c echo.Context) error {
	s.service.ForceUpdateCache()
	return c.JSON(http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) handleClearHistory(c echo.Context) error {
	if err := s.service.ClearHistoricalData(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// errorResponse maps structured errors onto their HTTP status and JSON body.
func errorResponse(c echo.Context, err error) error {
	structured := apperrors.AsStructuredError(err)
	return c.JSON(structured.HTTPStatus(), structured.ToResponse())
}
