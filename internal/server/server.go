package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type DashboardService interface {
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
}

type AuditService interface {
	ListEntries(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
}

type Server struct {
	db        *sql.DB
	dashboard DashboardService
	audit     AuditService
}

func NewServer(db *sql.DB, dashboard DashboardService, audit AuditService) *Server {
	return &Server{
		db:        db,
		dashboard: dashboard,
		audit:     audit,
	}
}

func (s *Server) HealthCheck(c echo.Context) error {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			log.WithField("error", err).Error("Health check failed: database is down")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database connection error",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) GetDashboard(c echo.Context) error {
	summary, err := s.dashboard.Summary(c.Request().Context())
	if err != nil {
		log.WithError(err).Error("Failed to build dashboard summary")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, summary)
}

func (s *Server) ListAuditoria(c echo.Context) error {
	limit, offset := parsePagination(c)

	entries, err := s.audit.ListEntries(c.Request().Context(), limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list audit entries")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, entries)
}

// parsePagination reads limit/offset query params. Zero values are
// returned untouched so each service applies its own defaults.
func parsePagination(c echo.Context) (int, int) {
	limit := 0
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
