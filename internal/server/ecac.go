package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type MergerService interface {
	SyncCertidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error)
	SyncPendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error)
}

type ecacServer struct {
	mergerService MergerService
}

func NewEcacServer(mergerService MergerService) *ecacServer {
	return &ecacServer{
		mergerService: mergerService,
	}
}

func handleEcacError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCNPJ):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *ecacServer) SyncCertidoes(c echo.Context) error {
	cnpj := c.Param("cnpj")
	if cnpj == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	certidoes, err := s.mergerService.SyncCertidoes(c.Request().Context(), cnpj)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCNPJ) {
			log.WithError(err).WithField("cnpj", cnpj).Error("Failed to sync certidoes")
		}
		statusCode, errorMsg := handleEcacError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cnpj":      cnpj,
		"certidoes": certidoes,
	})
}

func (s *ecacServer) SyncPendencias(c echo.Context) error {
	cnpj := c.Param("cnpj")
	if cnpj == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	pendencias, err := s.mergerService.SyncPendencias(c.Request().Context(), cnpj)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCNPJ) {
			log.WithError(err).WithField("cnpj", cnpj).Error("Failed to sync pendencias")
		}
		statusCode, errorMsg := handleEcacError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cnpj":       cnpj,
		"pendencias": pendencias,
	})
}
