package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type FiscalService interface {
	ListRecords(ctx context.Context, filter domain.FiscalRecordFilter) ([]domain.FiscalRecord, error)
	GetRecord(ctx context.Context, id string) (*domain.FiscalRecord, error)
	CreateRecord(ctx context.Context, req domain.CreateFiscalRecordRequest) (*domain.FiscalRecord, error)
	UpdateRecord(ctx context.Context, id string, req domain.UpdateFiscalRecordRequest) (*domain.FiscalRecord, error)
	DeleteRecord(ctx context.Context, id string) error
}

type fiscalServer struct {
	fiscalService FiscalService
}

func NewFiscalServer(fiscalService FiscalService) *fiscalServer {
	return &fiscalServer{
		fiscalService: fiscalService,
	}
}

func handleFiscalError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, domain.ErrRecordNotFound.Error()
	case errors.Is(err, domain.ErrRecordExists), errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidCNPJ),
		errors.Is(err, domain.ErrInvalidPeriodo),
		errors.Is(err, domain.ErrInvalidEmpresa),
		errors.Is(err, domain.ErrMissingInput),
		errors.Is(err, domain.ErrNegativeInput),
		errors.Is(err, domain.ErrZeroReceitaBruta):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *fiscalServer) ListCalculos(c echo.Context) error {
	limit, offset := parsePagination(c)

	filter := domain.FiscalRecordFilter{
		CNPJ:    c.QueryParam("cnpj"),
		Periodo: c.QueryParam("periodo"),
		Status:  c.QueryParam("status"),
		Limit:   limit,
		Offset:  offset,
	}

	records, err := s.fiscalService.ListRecords(c.Request().Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list fiscal records")
		statusCode, errorMsg := handleFiscalError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, records)
}

func (s *fiscalServer) GetCalculo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	record, err := s.fiscalService.GetRecord(c.Request().Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			log.WithError(err).WithField("record_id", id).Error("Failed to get fiscal record")
		}
		statusCode, errorMsg := handleFiscalError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, record)
}

func (s *fiscalServer) CreateCalculo(c echo.Context) error {
	var req domain.CreateFiscalRecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "dados obrigatórios ausentes ou inválidos",
		})
	}

	record, err := s.fiscalService.CreateRecord(c.Request().Context(), req)
	if err != nil {
		log.WithError(err).Error("Failed to create fiscal record")
		statusCode, errorMsg := handleFiscalError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, record)
}

func (s *fiscalServer) UpdateCalculo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	var req domain.UpdateFiscalRecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	record, err := s.fiscalService.UpdateRecord(c.Request().Context(), id, req)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) && !errors.Is(err, domain.ErrVersionConflict) {
			log.WithError(err).WithField("record_id", id).Error("Failed to update fiscal record")
		}
		statusCode, errorMsg := handleFiscalError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, record)
}

func (s *fiscalServer) DeleteCalculo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	if err := s.fiscalService.DeleteRecord(c.Request().Context(), id); err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			log.WithError(err).WithField("record_id", id).Error("Failed to delete fiscal record")
		}
		statusCode, errorMsg := handleFiscalError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Cálculo excluído com sucesso",
	})
}
