package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type EmpresaService interface {
	ListEmpresas(ctx context.Context, ativo *bool, limit, offset int) ([]domain.Empresa, error)
	GetEmpresa(ctx context.Context, id string) (*domain.Empresa, error)
	CreateEmpresa(ctx context.Context, req domain.CreateEmpresaRequest) (*domain.Empresa, error)
	UpdateEmpresa(ctx context.Context, id string, req domain.UpdateEmpresaRequest) (*domain.Empresa, error)
	DeleteEmpresa(ctx context.Context, id string) error
}

type empresaServer struct {
	empresaService EmpresaService
}

func NewEmpresaServer(empresaService EmpresaService) *empresaServer {
	return &empresaServer{
		empresaService: empresaService,
	}
}

func handleEmpresaError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmpresaNotFound):
		return http.StatusNotFound, domain.ErrEmpresaNotFound.Error()
	case errors.Is(err, domain.ErrEmpresaCNPJExists):
		return http.StatusConflict, domain.ErrEmpresaCNPJExists.Error()
	case errors.Is(err, domain.ErrInvalidCNPJ),
		errors.Is(err, domain.ErrInvalidRegime),
		errors.Is(err, domain.ErrInvalidEmpresa):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *empresaServer) ListEmpresas(c echo.Context) error {
	limit, offset := parsePagination(c)

	var ativo *bool
	switch c.QueryParam("ativo") {
	case "true":
		v := true
		ativo = &v
	case "false":
		v := false
		ativo = &v
	}

	empresas, err := s.empresaService.ListEmpresas(c.Request().Context(), ativo, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list empresas")
		statusCode, errorMsg := handleEmpresaError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, empresas)
}

func (s *empresaServer) GetEmpresa(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	empresa, err := s.empresaService.GetEmpresa(c.Request().Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrEmpresaNotFound) {
			log.WithError(err).WithField("empresa_id", id).Error("Failed to get empresa")
		}
		statusCode, errorMsg := handleEmpresaError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, empresa)
}

func (s *empresaServer) CreateEmpresa(c echo.Context) error {
	var req domain.CreateEmpresaRequest
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

	empresa, err := s.empresaService.CreateEmpresa(c.Request().Context(), req)
	if err != nil {
		log.WithError(err).Error("Failed to create empresa")
		statusCode, errorMsg := handleEmpresaError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, empresa)
}

func (s *empresaServer) UpdateEmpresa(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	var req domain.UpdateEmpresaRequest
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

	empresa, err := s.empresaService.UpdateEmpresa(c.Request().Context(), id, req)
	if err != nil {
		if !errors.Is(err, domain.ErrEmpresaNotFound) {
			log.WithError(err).WithField("empresa_id", id).Error("Failed to update empresa")
		}
		statusCode, errorMsg := handleEmpresaError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, empresa)
}

func (s *empresaServer) DeleteEmpresa(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "requisição inválida",
		})
	}

	if err := s.empresaService.DeleteEmpresa(c.Request().Context(), id); err != nil {
		if !errors.Is(err, domain.ErrEmpresaNotFound) {
			log.WithError(err).WithField("empresa_id", id).Error("Failed to delete empresa")
		}
		statusCode, errorMsg := handleEmpresaError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.NoContent(http.StatusNoContent)
}
