package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type EmpresaRepository interface {
	List(ctx context.Context, ativo *bool, limit, offset int) ([]domain.Empresa, error)
	GetByID(ctx context.Context, id string) (*domain.Empresa, error)
	GetByCNPJ(ctx context.Context, cnpj string) (*domain.Empresa, error)
	Create(ctx context.Context, empresa domain.Empresa) (*domain.Empresa, error)
	Update(ctx context.Context, id string, req domain.UpdateEmpresaRequest) (*domain.Empresa, error)
	Delete(ctx context.Context, id string) error
	CountAtivas(ctx context.Context) (int64, error)
}

type empresaService struct {
	repo EmpresaRepository
}

func NewEmpresaService(repo EmpresaRepository) *empresaService {
	return &empresaService{repo: repo}
}

func (s *empresaService) CreateEmpresa(ctx context.Context, req domain.CreateEmpresaRequest) (*domain.Empresa, error) {
	cnpj, err := domain.NormalizeCNPJ(req.CNPJ)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEmpresaName(req.RazaoSocial); err != nil {
		return nil, err
	}

	regime := req.Regime
	if regime == "" {
		regime = domain.RegimeSimples
	}
	if err := domain.ValidateRegime(regime); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByCNPJ(ctx, cnpj)
	if err != nil && err != domain.ErrEmpresaNotFound {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to check empresa uniqueness")
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmpresaCNPJExists
	}

	ativo := true
	if req.Ativo != nil {
		ativo = *req.Ativo
	}

	now := time.Now().UTC()
	empresa := domain.Empresa{
		ID:           uuid.NewString(),
		CNPJ:         cnpj,
		RazaoSocial:  req.RazaoSocial,
		NomeFantasia: req.NomeFantasia,
		Regime:       regime,
		Cidade:       req.Cidade,
		Estado:       req.Estado,
		Email:        req.Email,
		Ativo:        ativo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, empresa)
	if err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to create empresa")
		return nil, err
	}
	return created, nil
}

func (s *empresaService) GetEmpresa(ctx context.Context, id string) (*domain.Empresa, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *empresaService) UpdateEmpresa(ctx context.Context, id string, req domain.UpdateEmpresaRequest) (*domain.Empresa, error) {
	if req.RazaoSocial != nil {
		if err := domain.ValidateEmpresaName(*req.RazaoSocial); err != nil {
			return nil, err
		}
	}
	if req.Regime != nil {
		if err := domain.ValidateRegime(*req.Regime); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if err != domain.ErrEmpresaNotFound {
			log.WithError(err).WithField("empresa_id", id).Error("Failed to update empresa")
		}
		return nil, err
	}
	return updated, nil
}

func (s *empresaService) DeleteEmpresa(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *empresaService) ListEmpresas(ctx context.Context, ativo *bool, limit, offset int) ([]domain.Empresa, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	empresas, err := s.repo.List(ctx, ativo, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list empresas")
		return nil, err
	}
	if empresas == nil {
		empresas = []domain.Empresa{}
	}
	return empresas, nil
}
