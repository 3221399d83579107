package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type AgencyClient interface {
	Certidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error)
	Pendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error)
}

// mergerService pulls compliance snapshots from the e-CAC portal and
// merges them into every fiscal record of the cnpj. Syncs are keyed by
// cnpj alone and are idempotent: re-running one overwrites the snapshot
// with the same data and touches nothing else.
type mergerService struct {
	repo   FiscalRepository
	agency AgencyClient
}

func NewMergerService(repo FiscalRepository, agency AgencyClient) *mergerService {
	return &mergerService{repo: repo, agency: agency}
}

func (s *mergerService) SyncCertidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error) {
	normalized, err := domain.NormalizeCNPJ(cnpj)
	if err != nil {
		return nil, err
	}

	certidoes, err := s.agency.Certidoes(ctx, normalized)
	if err != nil {
		log.WithError(err).WithField("cnpj", normalized).Error("Failed to consult certidoes on e-CAC")
		return nil, err
	}
	if certidoes.ConsultadoEm == nil {
		now := time.Now().UTC()
		certidoes.ConsultadoEm = &now
	}

	if err := s.repo.MergeCertidoes(ctx, normalized, *certidoes); err != nil {
		return nil, err
	}

	return certidoes, nil
}

func (s *mergerService) SyncPendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error) {
	normalized, err := domain.NormalizeCNPJ(cnpj)
	if err != nil {
		return nil, err
	}

	pendencias, err := s.agency.Pendencias(ctx, normalized)
	if err != nil {
		log.WithError(err).WithField("cnpj", normalized).Error("Failed to consult pendencias on e-CAC")
		return nil, err
	}
	if pendencias == nil {
		pendencias = []domain.Pendencia{}
	}

	if err := s.repo.MergePendencias(ctx, normalized, pendencias); err != nil {
		return nil, err
	}

	return pendencias, nil
}
