package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
	"github.com/kpidashboards/consultslt-backend/internal/engine"
	"github.com/kpidashboards/consultslt-backend/internal/metrics"
)

const defaultListLimit = 100

type FiscalRepository interface {
	List(ctx context.Context, filter domain.FiscalRecordFilter) ([]domain.FiscalRecord, error)
	GetByID(ctx context.Context, id string) (*domain.FiscalRecord, error)
	GetByCnpjPeriodo(ctx context.Context, cnpj, periodo string) (*domain.FiscalRecord, error)
	Create(ctx context.Context, rec domain.FiscalRecord) (*domain.FiscalRecord, error)
	Update(ctx context.Context, rec domain.FiscalRecord, expectedVersion int64, entry domain.HistoryEntry) (*domain.FiscalRecord, error)
	SoftDelete(ctx context.Context, id string, entry domain.HistoryEntry) error
	MergeCertidoes(ctx context.Context, cnpj string, certidoes domain.Certidoes) error
	MergePendencias(ctx context.Context, cnpj string, pendencias []domain.Pendencia) error
	CountActive(ctx context.Context) (int64, error)
	CountComPendencias(ctx context.Context) (int64, error)
}

type fiscalService struct {
	repo    FiscalRepository
	metrics *metrics.Metrics
}

func NewFiscalService(repo FiscalRepository, m *metrics.Metrics) *fiscalService {
	return &fiscalService{repo: repo, metrics: m}
}

func (s *fiscalService) CreateRecord(ctx context.Context, req domain.CreateFiscalRecordRequest) (*domain.FiscalRecord, error) {
	cnpj, err := domain.NormalizeCNPJ(req.CNPJ)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEmpresaName(req.Empresa); err != nil {
		return nil, err
	}
	if err := domain.ValidatePeriodo(req.Periodo); err != nil {
		return nil, err
	}
	if req.ReceitaBruta12M == nil || req.ReceitaMensal == nil || req.FolhaSalarios12M == nil {
		return nil, domain.ErrMissingInput
	}

	derived, err := engine.Compute(engine.Inputs{
		ReceitaBruta12M:  *req.ReceitaBruta12M,
		ReceitaMensal:    *req.ReceitaMensal,
		FolhaSalarios12M: *req.FolhaSalarios12M,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByCnpjPeriodo(ctx, cnpj, req.Periodo)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		log.WithError(err).WithFields(log.Fields{"cnpj": cnpj, "periodo": req.Periodo}).Error("Failed to check fiscal record existence")
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrRecordExists
	}

	now := time.Now().UTC()
	rec := domain.FiscalRecord{
		ID:               uuid.NewString(),
		CNPJ:             cnpj,
		Empresa:          req.Empresa,
		Periodo:          req.Periodo,
		ReceitaBruta12M:  *req.ReceitaBruta12M,
		ReceitaMensal:    *req.ReceitaMensal,
		FolhaSalarios12M: *req.FolhaSalarios12M,
		FatorR:           derived.FatorR,
		Anexo:            derived.Anexo,
		ValorDAS:         derived.ValorDAS,
		Certidoes:        req.Certidoes,
		Pendencias:       req.Pendencias,
		History: []domain.HistoryEntry{
			{Action: domain.HistoryActionCreated, Timestamp: now, Actor: req.UserID},
		},
		UserID:  req.UserID,
		Version: 1,
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"cnpj": cnpj, "periodo": req.Periodo}).Error("Failed to create fiscal record")
		return nil, err
	}

	s.metrics.IncRecordsCreated()
	return created, nil
}

// GetRecord returns the record even when it was soft-deleted, so the
// deletion can be inspected through deletedAt.
func (s *fiscalService) GetRecord(ctx context.Context, id string) (*domain.FiscalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateRecord replaces the provided fields, recomputes the derived trio
// from the merged inputs and persists the whole record under the
// optimistic version check. A soft-deleted record cannot be updated.
func (s *fiscalService) UpdateRecord(ctx context.Context, id string, req domain.UpdateFiscalRecordRequest) (*domain.FiscalRecord, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Deleted() {
		return nil, domain.ErrRecordNotFound
	}

	rec := *current
	if req.CNPJ != nil {
		cnpj, err := domain.NormalizeCNPJ(*req.CNPJ)
		if err != nil {
			return nil, err
		}
		rec.CNPJ = cnpj
	}
	if req.Empresa != nil {
		if err := domain.ValidateEmpresaName(*req.Empresa); err != nil {
			return nil, err
		}
		rec.Empresa = *req.Empresa
	}
	if req.Periodo != nil {
		if err := domain.ValidatePeriodo(*req.Periodo); err != nil {
			return nil, err
		}
		rec.Periodo = *req.Periodo
	}
	if req.ReceitaBruta12M != nil {
		rec.ReceitaBruta12M = *req.ReceitaBruta12M
	}
	if req.ReceitaMensal != nil {
		rec.ReceitaMensal = *req.ReceitaMensal
	}
	if req.FolhaSalarios12M != nil {
		rec.FolhaSalarios12M = *req.FolhaSalarios12M
	}
	if req.UserID != nil {
		rec.UserID = *req.UserID
	}

	derived, err := engine.Compute(engine.Inputs{
		ReceitaBruta12M:  rec.ReceitaBruta12M,
		ReceitaMensal:    rec.ReceitaMensal,
		FolhaSalarios12M: rec.FolhaSalarios12M,
	})
	if err != nil {
		return nil, err
	}
	rec.FatorR = derived.FatorR
	rec.Anexo = derived.Anexo
	rec.ValorDAS = derived.ValorDAS

	if rec.CNPJ != current.CNPJ || rec.Periodo != current.Periodo {
		existing, err := s.repo.GetByCnpjPeriodo(ctx, rec.CNPJ, rec.Periodo)
		if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, domain.ErrRecordExists
		}
	}

	expectedVersion := current.Version
	if req.ExpectedVersion != nil {
		expectedVersion = *req.ExpectedVersion
	}

	entry := domain.HistoryEntry{
		Action:    domain.HistoryActionUpdated,
		Timestamp: time.Now().UTC(),
		Actor:     rec.UserID,
	}

	updated, err := s.repo.Update(ctx, rec, expectedVersion, entry)
	if err != nil {
		log.WithError(err).WithField("record_id", id).Error("Failed to update fiscal record")
		return nil, err
	}

	s.metrics.IncRecordsUpdated()
	return updated, nil
}

func (s *fiscalService) DeleteRecord(ctx context.Context, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Deleted() {
		return domain.ErrRecordNotFound
	}

	entry := domain.HistoryEntry{
		Action:    domain.HistoryActionDeleted,
		Timestamp: time.Now().UTC(),
		Actor:     current.UserID,
	}

	if err := s.repo.SoftDelete(ctx, id, entry); err != nil {
		log.WithError(err).WithField("record_id", id).Error("Failed to soft-delete fiscal record")
		return err
	}

	s.metrics.IncRecordsDeleted()
	return nil
}

func (s *fiscalService) ListRecords(ctx context.Context, filter domain.FiscalRecordFilter) ([]domain.FiscalRecord, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > domain.MaxListLimit {
		filter.Limit = domain.MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.CNPJ != "" {
		cnpj, err := domain.NormalizeCNPJ(filter.CNPJ)
		if err != nil {
			return nil, err
		}
		filter.CNPJ = cnpj
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list fiscal records")
		return nil, err
	}
	if records == nil {
		records = []domain.FiscalRecord{}
	}
	return records, nil
}
