package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

// memoryFiscalRepository keeps records in a map guarded by a RWMutex. It
// mirrors the postgres semantics (CAS update, cnpj-wide merges, slot
// behavior of the unique cnpj+periodo pair) and backs service and
// handler tests.
type memoryFiscalRepository struct {
	mu      sync.RWMutex
	records map[string]domain.FiscalRecord
}

func NewMemoryFiscalRepository() *memoryFiscalRepository {
	return &memoryFiscalRepository{records: make(map[string]domain.FiscalRecord)}
}

func (r *memoryFiscalRepository) List(_ context.Context, filter domain.FiscalRecordFilter) ([]domain.FiscalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.FiscalRecord
	for _, rec := range r.records {
		if rec.Deleted() {
			continue
		}
		if filter.CNPJ != "" && rec.CNPJ != filter.CNPJ {
			continue
		}
		if filter.Periodo != "" && rec.Periodo != filter.Periodo {
			continue
		}
		if filter.Status != "" && (rec.Certidoes == nil || rec.Certidoes.Status != filter.Status) {
			continue
		}
		records = append(records, cloneRecord(rec))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return nil, nil
		}
		records = records[filter.Offset:]
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}

	return records, nil
}

func (r *memoryFiscalRepository) GetByID(_ context.Context, id string) (*domain.FiscalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := cloneRecord(rec)
	return &clone, nil
}

func (r *memoryFiscalRepository) GetByCnpjPeriodo(_ context.Context, cnpj, periodo string) (*domain.FiscalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.CNPJ == cnpj && rec.Periodo == periodo {
			clone := cloneRecord(rec)
			return &clone, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (r *memoryFiscalRepository) Create(_ context.Context, rec domain.FiscalRecord) (*domain.FiscalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Pendencias == nil {
		rec.Pendencias = []domain.Pendencia{}
	}
	if rec.History == nil {
		rec.History = []domain.HistoryEntry{}
	}

	r.records[rec.ID] = cloneRecord(rec)
	clone := cloneRecord(rec)
	return &clone, nil
}

func (r *memoryFiscalRepository) Update(_ context.Context, rec domain.FiscalRecord, expectedVersion int64, entry domain.HistoryEntry) (*domain.FiscalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[rec.ID]
	if !ok || current.Deleted() {
		return nil, domain.ErrRecordNotFound
	}
	if current.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}

	current.CNPJ = rec.CNPJ
	current.Empresa = rec.Empresa
	current.Periodo = rec.Periodo
	current.ReceitaBruta12M = rec.ReceitaBruta12M
	current.ReceitaMensal = rec.ReceitaMensal
	current.FolhaSalarios12M = rec.FolhaSalarios12M
	current.FatorR = rec.FatorR
	current.Anexo = rec.Anexo
	current.ValorDAS = rec.ValorDAS
	current.UserID = rec.UserID
	current.History = append(current.History, entry)
	current.Version++
	current.UpdatedAt = time.Now().UTC()

	r.records[current.ID] = cloneRecord(current)
	clone := cloneRecord(current)
	return &clone, nil
}

func (r *memoryFiscalRepository) SoftDelete(_ context.Context, id string, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[id]
	if !ok || current.Deleted() {
		return domain.ErrRecordNotFound
	}

	now := time.Now().UTC()
	current.DeletedAt = &now
	current.History = append(current.History, entry)
	current.Version++

	r.records[id] = cloneRecord(current)
	return nil
}

func (r *memoryFiscalRepository) MergeCertidoes(_ context.Context, cnpj string, certidoes domain.Certidoes) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	merged := false
	for id, rec := range r.records {
		if rec.CNPJ != cnpj {
			continue
		}
		cert := cloneCertidoes(certidoes)
		rec.Certidoes = &cert
		ecacCert := cloneCertidoes(certidoes)
		rec.Ecac.Certidoes = &ecacCert
		consulta := now
		rec.Ecac.ConsultadoEm = &consulta
		rec.UpdatedAt = now
		rec.Version++
		r.records[id] = rec
		merged = true
	}
	if merged {
		return nil
	}

	cert := cloneCertidoes(certidoes)
	ecacCert := cloneCertidoes(certidoes)
	consulta := now
	placeholder := domain.FiscalRecord{
		ID:         uuid.NewString(),
		CNPJ:       cnpj,
		Certidoes:  &cert,
		Pendencias: []domain.Pendencia{},
		Ecac:       domain.AgencyData{Certidoes: &ecacCert, ConsultadoEm: &consulta},
		History:    []domain.HistoryEntry{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.records[placeholder.ID] = placeholder
	return nil
}

func (r *memoryFiscalRepository) MergePendencias(_ context.Context, cnpj string, pendencias []domain.Pendencia) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pendencias == nil {
		pendencias = []domain.Pendencia{}
	}

	now := time.Now().UTC()
	merged := false
	for id, rec := range r.records {
		if rec.CNPJ != cnpj {
			continue
		}
		rec.Pendencias = clonePendencias(pendencias)
		rec.Ecac.Pendencias = clonePendencias(pendencias)
		consulta := now
		rec.Ecac.ConsultadoEm = &consulta
		rec.UpdatedAt = now
		rec.Version++
		r.records[id] = rec
		merged = true
	}
	if merged {
		return nil
	}

	consulta := now
	placeholder := domain.FiscalRecord{
		ID:         uuid.NewString(),
		CNPJ:       cnpj,
		Pendencias: clonePendencias(pendencias),
		Ecac:       domain.AgencyData{Pendencias: clonePendencias(pendencias), ConsultadoEm: &consulta},
		History:    []domain.HistoryEntry{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.records[placeholder.ID] = placeholder
	return nil
}

func (r *memoryFiscalRepository) CountActive(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, rec := range r.records {
		if !rec.Deleted() {
			count++
		}
	}
	return count, nil
}

func (r *memoryFiscalRepository) CountComPendencias(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, rec := range r.records {
		if !rec.Deleted() && len(rec.Pendencias) > 0 {
			count++
		}
	}
	return count, nil
}

func cloneRecord(rec domain.FiscalRecord) domain.FiscalRecord {
	clone := rec
	if rec.Certidoes != nil {
		cert := cloneCertidoes(*rec.Certidoes)
		clone.Certidoes = &cert
	}
	clone.Pendencias = clonePendencias(rec.Pendencias)
	if rec.Ecac.Certidoes != nil {
		cert := cloneCertidoes(*rec.Ecac.Certidoes)
		clone.Ecac.Certidoes = &cert
	}
	clone.Ecac.Pendencias = clonePendencias(rec.Ecac.Pendencias)
	if rec.History != nil {
		clone.History = append([]domain.HistoryEntry(nil), rec.History...)
	}
	return clone
}

func cloneCertidoes(cert domain.Certidoes) domain.Certidoes {
	clone := cert
	if cert.Itens != nil {
		clone.Itens = append([]domain.Certidao(nil), cert.Itens...)
	}
	return clone
}

func clonePendencias(pendencias []domain.Pendencia) []domain.Pendencia {
	if pendencias == nil {
		return nil
	}
	return append([]domain.Pendencia(nil), pendencias...)
}
