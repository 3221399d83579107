package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type memoryEmpresaRepository struct {
	mu       sync.RWMutex
	empresas map[string]domain.Empresa
}

func NewMemoryEmpresaRepository() *memoryEmpresaRepository {
	return &memoryEmpresaRepository{empresas: make(map[string]domain.Empresa)}
}

func (r *memoryEmpresaRepository) List(_ context.Context, ativo *bool, limit, offset int) ([]domain.Empresa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var empresas []domain.Empresa
	for _, empresa := range r.empresas {
		if ativo != nil && empresa.Ativo != *ativo {
			continue
		}
		empresas = append(empresas, empresa)
	}

	sort.Slice(empresas, func(i, j int) bool {
		return empresas[i].RazaoSocial < empresas[j].RazaoSocial
	})

	if offset > 0 {
		if offset >= len(empresas) {
			return nil, nil
		}
		empresas = empresas[offset:]
	}
	if limit > 0 && len(empresas) > limit {
		empresas = empresas[:limit]
	}

	return empresas, nil
}

func (r *memoryEmpresaRepository) GetByID(_ context.Context, id string) (*domain.Empresa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	empresa, ok := r.empresas[id]
	if !ok {
		return nil, domain.ErrEmpresaNotFound
	}
	return &empresa, nil
}

func (r *memoryEmpresaRepository) GetByCNPJ(_ context.Context, cnpj string) (*domain.Empresa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, empresa := range r.empresas {
		if empresa.CNPJ == cnpj {
			found := empresa
			return &found, nil
		}
	}
	return nil, domain.ErrEmpresaNotFound
}

func (r *memoryEmpresaRepository) Create(_ context.Context, empresa domain.Empresa) (*domain.Empresa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	empresa.CreatedAt = now
	empresa.UpdatedAt = now

	r.empresas[empresa.ID] = empresa
	created := empresa
	return &created, nil
}

func (r *memoryEmpresaRepository) Update(_ context.Context, id string, req domain.UpdateEmpresaRequest) (*domain.Empresa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	empresa, ok := r.empresas[id]
	if !ok {
		return nil, domain.ErrEmpresaNotFound
	}

	if req.RazaoSocial != nil {
		empresa.RazaoSocial = *req.RazaoSocial
	}
	if req.NomeFantasia != nil {
		empresa.NomeFantasia = *req.NomeFantasia
	}
	if req.Regime != nil {
		empresa.Regime = *req.Regime
	}
	if req.Cidade != nil {
		empresa.Cidade = *req.Cidade
	}
	if req.Estado != nil {
		empresa.Estado = *req.Estado
	}
	if req.Email != nil {
		empresa.Email = *req.Email
	}
	if req.Ativo != nil {
		empresa.Ativo = *req.Ativo
	}
	empresa.UpdatedAt = time.Now().UTC()

	r.empresas[id] = empresa
	updated := empresa
	return &updated, nil
}

func (r *memoryEmpresaRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.empresas[id]; !ok {
		return domain.ErrEmpresaNotFound
	}
	delete(r.empresas, id)
	return nil
}

func (r *memoryEmpresaRepository) CountAtivas(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, empresa := range r.empresas {
		if empresa.Ativo {
			count++
		}
	}
	return count, nil
}
