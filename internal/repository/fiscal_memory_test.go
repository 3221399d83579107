package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

func seedRecord(t *testing.T, repo *memoryFiscalRepository, cnpj, periodo string) *domain.FiscalRecord {
	t.Helper()

	created, err := repo.Create(context.Background(), domain.FiscalRecord{
		ID:               "rec-" + cnpj + "-" + periodo,
		CNPJ:             cnpj,
		Empresa:          "Empresa Teste LTDA",
		Periodo:          periodo,
		ReceitaBruta12M:  decimal.NewFromInt(100000),
		ReceitaMensal:    decimal.NewFromInt(10000),
		FolhaSalarios12M: decimal.NewFromInt(30000),
		FatorR:           decimal.RequireFromString("0.3"),
		Anexo:            domain.AnexoIII,
		ValorDAS:         decimal.NewFromInt(1800),
		History: []domain.HistoryEntry{
			{Action: domain.HistoryActionCreated, Timestamp: time.Now().UTC(), Actor: "user-1"},
		},
		Version: 1,
	})
	require.NoError(t, err)
	return created
}

func TestMemoryFiscalRepositoryUpdateCAS(t *testing.T) {
	repo := NewMemoryFiscalRepository()
	ctx := context.Background()
	rec := seedRecord(t, repo, "11222333000181", "01/2025")

	entry := domain.HistoryEntry{Action: domain.HistoryActionUpdated, Timestamp: time.Now().UTC()}

	updated, err := repo.Update(ctx, *rec, rec.Version, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Len(t, updated.History, 2)

	// the original version is now stale
	_, err = repo.Update(ctx, *rec, rec.Version, entry)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestMemoryFiscalRepositorySoftDelete(t *testing.T) {
	repo := NewMemoryFiscalRepository()
	ctx := context.Background()
	rec := seedRecord(t, repo, "11222333000181", "01/2025")

	entry := domain.HistoryEntry{Action: domain.HistoryActionDeleted, Timestamp: time.Now().UTC()}
	require.NoError(t, repo.SoftDelete(ctx, rec.ID, entry))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, domain.HistoryActionDeleted, got.History[len(got.History)-1].Action)

	records, err := repo.List(ctx, domain.FiscalRecordFilter{Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, repo.SoftDelete(ctx, rec.ID, entry), domain.ErrRecordNotFound)

	_, err = repo.Update(ctx, *got, got.Version, entry)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryFiscalRepositoryListFilters(t *testing.T) {
	repo := NewMemoryFiscalRepository()
	ctx := context.Background()

	seedRecord(t, repo, "11222333000181", "01/2025")
	seedRecord(t, repo, "11222333000181", "02/2025")
	other := seedRecord(t, repo, "99888777000166", "01/2025")

	require.NoError(t, repo.MergeCertidoes(ctx, other.CNPJ, domain.Certidoes{Status: "irregular"}))

	byCnpj, err := repo.List(ctx, domain.FiscalRecordFilter{CNPJ: "11222333000181", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, byCnpj, 2)

	byPeriodo, err := repo.List(ctx, domain.FiscalRecordFilter{Periodo: "01/2025", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, byPeriodo, 2)

	byStatus, err := repo.List(ctx, domain.FiscalRecordFilter{Status: "irregular", Limit: 100})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, other.ID, byStatus[0].ID)
}

func TestMemoryFiscalRepositoryMergeCreatesPlaceholder(t *testing.T) {
	repo := NewMemoryFiscalRepository()
	ctx := context.Background()

	require.NoError(t, repo.MergeCertidoes(ctx, "55666777000155", domain.Certidoes{Status: "regular"}))

	placeholder, err := repo.GetByCnpjPeriodo(ctx, "55666777000155", "")
	require.NoError(t, err)
	require.NotNil(t, placeholder.Certidoes)
	assert.Equal(t, "regular", placeholder.Certidoes.Status)
	assert.True(t, placeholder.ReceitaBruta12M.IsZero())
	assert.Empty(t, placeholder.History)
	assert.Equal(t, int64(1), placeholder.Version)
}

func TestMemoryFiscalRepositoryMergeLeavesDerivedAlone(t *testing.T) {
	repo := NewMemoryFiscalRepository()
	ctx := context.Background()
	rec := seedRecord(t, repo, "11222333000181", "01/2025")

	require.NoError(t, repo.MergePendencias(ctx, rec.CNPJ, []domain.Pendencia{
		{Descricao: "DAS em atraso", Valor: decimal.NewFromInt(500), Periodo: "12/2024"},
	}))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.FatorR.Equal(rec.FatorR))
	assert.Equal(t, rec.Anexo, got.Anexo)
	assert.True(t, got.ValorDAS.Equal(rec.ValorDAS))
	assert.Len(t, got.History, 1)
	require.Len(t, got.Pendencias, 1)
	assert.Equal(t, "DAS em atraso", got.Pendencias[0].Descricao)
	require.Len(t, got.Ecac.Pendencias, 1)
	assert.Equal(t, int64(2), got.Version)
}
