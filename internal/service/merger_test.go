package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
	"github.com/kpidashboards/consultslt-backend/internal/repository"
)

type stubAgency struct {
	certidoes  *domain.Certidoes
	pendencias []domain.Pendencia
	err        error
	calls      int
}

func (s *stubAgency) Certidoes(_ context.Context, _ string) (*domain.Certidoes, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.certidoes, nil
}

func (s *stubAgency) Pendencias(_ context.Context, _ string) ([]domain.Pendencia, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.pendencias, nil
}

func TestSyncCertidoesMergesEveryPeriodo(t *testing.T) {
	repo := repository.NewMemoryFiscalRepository()
	fiscal := NewFiscalService(repo, nil)

	first := createTestRecord(t, fiscal)
	second, err := fiscal.CreateRecord(context.Background(), domain.CreateFiscalRecordRequest{
		CNPJ:             first.CNPJ,
		Empresa:          first.Empresa,
		Periodo:          "02/2025",
		ReceitaBruta12M:  dec(t, "100000"),
		ReceitaMensal:    dec(t, "10000"),
		FolhaSalarios12M: dec(t, "30000"),
	})
	require.NoError(t, err)

	agency := &stubAgency{certidoes: &domain.Certidoes{
		Status: "regular",
		Itens:  []domain.Certidao{{Tipo: "CND Federal", Status: "regular"}},
	}}
	merger := NewMergerService(repo, agency)

	got, err := merger.SyncCertidoes(context.Background(), "12.345.678/0001-95")
	require.NoError(t, err)
	require.NotNil(t, got.ConsultadoEm)
	assert.Equal(t, "regular", got.Status)

	for _, id := range []string{first.ID, second.ID} {
		rec, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rec.Certidoes)
		assert.Equal(t, "regular", rec.Certidoes.Status)
		require.NotNil(t, rec.Ecac.Certidoes)
		require.NotNil(t, rec.Ecac.ConsultadoEm)
	}
}

func TestSyncCertidoesLeavesDerivedAndHistoryAlone(t *testing.T) {
	repo := repository.NewMemoryFiscalRepository()
	fiscal := NewFiscalService(repo, nil)
	created := createTestRecord(t, fiscal)

	merger := NewMergerService(repo, &stubAgency{certidoes: &domain.Certidoes{Status: "irregular"}})
	_, err := merger.SyncCertidoes(context.Background(), created.CNPJ)
	require.NoError(t, err)

	rec, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, rec.FatorR.Equal(created.FatorR))
	assert.Equal(t, created.Anexo, rec.Anexo)
	assert.True(t, rec.ValorDAS.Equal(created.ValorDAS))
	assert.True(t, rec.ReceitaBruta12M.Equal(created.ReceitaBruta12M))
	// A merge is not a user edit, so the audit history must not grow.
	assert.Len(t, rec.History, 1)
	assert.Equal(t, created.Version+1, rec.Version)
}

func TestSyncPendenciasCreatesPlaceholderForUnknownCNPJ(t *testing.T) {
	repo := repository.NewMemoryFiscalRepository()
	agency := &stubAgency{pendencias: []domain.Pendencia{
		{Descricao: "DAS em atraso", Valor: decimal.RequireFromString("350.75"), Periodo: "12/2024"},
	}}
	merger := NewMergerService(repo, agency)

	got, err := merger.SyncPendencias(context.Background(), "98765432000110")
	require.NoError(t, err)
	require.Len(t, got, 1)

	placeholder, err := repo.GetByCnpjPeriodo(context.Background(), "98765432000110", "")
	require.NoError(t, err)
	require.Len(t, placeholder.Pendencias, 1)
	assert.Equal(t, "DAS em atraso", placeholder.Pendencias[0].Descricao)
	assert.Empty(t, placeholder.History)
	assert.True(t, placeholder.ReceitaBruta12M.IsZero())
	assert.Equal(t, int64(1), placeholder.Version)
}

func TestSyncPendenciasIsIdempotent(t *testing.T) {
	repo := repository.NewMemoryFiscalRepository()
	fiscal := NewFiscalService(repo, nil)
	created := createTestRecord(t, fiscal)

	agency := &stubAgency{pendencias: []domain.Pendencia{{Descricao: "Parcelamento", Valor: decimal.RequireFromString("100")}}}
	merger := NewMergerService(repo, agency)

	for i := 0; i < 2; i++ {
		_, err := merger.SyncPendencias(context.Background(), created.CNPJ)
		require.NoError(t, err)
	}

	rec, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, rec.Pendencias, 1)
	assert.Len(t, rec.History, 1)

	records, err := repo.List(context.Background(), domain.FiscalRecordFilter{CNPJ: created.CNPJ})
	require.NoError(t, err)
	assert.Len(t, records, 1, "repeated syncs must not create extra records")
}

func TestSyncRejectsInvalidCNPJWithoutConsulting(t *testing.T) {
	agency := &stubAgency{certidoes: &domain.Certidoes{Status: "regular"}}
	merger := NewMergerService(repository.NewMemoryFiscalRepository(), agency)

	_, err := merger.SyncCertidoes(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrInvalidCNPJ)
	assert.Zero(t, agency.calls)
}

func TestSyncCertidoesPropagatesAgencyError(t *testing.T) {
	agencyErr := errors.New("e-CAC indisponível")
	merger := NewMergerService(repository.NewMemoryFiscalRepository(), &stubAgency{err: agencyErr})

	_, err := merger.SyncCertidoes(context.Background(), "12345678000195")
	assert.ErrorIs(t, err, agencyErr)
}
