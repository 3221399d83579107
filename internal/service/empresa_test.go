package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
	"github.com/kpidashboards/consultslt-backend/internal/repository"
)

func boolPtr(b bool) *bool { return &b }

func TestCreateEmpresaDefaults(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	created, err := svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12.345.678/0001-95",
		RazaoSocial: "Padaria Boa Massa LTDA",
	})
	require.NoError(t, err)

	assert.Equal(t, "12345678000195", created.CNPJ)
	assert.Equal(t, domain.RegimeSimples, created.Regime)
	assert.True(t, created.Ativo)
	assert.NotEmpty(t, created.ID)
}

func TestCreateEmpresaRejectsDuplicateCNPJ(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	_, err := svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12345678000195",
		RazaoSocial: "Padaria Boa Massa LTDA",
	})
	require.NoError(t, err)

	_, err = svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12.345.678/0001-95",
		RazaoSocial: "Outra Razão Social",
	})
	assert.ErrorIs(t, err, domain.ErrEmpresaCNPJExists)
}

func TestCreateEmpresaRejectsUnknownRegime(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	_, err := svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12345678000195",
		RazaoSocial: "Padaria Boa Massa LTDA",
		Regime:      "ARBITRADO",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRegime)
}

func TestUpdateEmpresaValidatesRegime(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	created, err := svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12345678000195",
		RazaoSocial: "Padaria Boa Massa LTDA",
	})
	require.NoError(t, err)

	_, err = svc.UpdateEmpresa(context.Background(), created.ID, domain.UpdateEmpresaRequest{
		Regime: strPtr("ARBITRADO"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRegime)

	updated, err := svc.UpdateEmpresa(context.Background(), created.ID, domain.UpdateEmpresaRequest{
		Regime: strPtr(domain.RegimeLucroReal),
		Ativo:  boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeLucroReal, updated.Regime)
	assert.False(t, updated.Ativo)
}

func TestUpdateEmpresaUnknownID(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	_, err := svc.UpdateEmpresa(context.Background(), "missing", domain.UpdateEmpresaRequest{
		RazaoSocial: strPtr("Nova Razão"),
	})
	assert.ErrorIs(t, err, domain.ErrEmpresaNotFound)
}

func TestListEmpresasFiltersAtivo(t *testing.T) {
	svc := NewEmpresaService(repository.NewMemoryEmpresaRepository())

	ativa, err := svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "12345678000195",
		RazaoSocial: "Padaria Boa Massa LTDA",
	})
	require.NoError(t, err)

	_, err = svc.CreateEmpresa(context.Background(), domain.CreateEmpresaRequest{
		CNPJ:        "98765432000110",
		RazaoSocial: "Oficina do Zé ME",
		Ativo:       boolPtr(false),
	})
	require.NoError(t, err)

	empresas, err := svc.ListEmpresas(context.Background(), boolPtr(true), 0, 0)
	require.NoError(t, err)
	require.Len(t, empresas, 1)
	assert.Equal(t, ativa.ID, empresas[0].ID)

	empresas, err = svc.ListEmpresas(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, empresas, 2)
}
