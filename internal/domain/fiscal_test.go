package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCNPJ(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare digits", in: "11222333000181", want: "11222333000181"},
		{name: "formatted", in: "11.222.333/0001-81", want: "11222333000181"},
		{name: "too short", in: "1122233300018", wantErr: true},
		{name: "too long", in: "112223330001811", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "letters only", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCNPJ(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCNPJ)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePeriodo(t *testing.T) {
	assert.NoError(t, ValidatePeriodo("01/2025"))
	assert.NoError(t, ValidatePeriodo("12/2024"))
	assert.ErrorIs(t, ValidatePeriodo("13/2025"), ErrInvalidPeriodo)
	assert.ErrorIs(t, ValidatePeriodo("00/2025"), ErrInvalidPeriodo)
	assert.ErrorIs(t, ValidatePeriodo("2025-01"), ErrInvalidPeriodo)
	assert.ErrorIs(t, ValidatePeriodo(""), ErrInvalidPeriodo)
}

func TestAuditActionForMethod(t *testing.T) {
	assert.Equal(t, "create", AuditActionForMethod("POST"))
	assert.Equal(t, "update", AuditActionForMethod("PUT"))
	assert.Equal(t, "update", AuditActionForMethod("PATCH"))
	assert.Equal(t, "delete", AuditActionForMethod("DELETE"))
	assert.Equal(t, "get", AuditActionForMethod("GET"))
}
