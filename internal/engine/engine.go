// Package engine derives the Simples Nacional quantities of a fiscal
// record from its financial inputs. It is deterministic and does no I/O.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

const (
	fatorRPlaces   int32 = 4
	valorDASPlaces int32 = 2
)

// fatorRThreshold puts a company on Anexo III when its payroll reaches
// 28% of gross revenue. aliquotaDAS is the flat effective DAS rate in
// use; the full Simples Nacional rate tables are out of scope.
var (
	fatorRThreshold = decimal.New(28, -2)
	aliquotaDAS     = decimal.New(18, -2)
)

// Inputs are the accumulated financial figures a computation runs on.
type Inputs struct {
	ReceitaBruta12M  decimal.Decimal
	ReceitaMensal    decimal.Decimal
	FolhaSalarios12M decimal.Decimal
}

// Derived holds the three quantities that are always produced together.
type Derived struct {
	FatorR   decimal.Decimal
	Anexo    string
	ValorDAS decimal.Decimal
}

// Compute validates the inputs and derives fatorR, anexo and valorDAS.
// A zero receitaBruta12M is rejected before any division happens.
func Compute(in Inputs) (Derived, error) {
	if in.ReceitaBruta12M.IsNegative() || in.ReceitaMensal.IsNegative() || in.FolhaSalarios12M.IsNegative() {
		return Derived{}, domain.ErrNegativeInput
	}
	if in.ReceitaBruta12M.IsZero() {
		return Derived{}, domain.ErrZeroReceitaBruta
	}

	fatorR := in.FolhaSalarios12M.DivRound(in.ReceitaBruta12M, fatorRPlaces)

	anexo := domain.AnexoV
	if fatorR.GreaterThanOrEqual(fatorRThreshold) {
		anexo = domain.AnexoIII
	}

	valorDAS := in.ReceitaMensal.Mul(aliquotaDAS).Round(valorDASPlaces)

	return Derived{FatorR: fatorR, Anexo: anexo, ValorDAS: valorDAS}, nil
}
