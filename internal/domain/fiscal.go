package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AnexoIII = "III"
	AnexoV   = "V"

	HistoryActionCreated = "created"
	HistoryActionUpdated = "updated"
	HistoryActionDeleted = "deleted"

	MaxListLimit = 500

	cnpjLength           = 14
	maxEmpresaNameLength = 200
)

var (
	ErrRecordNotFound   = errors.New("cálculo não encontrado")
	ErrRecordExists     = errors.New("já existe cálculo para este cnpj e período")
	ErrVersionConflict  = errors.New("conflito de versão: o cálculo foi modificado por outra operação")
	ErrInvalidCNPJ      = errors.New("cnpj inválido: deve conter 14 dígitos")
	ErrInvalidPeriodo   = errors.New("período inválido: use o formato MM/AAAA")
	ErrInvalidEmpresa   = errors.New("nome da empresa inválido")
	ErrMissingInput     = errors.New("campos financeiros obrigatórios ausentes")
	ErrNegativeInput    = errors.New("valores financeiros não podem ser negativos")
	ErrZeroReceitaBruta = errors.New("receitaBruta12M não pode ser zero")
)

var periodoPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{4}$`)

// Certidao is a single certificate returned by the e-CAC portal.
type Certidao struct {
	Tipo     string `json:"tipo"`
	Status   string `json:"status"`
	Validade string `json:"validade,omitempty"`
}

// Certidoes is the consolidated certificate situation of a company.
type Certidoes struct {
	Status       string     `json:"status"`
	Itens        []Certidao `json:"itens,omitempty"`
	ConsultadoEm *time.Time `json:"consultadoEm,omitempty"`
}

type Pendencia struct {
	Descricao string          `json:"descricao"`
	Valor     decimal.Decimal `json:"valor"`
	Periodo   string          `json:"periodo,omitempty"`
}

// AgencyData mirrors the last snapshots merged from the e-CAC portal,
// kept apart from the top-level certidoes/pendencias fields.
type AgencyData struct {
	Certidoes    *Certidoes  `json:"certidoes,omitempty"`
	Pendencias   []Pendencia `json:"pendencias,omitempty"`
	ConsultadoEm *time.Time  `json:"consultadoEm,omitempty"`
}

type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
}

// FiscalRecord is a monthly fiscal snapshot of a company. The derived
// fields fatorR, anexo and valorDAS are always produced together from
// the financial inputs and never accepted from clients.
type FiscalRecord struct {
	ID               string          `json:"id"`
	CNPJ             string          `json:"cnpj"`
	Empresa          string          `json:"empresa,omitempty"`
	Periodo          string          `json:"periodo,omitempty"`
	ReceitaBruta12M  decimal.Decimal `json:"receitaBruta12M"`
	ReceitaMensal    decimal.Decimal `json:"receitaMensal"`
	FolhaSalarios12M decimal.Decimal `json:"folhaSalarios12M"`
	FatorR           decimal.Decimal `json:"fatorR"`
	Anexo            string          `json:"anexo,omitempty"`
	ValorDAS         decimal.Decimal `json:"valorDAS"`
	Certidoes        *Certidoes      `json:"certidoes,omitempty"`
	Pendencias       []Pendencia     `json:"pendencias,omitempty"`
	Ecac             AgencyData      `json:"ecac"`
	History          []HistoryEntry  `json:"history"`
	UserID           string          `json:"userId,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	DeletedAt        *time.Time      `json:"deletedAt,omitempty"`
}

// Deleted reports whether the record was soft-deleted.
func (r *FiscalRecord) Deleted() bool {
	return r.DeletedAt != nil
}

type CreateFiscalRecordRequest struct {
	CNPJ             string           `json:"cnpj" validate:"required"`
	Empresa          string           `json:"empresa" validate:"required"`
	Periodo          string           `json:"periodo" validate:"required"`
	ReceitaBruta12M  *decimal.Decimal `json:"receitaBruta12M"`
	ReceitaMensal    *decimal.Decimal `json:"receitaMensal"`
	FolhaSalarios12M *decimal.Decimal `json:"folhaSalarios12M"`
	UserID           string           `json:"userId"`
	Certidoes        *Certidoes       `json:"certidoes,omitempty"`
	Pendencias       []Pendencia      `json:"pendencias,omitempty"`
}

type UpdateFiscalRecordRequest struct {
	CNPJ             *string          `json:"cnpj,omitempty"`
	Empresa          *string          `json:"empresa,omitempty"`
	Periodo          *string          `json:"periodo,omitempty"`
	ReceitaBruta12M  *decimal.Decimal `json:"receitaBruta12M,omitempty"`
	ReceitaMensal    *decimal.Decimal `json:"receitaMensal,omitempty"`
	FolhaSalarios12M *decimal.Decimal `json:"folhaSalarios12M,omitempty"`
	UserID           *string          `json:"userId,omitempty"`
	ExpectedVersion  *int64           `json:"expectedVersion,omitempty"`
}

// FiscalRecordFilter narrows list queries. Zero values mean "no filter".
// Status matches the nested certidoes.status field.
type FiscalRecordFilter struct {
	CNPJ    string
	Periodo string
	Status  string
	Limit   int
	Offset  int
}

// NormalizeCNPJ strips formatting characters and requires exactly 14 digits.
func NormalizeCNPJ(cnpj string) (string, error) {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != cnpjLength {
		return "", ErrInvalidCNPJ
	}
	return digits, nil
}

func ValidatePeriodo(periodo string) error {
	if !periodoPattern.MatchString(periodo) {
		return ErrInvalidPeriodo
	}
	return nil
}

func ValidateEmpresaName(name string) error {
	if name == "" || len(name) > maxEmpresaNameLength {
		return ErrInvalidEmpresa
	}
	return nil
}
