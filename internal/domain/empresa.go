package domain

import (
	"errors"
	"time"
)

const (
	RegimeSimples        = "SIMPLES"
	RegimeLucroPresumido = "LUCRO_PRESUMIDO"
	RegimeLucroReal      = "LUCRO_REAL"
	RegimeMEI            = "MEI"
)

var (
	ErrEmpresaNotFound   = errors.New("empresa não encontrada")
	ErrEmpresaCNPJExists = errors.New("já existe empresa com este cnpj")
	ErrInvalidRegime     = errors.New("regime tributário inválido")
)

// Empresa is a client company of the bookkeeping office. CNPJ is stored
// normalized, digits only.
type Empresa struct {
	ID           string    `json:"id"`
	CNPJ         string    `json:"cnpj"`
	RazaoSocial  string    `json:"razaoSocial"`
	NomeFantasia string    `json:"nomeFantasia,omitempty"`
	Regime       string    `json:"regime"`
	Cidade       string    `json:"cidade,omitempty"`
	Estado       string    `json:"estado,omitempty"`
	Email        string    `json:"email,omitempty"`
	Ativo        bool      `json:"ativo"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateEmpresaRequest struct {
	CNPJ         string `json:"cnpj" validate:"required"`
	RazaoSocial  string `json:"razaoSocial" validate:"required,max=200"`
	NomeFantasia string `json:"nomeFantasia" validate:"max=200"`
	Regime       string `json:"regime" validate:"omitempty,oneof=SIMPLES LUCRO_PRESUMIDO LUCRO_REAL MEI"`
	Cidade       string `json:"cidade" validate:"max=100"`
	Estado       string `json:"estado" validate:"omitempty,len=2"`
	Email        string `json:"email" validate:"omitempty,email"`
	Ativo        *bool  `json:"ativo,omitempty"`
}

type UpdateEmpresaRequest struct {
	RazaoSocial  *string `json:"razaoSocial,omitempty" validate:"omitempty,max=200"`
	NomeFantasia *string `json:"nomeFantasia,omitempty" validate:"omitempty,max=200"`
	Regime       *string `json:"regime,omitempty" validate:"omitempty,oneof=SIMPLES LUCRO_PRESUMIDO LUCRO_REAL MEI"`
	Cidade       *string `json:"cidade,omitempty" validate:"omitempty,max=100"`
	Estado       *string `json:"estado,omitempty" validate:"omitempty,len=2"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Ativo        *bool   `json:"ativo,omitempty"`
}

func ValidateRegime(regime string) error {
	switch regime {
	case RegimeSimples, RegimeLucroPresumido, RegimeLucroReal, RegimeMEI:
		return nil
	default:
		return ErrInvalidRegime
	}
}
