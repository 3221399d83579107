// Package agency talks to the e-CAC gateway that exposes the compliance
// situation of a company: its certificates and open pendencias.
package agency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type certidoesResponse struct {
	Status       string            `json:"status"`
	Certidoes    []domain.Certidao `json:"certidoes"`
	ConsultadoEm *time.Time        `json:"consultadoEm"`
}

type pendenciasResponse struct {
	Pendencias []domain.Pendencia `json:"pendencias"`
}

func (c *Client) Certidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error) {
	var payload certidoesResponse
	if err := c.get(ctx, "/certidoes/"+cnpj, &payload); err != nil {
		return nil, err
	}
	return &domain.Certidoes{
		Status:       payload.Status,
		Itens:        payload.Certidoes,
		ConsultadoEm: payload.ConsultadoEm,
	}, nil
}

func (c *Client) Pendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error) {
	var payload pendenciasResponse
	if err := c.get(ctx, "/pendencias/"+cnpj, &payload); err != nil {
		return nil, err
	}
	return payload.Pendencias, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build e-CAC request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach e-CAC: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("e-CAC returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode e-CAC response: %w", err)
	}
	return nil
}
