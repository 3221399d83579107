package service

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type dashboardService struct {
	fiscal   FiscalRepository
	empresas EmpresaRepository
	audit    AuditStore
}

func NewDashboardService(fiscal FiscalRepository, empresas EmpresaRepository, audit AuditStore) *dashboardService {
	return &dashboardService{fiscal: fiscal, empresas: empresas, audit: audit}
}

// Summary aggregates the landing-page counters. The counts run in
// parallel; if any of them fails the dashboard degrades to zeroes
// instead of breaking the page.
func (s *dashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	summary := &domain.DashboardSummary{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := s.empresas.CountAtivas(gctx)
		if err != nil {
			return err
		}
		summary.EmpresasAtivas = count
		return nil
	})
	g.Go(func() error {
		count, err := s.fiscal.CountActive(gctx)
		if err != nil {
			return err
		}
		summary.CalculosFiscais = count
		return nil
	})
	g.Go(func() error {
		count, err := s.fiscal.CountComPendencias(gctx)
		if err != nil {
			return err
		}
		summary.ComPendencias = count
		return nil
	})
	g.Go(func() error {
		count, err := s.audit.Count(gctx)
		if err != nil {
			return err
		}
		summary.EventosAuditoria = count
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("Failed to aggregate dashboard counters")
		return &domain.DashboardSummary{}, nil
	}
	return summary, nil
}
