package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
	"github.com/kpidashboards/consultslt-backend/internal/metrics"
)

const auditServiceName = "consultslt-backend"

type AuditStore interface {
	Create(ctx context.Context, entry domain.AuditEntry) (*domain.AuditEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
	Count(ctx context.Context) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AuditRecorder persists audit entries and mirrors them to the audit
// topic. Both the recorder and its publisher may be nil; recording is
// best-effort and never reaches a request handler.
type AuditRecorder struct {
	store     AuditStore
	publisher EventPublisher
	metrics   *metrics.Metrics
}

func NewAuditRecorder(store AuditStore, publisher EventPublisher, m *metrics.Metrics) *AuditRecorder {
	return &AuditRecorder{store: store, publisher: publisher, metrics: m}
}

func (s *AuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) error {
	if s == nil || s.store == nil {
		return nil
	}

	saved, err := s.store.Create(ctx, entry)
	if err != nil {
		s.metrics.IncAuditFailures()
		return err
	}
	s.metrics.IncAuditEntries()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, saved.Event(auditServiceName)); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"rota":   entry.Rota,
				"metodo": entry.Metodo,
			}).Warn("Failed to mirror audit entry to Kafka")
		}
	}

	return nil
}

func (s *AuditRecorder) ListEntries(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list audit entries")
		return nil, err
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}
