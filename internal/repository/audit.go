package repository

import (
	"context"
	"database/sql"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *postgresAuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) Create(ctx context.Context, entry domain.AuditEntry) (*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload interface{}
	if len(entry.Payload) > 0 {
		payload = []byte(entry.Payload)
	}

	query := `INSERT INTO audit_log (id, acao, rota, metodo, payload, timestamp)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, acao, rota, metodo, payload, timestamp`

	saved, err := scanAuditEntry(r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.Acao,
		entry.Rota,
		entry.Metodo,
		payload,
		entry.Timestamp,
	))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"rota":   entry.Rota,
			"metodo": entry.Metodo,
		}).Error("Failed to insert audit entry")
		return nil, err
	}

	return saved, nil
}

func (r *postgresAuditRepository) List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT id, acao, rota, metodo, payload, timestamp
	          FROM audit_log
	          ORDER BY timestamp DESC
	          LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan audit entry row")
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func (r *postgresAuditRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count)
	return count, err
}

func scanAuditEntry(row rowScanner) (*domain.AuditEntry, error) {
	var (
		entry   domain.AuditEntry
		payload []byte
	)
	err := row.Scan(&entry.ID, &entry.Acao, &entry.Rota, &entry.Metodo, &payload, &entry.Timestamp)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		entry.Payload = payload
	}
	return &entry, nil
}
