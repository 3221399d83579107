package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

const fiscalColumns = `id, cnpj, empresa, periodo, receita_bruta_12m, receita_mensal, folha_salarios_12m,
	fator_r, anexo, valor_das, certidoes, pendencias, ecac_certidoes, ecac_pendencias, ecac_consultado_em,
	history, user_id, version, created_at, updated_at, deleted_at`

type postgresFiscalRepository struct {
	db *sql.DB
}

func NewPostgresFiscalRepository(db *sql.DB) *postgresFiscalRepository {
	return &postgresFiscalRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFiscalRecord(row rowScanner) (*domain.FiscalRecord, error) {
	var (
		rec            domain.FiscalRecord
		certidoes      []byte
		pendencias     []byte
		ecacCertidoes  []byte
		ecacPendencias []byte
		ecacConsulta   sql.NullTime
		history        []byte
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&rec.ID,
		&rec.CNPJ,
		&rec.Empresa,
		&rec.Periodo,
		&rec.ReceitaBruta12M,
		&rec.ReceitaMensal,
		&rec.FolhaSalarios12M,
		&rec.FatorR,
		&rec.Anexo,
		&rec.ValorDAS,
		&certidoes,
		&pendencias,
		&ecacCertidoes,
		&ecacPendencias,
		&ecacConsulta,
		&history,
		&rec.UserID,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(certidoes) > 0 {
		if err := json.Unmarshal(certidoes, &rec.Certidoes); err != nil {
			return nil, fmt.Errorf("decode certidoes: %w", err)
		}
	}
	if len(pendencias) > 0 {
		if err := json.Unmarshal(pendencias, &rec.Pendencias); err != nil {
			return nil, fmt.Errorf("decode pendencias: %w", err)
		}
	}
	if len(ecacCertidoes) > 0 {
		if err := json.Unmarshal(ecacCertidoes, &rec.Ecac.Certidoes); err != nil {
			return nil, fmt.Errorf("decode ecac certidoes: %w", err)
		}
	}
	if len(ecacPendencias) > 0 {
		if err := json.Unmarshal(ecacPendencias, &rec.Ecac.Pendencias); err != nil {
			return nil, fmt.Errorf("decode ecac pendencias: %w", err)
		}
	}
	if ecacConsulta.Valid {
		t := ecacConsulta.Time
		rec.Ecac.ConsultadoEm = &t
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rec.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}

	return &rec, nil
}

func (r *postgresFiscalRepository) List(ctx context.Context, filter domain.FiscalRecordFilter) ([]domain.FiscalRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var query strings.Builder
	args := []interface{}{}
	argPos := 1

	query.WriteString(`SELECT ` + fiscalColumns + ` FROM fiscal_records WHERE deleted_at IS NULL`)

	if filter.CNPJ != "" {
		query.WriteString(fmt.Sprintf(" AND cnpj = $%d", argPos))
		args = append(args, filter.CNPJ)
		argPos++
	}
	if filter.Periodo != "" {
		query.WriteString(fmt.Sprintf(" AND periodo = $%d", argPos))
		args = append(args, filter.Periodo)
		argPos++
	}
	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND certidoes->>'status' = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	query.WriteString(" ORDER BY created_at DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.FiscalRecord
	for rows.Next() {
		rec, err := scanFiscalRecord(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan fiscal record row")
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func (r *postgresFiscalRepository) GetByID(ctx context.Context, id string) (*domain.FiscalRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + fiscalColumns + ` FROM fiscal_records WHERE id = $1`

	rec, err := scanFiscalRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		log.WithError(err).WithField("record_id", id).Error("Failed to get fiscal record by ID")
		return nil, err
	}

	return rec, nil
}

// GetByCnpjPeriodo sees soft-deleted rows too: a deleted record still
// occupies its (cnpj, periodo) slot under the unique index.
func (r *postgresFiscalRepository) GetByCnpjPeriodo(ctx context.Context, cnpj, periodo string) (*domain.FiscalRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + fiscalColumns + ` FROM fiscal_records WHERE cnpj = $1 AND periodo = $2`

	rec, err := scanFiscalRecord(r.db.QueryRowContext(ctx, query, cnpj, periodo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"cnpj": cnpj, "periodo": periodo}).Error("Failed to get fiscal record by cnpj and periodo")
		return nil, err
	}

	return rec, nil
}

func (r *postgresFiscalRepository) Create(ctx context.Context, rec domain.FiscalRecord) (*domain.FiscalRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"cnpj":    rec.CNPJ,
		"periodo": rec.Periodo,
		"empresa": rec.Empresa,
	}).Info("Creating fiscal record")

	certidoes, err := marshalNullable(rec.Certidoes != nil, rec.Certidoes)
	if err != nil {
		return nil, err
	}
	pendencias, err := marshalArray(rec.Pendencias)
	if err != nil {
		return nil, err
	}
	history, err := marshalHistory(rec.History)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO fiscal_records
	          (id, cnpj, empresa, periodo, receita_bruta_12m, receita_mensal, folha_salarios_12m,
	           fator_r, anexo, valor_das, certidoes, pendencias, history, user_id, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING ` + fiscalColumns

	created, err := scanFiscalRecord(r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.CNPJ,
		rec.Empresa,
		rec.Periodo,
		rec.ReceitaBruta12M,
		rec.ReceitaMensal,
		rec.FolhaSalarios12M,
		rec.FatorR,
		rec.Anexo,
		rec.ValorDAS,
		certidoes,
		pendencias,
		history,
		rec.UserID,
		rec.Version,
	))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"cnpj":    rec.CNPJ,
			"periodo": rec.Periodo,
		}).Error("Failed to create fiscal record")
		return nil, err
	}

	return created, nil
}

// Update replaces the record fields wholesale and appends one history
// entry in the same statement. The WHERE clause carries the optimistic
// concurrency check: a row is only touched when it is live and still at
// the expected version.
func (r *postgresFiscalRepository) Update(ctx context.Context, rec domain.FiscalRecord, expectedVersion int64, entry domain.HistoryEntry) (*domain.FiscalRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	entryJSON, err := json.Marshal([]domain.HistoryEntry{entry})
	if err != nil {
		return nil, err
	}

	query := `UPDATE fiscal_records
	          SET cnpj = $2, empresa = $3, periodo = $4,
	              receita_bruta_12m = $5, receita_mensal = $6, folha_salarios_12m = $7,
	              fator_r = $8, anexo = $9, valor_das = $10,
	              history = history || $11::jsonb,
	              user_id = $12,
	              version = version + 1,
	              updated_at = NOW()
	          WHERE id = $1 AND deleted_at IS NULL AND version = $13
	          RETURNING ` + fiscalColumns

	updated, err := scanFiscalRecord(r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.CNPJ,
		rec.Empresa,
		rec.Periodo,
		rec.ReceitaBruta12M,
		rec.ReceitaMensal,
		rec.FolhaSalarios12M,
		rec.FatorR,
		rec.Anexo,
		rec.ValorDAS,
		entryJSON,
		rec.UserID,
		expectedVersion,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.classifyUpdateMiss(ctx, rec.ID)
	}
	if err != nil {
		log.WithError(err).WithField("record_id", rec.ID).Error("Failed to update fiscal record")
		return nil, err
	}

	return updated, nil
}

// classifyUpdateMiss tells a missing or deleted record apart from a
// version conflict after a CAS update matched no rows.
func (r *postgresFiscalRepository) classifyUpdateMiss(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Deleted() {
		return domain.ErrRecordNotFound
	}
	return domain.ErrVersionConflict
}

func (r *postgresFiscalRepository) SoftDelete(ctx context.Context, id string, entry domain.HistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithField("record_id", id).Info("Soft-deleting fiscal record")

	entryJSON, err := json.Marshal([]domain.HistoryEntry{entry})
	if err != nil {
		return err
	}

	query := `UPDATE fiscal_records
	          SET deleted_at = NOW(), history = history || $2::jsonb, version = version + 1
	          WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, entryJSON)
	if err != nil {
		log.WithError(err).WithField("record_id", id).Error("Failed to soft-delete fiscal record")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

// MergeCertidoes overwrites the certidoes snapshot on every record of the
// cnpj, soft-deleted ones included, without touching financial inputs,
// derived values or history. When the cnpj has no records at all a bare
// placeholder row is created.
func (r *postgresFiscalRepository) MergeCertidoes(ctx context.Context, cnpj string, certidoes domain.Certidoes) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(certidoes)
	if err != nil {
		return err
	}

	query := `UPDATE fiscal_records
	          SET certidoes = $2::jsonb, ecac_certidoes = $2::jsonb, ecac_consultado_em = NOW(),
	              updated_at = NOW(), version = version + 1
	          WHERE cnpj = $1`

	result, err := r.db.ExecContext(ctx, query, cnpj, payload)
	if err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to merge certidoes")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	insert := `INSERT INTO fiscal_records (id, cnpj, certidoes, ecac_certidoes, ecac_consultado_em)
	           VALUES ($1, $2, $3::jsonb, $3::jsonb, NOW())
	           ON CONFLICT (cnpj, periodo) DO UPDATE SET
	               certidoes = EXCLUDED.certidoes,
	               ecac_certidoes = EXCLUDED.ecac_certidoes,
	               ecac_consultado_em = NOW(),
	               updated_at = NOW(),
	               version = fiscal_records.version + 1`

	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), cnpj, payload); err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to create placeholder record for certidoes merge")
		return err
	}

	log.WithField("cnpj", cnpj).Info("Created placeholder fiscal record from certidoes merge")
	return nil
}

// MergePendencias mirrors MergeCertidoes for the pendencias snapshot.
func (r *postgresFiscalRepository) MergePendencias(ctx context.Context, cnpj string, pendencias []domain.Pendencia) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := marshalArray(pendencias)
	if err != nil {
		return err
	}

	query := `UPDATE fiscal_records
	          SET pendencias = $2::jsonb, ecac_pendencias = $2::jsonb, ecac_consultado_em = NOW(),
	              updated_at = NOW(), version = version + 1
	          WHERE cnpj = $1`

	result, err := r.db.ExecContext(ctx, query, cnpj, payload)
	if err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to merge pendencias")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	insert := `INSERT INTO fiscal_records (id, cnpj, pendencias, ecac_pendencias, ecac_consultado_em)
	           VALUES ($1, $2, $3::jsonb, $3::jsonb, NOW())
	           ON CONFLICT (cnpj, periodo) DO UPDATE SET
	               pendencias = EXCLUDED.pendencias,
	               ecac_pendencias = EXCLUDED.ecac_pendencias,
	               ecac_consultado_em = NOW(),
	               updated_at = NOW(),
	               version = fiscal_records.version + 1`

	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), cnpj, payload); err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to create placeholder record for pendencias merge")
		return err
	}

	log.WithField("cnpj", cnpj).Info("Created placeholder fiscal record from pendencias merge")
	return nil
}

func (r *postgresFiscalRepository) CountActive(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fiscal_records WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}

func (r *postgresFiscalRepository) CountComPendencias(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fiscal_records
		 WHERE deleted_at IS NULL AND pendencias IS NOT NULL AND jsonb_array_length(pendencias) > 0`).Scan(&count)
	return count, err
}

func marshalNullable(present bool, v interface{}) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalArray(pendencias []domain.Pendencia) ([]byte, error) {
	if pendencias == nil {
		pendencias = []domain.Pendencia{}
	}
	return json.Marshal(pendencias)
}

func marshalHistory(history []domain.HistoryEntry) ([]byte, error) {
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	return json.Marshal(history)
}
