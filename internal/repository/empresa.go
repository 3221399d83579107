package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

const empresaColumns = `id, cnpj, razao_social, nome_fantasia, regime, cidade, estado, email, ativo, created_at, updated_at`

type postgresEmpresaRepository struct {
	db *sql.DB
}

func NewPostgresEmpresaRepository(db *sql.DB) *postgresEmpresaRepository {
	return &postgresEmpresaRepository{db: db}
}

func scanEmpresa(row rowScanner) (*domain.Empresa, error) {
	var empresa domain.Empresa
	err := row.Scan(
		&empresa.ID,
		&empresa.CNPJ,
		&empresa.RazaoSocial,
		&empresa.NomeFantasia,
		&empresa.Regime,
		&empresa.Cidade,
		&empresa.Estado,
		&empresa.Email,
		&empresa.Ativo,
		&empresa.CreatedAt,
		&empresa.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &empresa, nil
}

func (r *postgresEmpresaRepository) List(ctx context.Context, ativo *bool, limit, offset int) ([]domain.Empresa, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var query strings.Builder
	args := []interface{}{}
	argPos := 1

	query.WriteString(`SELECT ` + empresaColumns + ` FROM empresas WHERE 1=1`)

	if ativo != nil {
		query.WriteString(fmt.Sprintf(" AND ativo = $%d", argPos))
		args = append(args, *ativo)
		argPos++
	}

	query.WriteString(" ORDER BY razao_social ASC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var empresas []domain.Empresa
	for rows.Next() {
		empresa, err := scanEmpresa(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan empresa row")
			return nil, err
		}
		empresas = append(empresas, *empresa)
	}

	return empresas, rows.Err()
}

func (r *postgresEmpresaRepository) GetByID(ctx context.Context, id string) (*domain.Empresa, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + empresaColumns + ` FROM empresas WHERE id = $1`

	empresa, err := scanEmpresa(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEmpresaNotFound
	}
	if err != nil {
		log.WithError(err).WithField("empresa_id", id).Error("Failed to get empresa by ID")
		return nil, err
	}

	return empresa, nil
}

func (r *postgresEmpresaRepository) GetByCNPJ(ctx context.Context, cnpj string) (*domain.Empresa, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + empresaColumns + ` FROM empresas WHERE cnpj = $1`

	empresa, err := scanEmpresa(r.db.QueryRowContext(ctx, query, cnpj))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEmpresaNotFound
	}
	if err != nil {
		log.WithError(err).WithField("cnpj", cnpj).Error("Failed to get empresa by cnpj")
		return nil, err
	}

	return empresa, nil
}

func (r *postgresEmpresaRepository) Create(ctx context.Context, empresa domain.Empresa) (*domain.Empresa, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"cnpj":         empresa.CNPJ,
		"razao_social": empresa.RazaoSocial,
	}).Info("Creating empresa")

	query := `INSERT INTO empresas (id, cnpj, razao_social, nome_fantasia, regime, cidade, estado, email, ativo)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING ` + empresaColumns

	created, err := scanEmpresa(r.db.QueryRowContext(ctx, query,
		empresa.ID,
		empresa.CNPJ,
		empresa.RazaoSocial,
		empresa.NomeFantasia,
		empresa.Regime,
		empresa.Cidade,
		empresa.Estado,
		empresa.Email,
		empresa.Ativo,
	))
	if err != nil {
		log.WithError(err).WithField("cnpj", empresa.CNPJ).Error("Failed to create empresa")
		return nil, err
	}

	return created, nil
}

func (r *postgresEmpresaRepository) Update(ctx context.Context, id string, req domain.UpdateEmpresaRequest) (*domain.Empresa, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	setParts := []string{}
	args := []interface{}{}
	argPos := 1

	if req.RazaoSocial != nil {
		setParts = append(setParts, fmt.Sprintf("razao_social = $%d", argPos))
		args = append(args, *req.RazaoSocial)
		argPos++
	}
	if req.NomeFantasia != nil {
		setParts = append(setParts, fmt.Sprintf("nome_fantasia = $%d", argPos))
		args = append(args, *req.NomeFantasia)
		argPos++
	}
	if req.Regime != nil {
		setParts = append(setParts, fmt.Sprintf("regime = $%d", argPos))
		args = append(args, *req.Regime)
		argPos++
	}
	if req.Cidade != nil {
		setParts = append(setParts, fmt.Sprintf("cidade = $%d", argPos))
		args = append(args, *req.Cidade)
		argPos++
	}
	if req.Estado != nil {
		setParts = append(setParts, fmt.Sprintf("estado = $%d", argPos))
		args = append(args, *req.Estado)
		argPos++
	}
	if req.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", argPos))
		args = append(args, *req.Email)
		argPos++
	}
	if req.Ativo != nil {
		setParts = append(setParts, fmt.Sprintf("ativo = $%d", argPos))
		args = append(args, *req.Ativo)
		argPos++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE empresas
	                      SET %s
	                      WHERE id = $%d
	                      RETURNING `+empresaColumns,
		strings.Join(setParts, ", "), argPos)

	updated, err := scanEmpresa(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEmpresaNotFound
	}
	if err != nil {
		log.WithError(err).WithField("empresa_id", id).Error("Failed to update empresa")
		return nil, err
	}

	return updated, nil
}

func (r *postgresEmpresaRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithField("empresa_id", id).Info("Deleting empresa")

	result, err := r.db.ExecContext(ctx, `DELETE FROM empresas WHERE id = $1`, id)
	if err != nil {
		log.WithError(err).WithField("empresa_id", id).Error("Failed to delete empresa")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrEmpresaNotFound
	}

	return nil
}

func (r *postgresEmpresaRepository) CountAtivas(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM empresas WHERE ativo`).Scan(&count)
	return count, err
}
