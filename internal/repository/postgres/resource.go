package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/repository"
)

type resourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) repository.ResourceRepository {
	return &resourceRepository{db: db}
}

const resourceColumns = `id, name, category, size, description, price_cents, quantity, status, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	res := &domain.Resource{}
	err := row.Scan(&res.ID, &res.Name, &res.Category, &res.Size, &res.Description,
		&res.PriceCents, &res.Quantity, &res.Status, &res.CreatedOn, &res.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *resourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO resources (` + resourceColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, res.ID, res.Name, res.Category, res.Size, res.Description,
		res.PriceCents, res.Quantity, res.Status, now, now)
	if err != nil {
		return err
	}
	res.CreatedOn, res.UpdatedOn = now, now
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	if !validID(id) {
		return nil, domain.NotFoundf("resource %s", id)
	}
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("resource %s", id)
	}
	return res, err
}

func (r *resourceRepository) FindMatching(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	var where []string
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Size != domain.SizeNone {
		args = append(args, filter.Size)
		where = append(where, fmt.Sprintf("size = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, size, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *resourceRepository) Update(ctx context.Context, res *domain.Resource) error {
	if !validID(res.ID) {
		return domain.NotFoundf("resource %s", res.ID)
	}
	query := `UPDATE resources SET name=$1, category=$2, size=$3, description=$4, price_cents=$5,
	          quantity=$6, status=$7, updated_on=$8 WHERE id=$9`
	result, err := r.db.ExecContext(ctx, query, res.Name, res.Category, res.Size, res.Description,
		res.PriceCents, res.Quantity, res.Status, time.Now().UTC(), res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("resource %s", res.ID)
	}
	return nil
}
