package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repairs "refurb-cloud/internal/repairs/domain"
)

const defaultPartsTable = "spare_parts_requests"

const partColumns = `id, repair_id, company_id, part_name, quantity, status,
	requested_by, decided_by, notes, created_at, updated_at`

// PartRepository is a Postgres implementation for spare part requests.
type PartRepository struct {
	db    DBTX
	table string
}

// NewPartRepository constructs a repository.
func NewPartRepository(db DBTX, opts ...PartOption) *PartRepository {
	repo := &PartRepository{db: db, table: defaultPartsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// PartOption configures the repository.
type PartOption func(*PartRepository)

// WithPartTable overrides the default table name.
func WithPartTable(table string) PartOption {
	return func(repo *PartRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a new part request.
func (r *PartRepository) Insert(ctx context.Context, part *repairs.SparePartsRequest) error {
	if r == nil || r.db == nil {
		return errors.New("part repo: nil db")
	}
	if part == nil {
		return errors.New("part repo: nil part")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, r.table, partColumns)

	_, err := r.db.ExecContext(ctx, query,
		part.ID,
		part.RepairID,
		part.CompanyID,
		part.PartName,
		part.Quantity,
		string(part.Status),
		part.RequestedBy,
		part.DecidedBy,
		part.Notes,
		part.CreatedAt,
		part.UpdatedAt,
	)
	return err
}

// GetByID loads a part request within a company.
func (r *PartRepository) GetByID(ctx context.Context, companyID, id string) (*repairs.SparePartsRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("part repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND id = $2
LIMIT 1`, partColumns, r.table)
	return scanPart(r.db.QueryRowContext(ctx, query, companyID, id))
}

// ListByRepair loads the part requests of one repair in request order.
func (r *PartRepository) ListByRepair(ctx context.Context, companyID, repairID string) ([]repairs.SparePartsRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("part repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND repair_id = $2
ORDER BY created_at`, partColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, companyID, repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]repairs.SparePartsRequest, 0)
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *part)
	}
	return list, rows.Err()
}

// Save persists the mutable fields of an existing part request.
func (r *PartRepository) Save(ctx context.Context, part *repairs.SparePartsRequest) error {
	if r == nil || r.db == nil {
		return errors.New("part repo: nil db")
	}
	if part == nil {
		return errors.New("part repo: nil part")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $3, decided_by = $4, notes = $5, updated_at = $6
WHERE company_id = $1 AND id = $2`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		part.CompanyID,
		part.ID,
		string(part.Status),
		part.DecidedBy,
		part.Notes,
		part.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repairs.ErrPartNotFound
	}
	return nil
}

func scanPart(row rowScanner) (*repairs.SparePartsRequest, error) {
	var part repairs.SparePartsRequest
	var status string
	if err := row.Scan(
		&part.ID,
		&part.RepairID,
		&part.CompanyID,
		&part.PartName,
		&part.Quantity,
		&status,
		&part.RequestedBy,
		&part.DecidedBy,
		&part.Notes,
		&part.CreatedAt,
		&part.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repairs.ErrPartNotFound
		}
		return nil, err
	}
	part.Status = repairs.PartStatus(status)
	part.CreatedAt = part.CreatedAt.UTC()
	part.UpdatedAt = part.UpdatedAt.UTC()
	return &part, nil
}
