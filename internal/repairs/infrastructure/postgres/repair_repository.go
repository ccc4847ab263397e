package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	repairs "refurb-cloud/internal/repairs/domain"
)

const defaultRepairsTable = "repairs"

const repairColumns = `id, device_id, company_id, status, description, technician,
	status_history, created_at, updated_at, closed_at`

// RepairRepository is a Postgres implementation for repairs.
type RepairRepository struct {
	db    DBTX
	table string
}

// NewRepairRepository constructs a repository.
func NewRepairRepository(db DBTX, opts ...RepairOption) *RepairRepository {
	repo := &RepairRepository{db: db, table: defaultRepairsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepairOption configures the repository.
type RepairOption func(*RepairRepository)

// WithRepairTable overrides the default table name.
func WithRepairTable(table string) RepairOption {
	return func(repo *RepairRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a new repair.
func (r *RepairRepository) Insert(ctx context.Context, repair *repairs.Repair) error {
	if r == nil || r.db == nil {
		return errors.New("repair repo: nil db")
	}
	if repair == nil {
		return errors.New("repair repo: nil repair")
	}
	history, err := json.Marshal(repair.StatusHistory)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, r.table, repairColumns)

	_, err = r.db.ExecContext(ctx, query,
		repair.ID,
		repair.DeviceID,
		repair.CompanyID,
		string(repair.Status),
		repair.Description,
		repair.Technician,
		history,
		repair.CreatedAt,
		repair.UpdatedAt,
		repair.ClosedAt,
	)
	return err
}

// GetByID loads a repair within a company.
func (r *RepairRepository) GetByID(ctx context.Context, companyID, id string) (*repairs.Repair, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("repair repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND id = $2
LIMIT 1`, repairColumns, r.table)
	return scanRepair(r.db.QueryRowContext(ctx, query, companyID, id))
}

// GetOpenByDevice loads the open repair of a device, if any.
func (r *RepairRepository) GetOpenByDevice(ctx context.Context, companyID, deviceID string) (*repairs.Repair, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("repair repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND device_id = $2 AND closed_at IS NULL
LIMIT 1`, repairColumns, r.table)
	return scanRepair(r.db.QueryRowContext(ctx, query, companyID, deviceID))
}

// ListByDevice loads all repairs of a device, newest first.
func (r *RepairRepository) ListByDevice(ctx context.Context, companyID, deviceID string) ([]repairs.Repair, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("repair repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND device_id = $2
ORDER BY created_at DESC`, repairColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, companyID, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]repairs.Repair, 0)
	for rows.Next() {
		repair, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *repair)
	}
	return list, rows.Err()
}

// Save persists the mutable fields of an existing repair.
func (r *RepairRepository) Save(ctx context.Context, repair *repairs.Repair) error {
	if r == nil || r.db == nil {
		return errors.New("repair repo: nil db")
	}
	if repair == nil {
		return errors.New("repair repo: nil repair")
	}
	history, err := json.Marshal(repair.StatusHistory)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $3, description = $4, technician = $5, status_history = $6,
	updated_at = $7, closed_at = $8
WHERE company_id = $1 AND id = $2`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		repair.CompanyID,
		repair.ID,
		string(repair.Status),
		repair.Description,
		repair.Technician,
		history,
		repair.UpdatedAt,
		repair.ClosedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repairs.ErrRepairNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepair(row rowScanner) (*repairs.Repair, error) {
	var repair repairs.Repair
	var status string
	var history []byte
	var closedAt sql.NullTime
	if err := row.Scan(
		&repair.ID,
		&repair.DeviceID,
		&repair.CompanyID,
		&status,
		&repair.Description,
		&repair.Technician,
		&history,
		&repair.CreatedAt,
		&repair.UpdatedAt,
		&closedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repairs.ErrRepairNotFound
		}
		return nil, err
	}
	repair.Status = repairs.RepairStatus(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &repair.StatusHistory); err != nil {
			return nil, err
		}
	}
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		repair.ClosedAt = &at
	}
	repair.CreatedAt = repair.CreatedAt.UTC()
	repair.UpdatedAt = repair.UpdatedAt.UTC()
	return &repair, nil
}
