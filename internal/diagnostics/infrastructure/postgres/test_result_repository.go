package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	diagnostics "refurb-cloud/internal/diagnostics/domain"
)

const defaultTestResultsTable = "diagnostic_test_results"

// TestResultRepository is a Postgres implementation for per-check results.
type TestResultRepository struct {
	db    DBTX
	table string
}

// NewTestResultRepository constructs a repository.
func NewTestResultRepository(db DBTX, opts ...TestResultOption) *TestResultRepository {
	repo := &TestResultRepository{db: db, table: defaultTestResultsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// TestResultOption configures the repository.
type TestResultOption func(*TestResultRepository)

// WithTestResultTable overrides the default table name.
func WithTestResultTable(table string) TestResultOption {
	return func(repo *TestResultRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertBatch stores all results of one report in a single statement.
func (r *TestResultRepository) InsertBatch(ctx context.Context, results []diagnostics.TestResult) error {
	if r == nil || r.db == nil {
		return errors.New("test result repo: nil db")
	}
	if len(results) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(results))
	args := make([]any, 0, len(results)*7)
	for i, result := range results {
		base := i * 7
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		details := []byte(result.Details)
		if len(details) == 0 {
			details = []byte("null")
		}
		args = append(args,
			result.ID,
			result.ReportID,
			result.TestID,
			result.TestName,
			string(result.Status),
			result.Message,
			details,
		)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, report_id, test_id, test_name, status, message, details)
VALUES %s`, r.table, strings.Join(placeholders, ", "))

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByReport loads the results of one report in insertion order.
func (r *TestResultRepository) ListByReport(ctx context.Context, reportID string) ([]diagnostics.TestResult, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("test result repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, report_id, test_id, test_name, status, message, details
FROM %s
WHERE report_id = $1
ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]diagnostics.TestResult, 0)
	for rows.Next() {
		var result diagnostics.TestResult
		var status string
		var details sql.NullString
		if err := rows.Scan(
			&result.ID,
			&result.ReportID,
			&result.TestID,
			&result.TestName,
			&status,
			&result.Message,
			&details,
		); err != nil {
			return nil, err
		}
		result.Status = diagnostics.TestStatus(status)
		if details.Valid && details.String != "null" {
			result.Details = []byte(details.String)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
