// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opencivic-data/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a new analysis run.
func (r *SQLRepository) SaveRun(ctx context.Context, run *domain.AnalysisRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO analysis_runs (
			id, status, licenses_path, contracts_path, taxes_path,
			started_at, completed_at, finding_count, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.Status,
		run.LicensesPath, run.ContractsPath, run.TaxesPath,
		run.StartedAt, nullTime(run.CompletedAt),
		run.FindingCount, run.Error,
	)
	return err
}

// UpdateRun updates an existing run's status and completion fields.
func (r *SQLRepository) UpdateRun(ctx context.Context, run *domain.AnalysisRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run ID is required", ErrInvalidInput)
	}

	query := `
		UPDATE analysis_runs
		SET status = ?, completed_at = ?, finding_count = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		run.Status, nullTime(run.CompletedAt), run.FindingCount, run.Error, run.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (r *SQLRepository) GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	query := `
		SELECT id, status, licenses_path, contracts_path, taxes_path,
			   started_at, completed_at, finding_count, error
		FROM analysis_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, r.rebind(query), runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns retrieves the most recent runs, newest first.
func (r *SQLRepository) ListRuns(ctx context.Context, limit int) ([]*domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, status, licenses_path, contracts_path, taxes_path,
			   started_at, completed_at, finding_count, error
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveFindings stores a run's findings, replacing any previous set.
// Position preserves report section order across a round trip.
func (r *SQLRepository) SaveFindings(ctx context.Context, runID string, findings []domain.Finding) error {
	if runID == "" {
		return fmt.Errorf("%w: runID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM findings WHERE run_id = ?`), runID); err != nil {
		return err
	}

	query := `
		INSERT INTO findings (
			id, run_id, pattern_type, subject, metric, risk_score,
			evidence, narrative, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, f := range findings {
		evidence, _ := json.Marshal(f.Evidence)
		if _, err := tx.ExecContext(ctx, r.rebind(query),
			f.ID, runID, string(f.PatternType), f.Subject,
			f.Metric, f.RiskScore, string(evidence), f.Narrative, i,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetFindings retrieves a run's findings in stored order.
func (r *SQLRepository) GetFindings(ctx context.Context, runID string) ([]domain.Finding, error) {
	query := `
		SELECT id, pattern_type, subject, metric, risk_score, evidence, narrative
		FROM findings
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var f domain.Finding
		var patternType, evidence string

		if err := rows.Scan(
			&f.ID, &patternType, &f.Subject,
			&f.Metric, &f.RiskScore, &evidence, &f.Narrative,
		); err != nil {
			return nil, err
		}

		f.PatternType = domain.PatternType(patternType)
		if evidence != "" && evidence != "null" {
			json.Unmarshal([]byte(evidence), &f.Evidence)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// SaveReport stores the full report document for a run, replacing any
// previous document.
func (r *SQLRepository) SaveReport(ctx context.Context, report *domain.Report) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("%w: report run ID is required", ErrInvalidInput)
	}

	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (run_id, generated_at, document)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			generated_at = excluded.generated_at,
			document = excluded.document
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		report.RunID, report.GeneratedAt, string(document))
	return err
}

// GetReport retrieves the full report document for a run.
func (r *SQLRepository) GetReport(ctx context.Context, runID string) (*domain.Report, error) {
	query := `SELECT document FROM reports WHERE run_id = ?`

	var document string
	err := r.db.QueryRowContext(ctx, r.rebind(query), runID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(document), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	var completed sql.NullTime
	var errText sql.NullString

	if err := row.Scan(
		&run.ID, &run.Status,
		&run.LicensesPath, &run.ContractsPath, &run.TaxesPath,
		&run.StartedAt, &completed, &run.FindingCount, &errText,
	); err != nil {
		return nil, err
	}

	if completed.Valid {
		run.CompletedAt = completed.Time
	}
	if errText.Valid {
		run.Error = errText.String
	}
	return &run, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
