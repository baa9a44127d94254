package domain

import (
	"context"
	"time"
)

// Repository defines the interface for persisting analysis runs,
// findings, and reports.
type Repository interface {
	// Run lifecycle
	SaveRun(ctx context.Context, run *AnalysisRun) error
	UpdateRun(ctx context.Context, run *AnalysisRun) error
	GetRun(ctx context.Context, runID string) (*AnalysisRun, error)
	ListRuns(ctx context.Context, limit int) ([]*AnalysisRun, error)

	// Findings
	SaveFindings(ctx context.Context, runID string, findings []Finding) error
	GetFindings(ctx context.Context, runID string) ([]Finding, error)

	// Full report tree
	SaveReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, runID string) (*Report, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
