package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

const schemaRuns = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    licenses_path TEXT NOT NULL,
    contracts_path TEXT NOT NULL,
    taxes_path TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    finding_count INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at);
`

const schemaFindings = `
CREATE TABLE IF NOT EXISTS findings (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    pattern_type TEXT NOT NULL,
    subject TEXT NOT NULL,
    metric REAL NOT NULL,
    risk_score REAL NOT NULL,
    evidence TEXT,
    narrative TEXT NOT NULL,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
CREATE INDEX IF NOT EXISTS idx_findings_pattern ON findings(run_id, pattern_type);
CREATE INDEX IF NOT EXISTS idx_findings_score ON findings(run_id, risk_score);
`

// Reports are stored as one JSON document per run. The report tree is
// read and written whole, so a document column beats thirty tables.
const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    run_id TEXT PRIMARY KEY,
    generated_at TIMESTAMP NOT NULL,
    document TEXT NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRuns,
		schemaFindings,
		schemaReports,
	}
}
