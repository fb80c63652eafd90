package ledger

// schemaSQL creates the run ledger tables.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	started_at        TEXT NOT NULL,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	sync_dir          TEXT NOT NULL,
	output_dir        TEXT NOT NULL,
	files             INTEGER NOT NULL DEFAULT 0,
	machines          INTEGER NOT NULL DEFAULT 0,
	sessions          INTEGER NOT NULL DEFAULT 0,
	input_tokens      INTEGER NOT NULL DEFAULT 0,
	output_tokens     INTEGER NOT NULL DEFAULT 0,
	total_cost        REAL NOT NULL DEFAULT 0,
	conflicts         INTEGER NOT NULL DEFAULT 0,
	errors            INTEGER NOT NULL DEFAULT 0,
	sessions_digest   TEXT NOT NULL DEFAULT '',
	sessions_artifact TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
