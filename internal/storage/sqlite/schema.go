package sqlite

const schema = `
-- Canonical titles: one row per distinct non-empty title
CREATE TABLE IF NOT EXISTS canonical_titles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'processing', 'completed')),
    job_function TEXT,
    job_seniority TEXT,
    confidence REAL CHECK(confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
    standardized_title TEXT,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_canonical_titles_title ON canonical_titles(title);
CREATE INDEX IF NOT EXISTS idx_canonical_titles_status ON canonical_titles(status);
CREATE INDEX IF NOT EXISTS idx_canonical_titles_confidence ON canonical_titles(confidence);

-- Raw jobs: one row per ingested CSV row, linked to its canonical title.
-- canonical_id is NULL for blank or placeholder titles.
CREATE TABLE IF NOT EXISTS raw_jobs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    canonical_id INTEGER REFERENCES canonical_titles(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_raw_jobs_canonical ON raw_jobs(canonical_id);

-- Processing runs (spend history)
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    batch_size INTEGER NOT NULL,
    rate_mode TEXT NOT NULL DEFAULT '',
    total_calls INTEGER NOT NULL DEFAULT 0,
    successful_calls INTEGER NOT NULL DEFAULT 0,
    failed_calls INTEGER NOT NULL DEFAULT 0,
    mismatch_calls INTEGER NOT NULL DEFAULT 0,
    titles_completed INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
