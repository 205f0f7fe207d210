package storage

const schemaSQL = `
-- One row per crawl node, keyed by canonical URL
CREATE TABLE IF NOT EXISTS pages (
    canonical_url TEXT PRIMARY KEY NOT NULL,
    original_url TEXT NOT NULL,
    final_url TEXT,
    anchor_id TEXT,
    status TEXT NOT NULL CHECK (status IN ('completed', 'fetch_error', 'convert_error', 'skipped')),
    skip_reason TEXT,
    error_message TEXT,
    status_code INTEGER,
    response_size_bytes INTEGER,
    ttfb_ms INTEGER,
    download_time_ms INTEGER,
    crawled_at DATETIME NOT NULL,
    run_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

-- Child lists in discovery order
CREATE TABLE IF NOT EXISTS links (
    source_url TEXT NOT NULL,
    target_url TEXT NOT NULL,
    position INTEGER NOT NULL,
    run_id TEXT NOT NULL,
    UNIQUE(source_url, target_url, run_id)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_url);

CREATE TABLE IF NOT EXISTS crawl_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    error_type TEXT NOT NULL,
    error_message TEXT,
    occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    run_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_errors_url ON crawl_errors(url);
CREATE INDEX IF NOT EXISTS idx_errors_type ON crawl_errors(error_type);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
