// Package storage provides the crawl journal.
// It records pages, child links, errors and run metadata in SQLite so a
// crawl can be inspected after the document has been written. The crawler
// only writes; GetMeta, PageStatus, Pages, Links and ErrorCount are the
// read side for post-run inspection of the current run.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/masahif/docfold/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteJournal implements crawler.Journal using SQLite
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

// PageRow is a journaled page as stored
type PageRow struct {
	CanonicalURL string
	OriginalURL  string
	FinalURL     string
	AnchorID     string
	Status       crawler.PageStatus
	SkipReason   string
	StatusCode   int
	RunID        string
}

// NewSQLiteJournal opens or creates the journal at dbPath. Every journal
// instance gets a fresh run id.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &SQLiteJournal{db: db, runID: uuid.NewString()}

	if err := j.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// InitSchema creates the database schema
func (j *SQLiteJournal) InitSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := j.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := j.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// RunID identifies the rows written by this journal
func (j *SQLiteJournal) RunID() string {
	return j.runID
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// RecordPage inserts or replaces the row of rec's canonical URL
func (j *SQLiteJournal) RecordPage(rec *crawler.PageRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO pages (
			canonical_url, original_url, final_url, anchor_id, status,
			skip_reason, error_message, status_code, response_size_bytes,
			ttfb_ms, download_time_ms, crawled_at, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.CanonicalURL,
		rec.OriginalURL,
		nullString(rec.FinalURL),
		nullString(rec.AnchorID),
		string(rec.Status),
		nullString(rec.SkipReason),
		nullString(rec.Error),
		rec.StatusCode,
		rec.ResponseSize,
		rec.TTFB.Milliseconds(),
		rec.DownloadTime.Milliseconds(),
		rec.CrawledAt,
		j.runID,
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", rec.CanonicalURL, err)
	}
	return nil
}

// RecordLinks stores the child list of sourceURL in a single transaction
func (j *SQLiteJournal) RecordLinks(sourceURL string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO links (source_url, target_url, position, run_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, target := range targets {
		if _, err := stmt.Exec(sourceURL, target, i, j.runID); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", sourceURL, target, err)
		}
	}

	return tx.Commit()
}

// RecordError saves crawl error details
func (j *SQLiteJournal) RecordError(url, errorType, message string) error {
	_, err := j.db.Exec(`
		INSERT INTO crawl_errors (url, error_type, error_message, occurred_at, run_id)
		VALUES (?, ?, ?, ?, ?)
	`, url, errorType, message, time.Now().UTC(), j.runID)
	if err != nil {
		return fmt.Errorf("failed to save error: %w", err)
	}
	return nil
}

// GetMeta retrieves a metadata value
func (j *SQLiteJournal) GetMeta(key string) (string, error) {
	var value string
	err := j.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (j *SQLiteJournal) SetMeta(key, value string) error {
	_, err := j.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

// PageStatus returns the journaled status of a canonical URL
func (j *SQLiteJournal) PageStatus(canonicalURL string) (crawler.PageStatus, bool) {
	var status string
	err := j.db.QueryRow("SELECT status FROM pages WHERE canonical_url = ?", canonicalURL).Scan(&status)
	if err != nil {
		return "", false
	}
	return crawler.PageStatus(status), true
}

// Pages lists the pages of the current run in crawl order
func (j *SQLiteJournal) Pages() ([]PageRow, error) {
	rows, err := j.db.Query(`
		SELECT canonical_url, original_url, COALESCE(final_url, ''), COALESCE(anchor_id, ''),
		       status, COALESCE(skip_reason, ''), COALESCE(status_code, 0), run_id
		FROM pages WHERE run_id = ? ORDER BY rowid
	`, j.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PageRow
	for rows.Next() {
		var r PageRow
		var status string
		if err := rows.Scan(&r.CanonicalURL, &r.OriginalURL, &r.FinalURL, &r.AnchorID,
			&status, &r.SkipReason, &r.StatusCode, &r.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		r.Status = crawler.PageStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Links returns the child list of sourceURL for the current run
func (j *SQLiteJournal) Links(sourceURL string) ([]string, error) {
	rows, err := j.db.Query(
		"SELECT target_url FROM links WHERE source_url = ? AND run_id = ? ORDER BY position",
		sourceURL, j.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		out = append(out, target)
	}
	return out, rows.Err()
}

// ErrorCount returns the number of errors recorded in the current run
func (j *SQLiteJournal) ErrorCount() (int, error) {
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM crawl_errors WHERE run_id = ?", j.runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count errors: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
