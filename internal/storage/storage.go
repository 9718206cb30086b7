// Package storage provides a SQLite-backed archive of rendered analysis reports.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atim-dev/atim/internal/models"
	_ "modernc.org/sqlite"
)

// ErrReportNotFound is returned when a report ID is not in the archive.
var ErrReportNotFound = errors.New("report not found")

// Storage wraps a SQLite database for report persistence.
type Storage struct {
	db         *sql.DB
	maxReports int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/atim/reports.db.
func New(maxReports int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "atim", "reports.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxReports: maxReports}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id              TEXT PRIMARY KEY,
			created_at      INTEGER NOT NULL,
			total_items     INTEGER NOT NULL,
			low_stock_items INTEGER NOT NULL,
			total_value     REAL NOT NULL,
			trend_count     INTEGER NOT NULL,
			top_keyword     TEXT,
			synthetic       INTEGER NOT NULL DEFAULT 0,
			html            TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddReport inserts a report and drops the oldest ones beyond the cap.
func (s *Storage) AddReport(r *models.Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO reports
			(id, created_at, total_items, low_stock_items, total_value,
			 trend_count, top_keyword, synthetic, html)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.CreatedAt.UnixNano(), r.Summary.TotalItems, r.Summary.LowStockItems,
		r.Summary.TotalValue, r.TrendCount, r.TopKeyword, boolToInt(r.Synthetic), r.HTML,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	if s.maxReports > 0 {
		if _, err = tx.Exec(rotateStmt, s.maxReports); err != nil {
			return fmt.Errorf("failed to enforce report cap: %w", err)
		}
	}

	return tx.Commit()
}

// GetReport returns the report with the given ID, including its HTML body.
func (s *Storage) GetReport(id string) (*models.Report, error) {
	row := s.db.QueryRow(`SELECT `+reportCols+`, html FROM reports WHERE id = ?`, id)
	var html string
	r, err := scanReport(row.Scan, &html)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	r.HTML = html
	return r, nil
}

// ListReports returns up to limit reports, newest first, without their bodies.
// A non-positive limit returns every report.
func (s *Storage) ListReports(limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+reportCols+` FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// RotateReports keeps at most maxReports newest reports by creation time.
func (s *Storage) RotateReports() error {
	if s.maxReports <= 0 {
		return nil
	}
	if _, err := s.db.Exec(rotateStmt, s.maxReports); err != nil {
		return fmt.Errorf("failed to rotate reports: %w", err)
	}
	return nil
}

const rotateStmt = `
	DELETE FROM reports WHERE id NOT IN (
		SELECT id FROM reports ORDER BY created_at DESC LIMIT ?
	)`

const reportCols = `id, created_at, total_items, low_stock_items, total_value,
	trend_count, top_keyword, synthetic`

func scanReport(scan func(...any) error, extra ...any) (*models.Report, error) {
	var r models.Report
	var createdAtNano int64
	var topKeyword sql.NullString
	var synthetic int
	dest := []any{
		&r.ID, &createdAtNano, &r.Summary.TotalItems, &r.Summary.LowStockItems,
		&r.Summary.TotalValue, &r.TrendCount, &topKeyword, &synthetic,
	}
	if err := scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdAtNano)
	r.TopKeyword = topKeyword.String
	r.Synthetic = synthetic != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
