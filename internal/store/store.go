// Package store persists scan reports to PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

//go:embed schema.sql
var schemaSQL string

// findingColumns is the column order used by CopyFrom.
var findingColumns = []string{"scan_id", "seq", "file", "line", "col", "issue_type", "severity", "description", "snippet"}

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ScanSummary is one row of the scan history.
type ScanSummary struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Files     int           `json:"files"`
	Findings  int           `json:"findings"`
}

// Store provides the PostgreSQL backed scan history.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveReport stores the scan row and all findings in one transaction.
func (s *Store) SaveReport(ctx context.Context, report *scanner.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit returns ErrTxClosed.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO scans (id, started_at, duration_ms, files, findings) VALUES ($1, $2, $3, $4, $5)`,
		report.ScanID, report.StartedAt.UTC(), report.Duration.Milliseconds(), len(report.Files), len(report.Findings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", report.ScanID, err)
	}

	if len(report.Findings) > 0 {
		if err := s.persistFindings(ctx, tx, report.ScanID, report.Findings); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Saved scan", zap.String("scan_id", report.ScanID), zap.Int("findings", len(report.Findings)))
	return nil
}

func (s *Store) persistFindings(ctx context.Context, tx pgx.Tx, scanID string, findings []javascript.Finding) error {
	rows := findingRows(scanID, findings)
	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"findings"}, findingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	if int(copyCount) != len(findings) {
		return fmt.Errorf("mismatch in copied findings count: expected %d, got %d", len(findings), copyCount)
	}
	return nil
}

// findingRows lays out findings for CopyFrom. seq is the report index, which keeps
// detection order recoverable.
func findingRows(scanID string, findings []javascript.Finding) [][]interface{} {
	rows := make([][]interface{}, len(findings))
	for i, f := range findings {
		rows[i] = []interface{}{
			scanID, i, f.File, f.Line, f.Column,
			string(f.IssueType), f.Severity.String(), f.Description, f.Snippet,
		}
	}
	return rows
}

// FindingsByScanID returns the findings of one scan in the order the report held them.
func (s *Store) FindingsByScanID(ctx context.Context, scanID string) ([]javascript.Finding, error) {
	query := `
        SELECT file, line, col, issue_type, severity, description, snippet
        FROM findings
        WHERE scan_id = $1
        ORDER BY seq;
    `
	rows, err := s.pool.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	findings := []javascript.Finding{}
	for rows.Next() {
		var (
			f           javascript.Finding
			issueType   string
			severityStr string
		)
		if err := rows.Scan(&f.File, &f.Line, &f.Column, &issueType, &severityStr, &f.Description, &f.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		f.IssueType = javascript.IssueType(issueType)
		if f.Severity, err = javascript.ParseSeverity(severityStr); err != nil {
			return nil, fmt.Errorf("finding %s: %w", f.Location, err)
		}
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return findings, nil
}

// RecentScans lists the newest scans first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	query := `
        SELECT id::text, started_at, duration_ms, files, findings
        FROM scans
        ORDER BY started_at DESC
        LIMIT $1;
    `
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	scans := []ScanSummary{}
	for rows.Next() {
		var (
			sum        ScanSummary
			durationMS int64
		)
		if err := rows.Scan(&sum.ID, &sum.StartedAt, &durationMS, &sum.Files, &sum.Findings); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		scans = append(scans, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return scans, nil
}
