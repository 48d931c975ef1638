package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Francouer/proto-guard/internal/domain"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS check_history (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	target_path    TEXT,
	success        INTEGER NOT NULL,
	error_count    INTEGER NOT NULL,
	warning_count  INTEGER NOT NULL,
	breaking_count INTEGER NOT NULL,
	level          TEXT,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_history_created_at ON check_history(created_at);
`

type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository opens or creates the history database at path.
// WAL mode keeps concurrent watch-mode writers from tripping over readers.
func NewSQLiteHistoryRepository(path string) (domain.HistoryRepository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

func (r *SQLiteHistoryRepository) Save(ctx context.Context, record *domain.CheckRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO check_history (
			id, kind, file_path, target_path,
			success, error_count, warning_count, breaking_count,
			level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Kind, record.FilePath, record.TargetPath,
		record.Success, record.ErrorCount, record.WarningCount, record.BreakingCount,
		record.Level, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save check record: %w", err)
	}

	return nil
}

// List returns the most recent records first.
func (r *SQLiteHistoryRepository) List(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, kind, file_path, target_path,
		       success, error_count, warning_count, breaking_count,
		       level, created_at
		FROM check_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check history: %w", err)
	}
	defer rows.Close()

	var records []domain.CheckRecord
	for rows.Next() {
		var rec domain.CheckRecord
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.FilePath, &rec.TargetPath,
			&rec.Success, &rec.ErrorCount, &rec.WarningCount, &rec.BreakingCount,
			&rec.Level, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan check record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read check history: %w", err)
	}

	return records, nil
}

func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}
