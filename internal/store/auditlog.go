package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// AuditEntry is one recorded operate call, kept outside the user record so
// per-user history pruning never loses the operational trail.
type AuditEntry struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"userId"`
	Active    string          `json:"active"`
	Direction string          `json:"direction"`
	Duration  int             `json:"duration"`
	Success   bool            `json:"success"`
	CreatedAt int64           `json:"createdAt"`
	Stake     decimal.Decimal `json:"stake"`
}

// AuditLog is an append-only sqlite journal of dispatched operations.
type AuditLog struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewAuditLog(path string) (*AuditLog, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureAuditSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &AuditLog{db: db, path: path}, nil
}

func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func ensureAuditSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS operation_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			active TEXT NOT NULL,
			direction TEXT NOT NULL,
			duration INTEGER NOT NULL,
			stake TEXT,
			success INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_operation_audit_user ON operation_audit(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_operation_audit_created ON operation_audit(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *AuditLog) Append(ctx context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return fmt.Errorf("audit log is closed")
	}
	createdAt := entry.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO operation_audit (user_id, active, direction, duration, stake, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Active, entry.Direction, entry.Duration,
		entry.Stake.String(), boolToInt(entry.Success), createdAt)
	return err
}

// Recent returns the newest entries, most recent first.
func (l *AuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, fmt.Errorf("audit log is closed")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, active, direction, duration, stake, success, created_at
		 FROM operation_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var stake string
		var success int
		if err := rows.Scan(&e.ID, &e.UserID, &e.Active, &e.Direction, &e.Duration, &stake, &success, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Stake, _ = decimal.NewFromString(stake)
		e.Success = success != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
