package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// SQLiteLeadRegistry persists registered leads in a local SQLite database.
type SQLiteLeadRegistry struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteLeadRegistry opens (creating if needed) the database at dbPath.
func NewSQLiteLeadRegistry(dbPath string) (*SQLiteLeadRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent sessions
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteLeadRegistry{db: db, now: time.Now}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteLeadRegistry) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		platform TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RegisterLead stores lead and returns its generated id.
func (r *SQLiteLeadRegistry) RegisterLead(ctx context.Context, lead model.LeadRecord) (string, error) {
	if lead.ID == "" {
		lead.ID = newLeadID(lead)
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (id, session_id, name, email, platform, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		lead.ID, lead.SessionID, lead.Name, lead.Email, lead.Platform, lead.CreatedAt.Unix(),
	)
	if err != nil {
		logx.Error().Err(err).Str("session_id", lead.SessionID).Msg("failed to insert lead")
		return "", errx.WrapSQLite(err)
	}
	return lead.ID, nil
}

// ListLeads returns the leads registered for a session, oldest first.
func (r *SQLiteLeadRegistry) ListLeads(ctx context.Context, sessionID string) ([]model.LeadRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, name, email, platform, created_at FROM leads WHERE session_id = ? ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, errx.WrapSQLite(err)
	}
	defer rows.Close()

	var out []model.LeadRecord
	for rows.Next() {
		var rec model.LeadRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Name, &rec.Email, &rec.Platform, &createdAt); err != nil {
			return nil, errx.WrapSQLite(fmt.Errorf("scan lead row: %w", err))
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQLite(err)
	}
	return out, nil
}

// leadNamespace scopes the name-based lead ids.
var leadNamespace = uuid.MustParse("6f1c2b7e-3a41-4d59-9c0e-52a8d1f4b6a3")

// newLeadID derives the id from the session and the lead's fields, so a turn
// replayed after a failed checkpoint registers the same lead row again.
func newLeadID(lead model.LeadRecord) string {
	key := strings.Join([]string{
		lead.SessionID,
		strings.TrimSpace(lead.Name),
		strings.ToLower(strings.TrimSpace(lead.Email)),
		strings.TrimSpace(lead.Platform),
	}, "\x00")
	return uuid.NewSHA1(leadNamespace, []byte(key)).String()
}

// Ping verifies database connectivity.
func (r *SQLiteLeadRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteLeadRegistry) Close() error {
	return r.db.Close()
}

var _ model.LeadRegistry = (*SQLiteLeadRegistry)(nil)
