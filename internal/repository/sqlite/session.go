package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SessionStore implements domain.SessionStore on an embedded sqlite database.
// One row per session; saves are single-row transactional updates guarded by
// the version column.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (and if needed initializes) the sqlite database at path.
func NewSessionStore(path string) (*SessionStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS cooking_sessions (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			record TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cooking_sessions_stage ON cooking_sessions (stage);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SessionStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	record, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO cooking_sessions (id, stage, record, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID.String(),
		string(session.Stage),
		string(record),
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	loadedVersion := session.Version
	session.UpdatedAt = time.Now().UTC()
	session.Version = loadedVersion + 1

	record, err := json.Marshal(session)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE cooking_sessions
		SET stage = ?, record = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := tx.ExecContext(ctx, query,
		string(session.Stage),
		string(record),
		session.Version,
		session.UpdatedAt,
		session.ID.String(),
		loadedVersion,
	)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to save session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		session.Version = loadedVersion
		return domain.ErrVersionMismatch
	}

	if err := tx.Commit(); err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `SELECT record, version FROM cooking_sessions WHERE id = ?`

	var record string
	var version int64
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&record, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(record), &session); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("corrupt session record")
		return nil, domain.ErrSessionNotFound
	}
	session.Version = version
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cooking_sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Status(ctx context.Context, id uuid.UUID) (*domain.SessionStatus, error) {
	query := `SELECT stage, created_at, updated_at FROM cooking_sessions WHERE id = ?`

	var stage string
	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&stage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}

	return &domain.SessionStatus{
		SessionID: id,
		Stage:     domain.Stage(stage),
		Status:    domain.StatusFor(domain.Stage(stage)),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *SessionStore) ListPending(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM cooking_sessions WHERE stage = ? ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, string(domain.StageWaitingSelection))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Error().Str("id", raw).Msg("malformed session id in store")
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
