package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/rs/zerolog/log"
)

// SessionStore implements domain.SessionStore on postgres. The whole session
// is kept as one JSONB record; stage and timestamps are mirrored into columns
// so status projections and pending scans never decode the record.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new postgres session store
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	record, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO cooking_sessions (id, stage, record, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.Pool.Exec(ctx, query,
		session.ID,
		string(session.Stage),
		record,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Save stamps updated_at, bumps the version and writes the record. The write
// is conditioned on the version observed at load time; a lost race returns
// domain.ErrVersionMismatch.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	loadedVersion := session.Version
	session.UpdatedAt = time.Now().UTC()
	session.Version = loadedVersion + 1

	record, err := json.Marshal(session)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		UPDATE cooking_sessions
		SET stage = $1, record = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`
	tag, err := s.db.Pool.Exec(ctx, query,
		string(session.Stage),
		record,
		session.Version,
		session.UpdatedAt,
		session.ID,
		loadedVersion,
	)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		session.Version = loadedVersion
		return domain.ErrVersionMismatch
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `SELECT record, version FROM cooking_sessions WHERE id = $1`

	var record []byte
	var version int64
	err := s.db.Pool.QueryRow(ctx, query, id).Scan(&record, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(record, &session); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("corrupt session record")
		return nil, domain.ErrSessionNotFound
	}
	session.Version = version
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM cooking_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Status(ctx context.Context, id uuid.UUID) (*domain.SessionStatus, error) {
	query := `SELECT stage, created_at, updated_at FROM cooking_sessions WHERE id = $1`

	var stage string
	var createdAt, updatedAt time.Time
	err := s.db.Pool.QueryRow(ctx, query, id).Scan(&stage, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	query := `SELECT id FROM cooking_sessions WHERE stage = $1 ORDER BY created_at`

	rows, err := s.db.Pool.Query(ctx, query, string(domain.StageWaitingSelection))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
