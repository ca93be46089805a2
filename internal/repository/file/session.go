package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/rs/zerolog/log"
)

// SessionStore implements domain.SessionStore with one JSON file per session.
// Writes go to a temp file in the same directory followed by a rename, so a
// reader never observes a half-written record. A store-level mutex serializes
// the version check against the replace.
type SessionStore struct {
	dir string
	mu  sync.Mutex
}

// NewSessionStore creates the storage directory if needed.
func NewSessionStore(dir string) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &SessionStore{dir: dir}, nil
}

func (s *SessionStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(session.ID)); err == nil {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return s.write(session)
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(session.ID)
	if err != nil {
		return err
	}
	if current.Version != session.Version {
		return domain.ErrVersionMismatch
	}

	loadedVersion := session.Version
	session.UpdatedAt = time.Now().UTC()
	session.Version = loadedVersion + 1

	if err := s.write(session); err != nil {
		session.Version = loadedVersion
		return err
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Status(ctx context.Context, id uuid.UUID) (*domain.SessionStatus, error) {
	session, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.StatusProjection(session), nil
}

func (s *SessionStore) ListPending(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var ids []uuid.UUID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		session, err := s.read(id)
		if err != nil {
			continue
		}
		if session.Stage == domain.StageWaitingSelection {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// read loads and decodes a session record. Corruption is logged and reported
// as absent.
func (s *SessionStore) read(id uuid.UUID) (*domain.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("corrupt session record")
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// write replaces the session file atomically.
func (s *SessionStore) write(session *domain.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, session.ID.String()+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(session.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
