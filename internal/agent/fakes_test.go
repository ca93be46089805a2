package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/llm"
	"github.com/quochai/cookflow/internal/notify"
)

// memStore is an in-memory SessionStore with the same optimistic versioning
// contract as the real backends. Records are kept as JSON so shared pointers
// cannot leak state between the engine and the store.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID][]byte
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID][]byte)}
}

func (s *memStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.records[session.ID] = data
	return nil
}

func (s *memStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}

	data, ok := s.records[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	var current domain.Session
	if err := json.Unmarshal(data, &current); err != nil {
		return err
	}
	if current.Version != session.Version {
		return domain.ErrVersionMismatch
	}

	session.UpdatedAt = time.Now().UTC()
	session.Version++

	updated, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.records[session.ID] = updated
	return nil
}

func (s *memStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.records[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *memStore) Status(ctx context.Context, id uuid.UUID) (*domain.SessionStatus, error) {
	session, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.StatusProjection(session), nil
}

func (s *memStore) ListPending(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, data := range s.records {
		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.Stage == domain.StageWaitingSelection {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeProvider replays canned completion responses in order.
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (p *fakeProvider) Name() string              { return "fake" }
func (p *fakeProvider) AvailableModels() []string { return []string{"fake-model"} }
func (p *fakeProvider) DefaultModel() string      { return "fake-model" }
func (p *fakeProvider) IsConfigured() bool        { return true }

func (p *fakeProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	content := ""
	if p.calls < len(p.responses) {
		content = p.responses[p.calls]
	}
	p.calls++

	return &llm.Response{Content: content, Model: model}, nil
}

// fakeNotifier records dispatched emails and can fail on demand.
type fakeNotifier struct {
	mu           sync.Mutex
	selections   []notify.DishSelectionEmail
	recipes      []notify.RecipeEmail
	selectionErr error
	recipeErr    error
}

func (n *fakeNotifier) SendDishSelection(ctx context.Context, email notify.DishSelectionEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.selectionErr != nil {
		return n.selectionErr
	}
	n.selections = append(n.selections, email)
	return nil
}

func (n *fakeNotifier) SendRecipe(ctx context.Context, email notify.RecipeEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.recipeErr != nil {
		return n.recipeErr
	}
	n.recipes = append(n.recipes, email)
	return nil
}
