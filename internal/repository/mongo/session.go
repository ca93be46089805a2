package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/config"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionDoc is the persisted shape of one session. The full record is kept
// as canonical JSON so field names match the other store backends exactly.
type sessionDoc struct {
	SessionID string    `bson:"session_id"`
	Stage     string    `bson:"stage"`
	Record    string    `bson:"record"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// SessionStore implements domain.SessionStore on a mongo collection.
type SessionStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewSessionStore connects to mongo and prepares the session collection.
func NewSessionStore(ctx context.Context, cfg config.MongoConfig) (*SessionStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stage", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &SessionStore{client: client, collection: collection}, nil
}

// Close disconnects the mongo client.
func (s *SessionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	doc, err := encode(session)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Save replaces the document, filtered on the version observed at load time
// so a racing writer cannot be overwritten silently.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	loadedVersion := session.Version
	session.UpdatedAt = time.Now().UTC()
	session.Version = loadedVersion + 1

	doc, err := encode(session)
	if err != nil {
		session.Version = loadedVersion
		return err
	}

	filter := bson.M{"session_id": session.ID.String(), "version": loadedVersion}
	res, err := s.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		session.Version = loadedVersion
		return fmt.Errorf("failed to save session: %w", err)
	}
	if res.MatchedCount == 0 {
		session.Version = loadedVersion
		return domain.ErrVersionMismatch
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var doc sessionDoc
	err := s.collection.FindOne(ctx, bson.M{"session_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(doc.Record), &session); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("corrupt session record")
		return nil, domain.ErrSessionNotFound
	}
	session.Version = doc.Version
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"session_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Status(ctx context.Context, id uuid.UUID) (*domain.SessionStatus, error) {
	opts := options.FindOne().SetProjection(bson.M{"stage": 1, "created_at": 1, "updated_at": 1})

	var doc sessionDoc
	err := s.collection.FindOne(ctx, bson.M{"session_id": id.String()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}

	return &domain.SessionStatus{
		SessionID: id,
		Stage:     domain.Stage(doc.Stage),
		Status:    domain.StatusFor(domain.Stage(doc.Stage)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *SessionStore) ListPending(ctx context.Context) ([]uuid.UUID, error) {
	opts := options.Find().
		SetProjection(bson.M{"session_id": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.collection.Find(ctx, bson.M{"stage": string(domain.StageWaitingSelection)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []uuid.UUID
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode session doc: %w", err)
		}
		id, err := uuid.Parse(doc.SessionID)
		if err != nil {
			log.Error().Str("id", doc.SessionID).Msg("malformed session id in store")
			continue
		}
		ids = append(ids, id)
	}
	return ids, cursor.Err()
}

func encode(session *domain.Session) (sessionDoc, error) {
	record, err := json.Marshal(session)
	if err != nil {
		return sessionDoc{}, fmt.Errorf("failed to marshal session: %w", err)
	}
	return sessionDoc{
		SessionID: session.ID.String(),
		Stage:     string(session.Stage),
		Record:    string(record),
		Version:   session.Version,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}, nil
}
