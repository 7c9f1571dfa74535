package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainauth "depositrent/internal/domain/auth"
)

// SessionStore keeps bearer sessions. The TTL index on expires_at removes
// them once they lapse.
type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection(sessionsCollection)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	doc := newSessionDocument(session)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Token}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var doc sessionDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(token)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return doc.toSession()
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	return err
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
