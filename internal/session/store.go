package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. Defined by the
// consumer so tests can substitute a transaction or a fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions in PostgreSQL. Safe for concurrent use: all
// state lives in the database, no shared Go-side state exists.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a session store. logger may be nil.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Get retrieves a session by key. Returns ErrNotFound if no session
// exists for the key; any other failure is a store error carrying the
// underlying cause.
func (s *Store) Get(ctx context.Context, key string) (*Session, error) {
	var (
		sess      Session
		rawMsgs   []byte
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT session_key, username, agent_name, messages, created_at
		 FROM sessions WHERE session_key = $1`, key,
	).Scan(&sess.Key, &sess.Username, &sess.AgentName, &rawMsgs, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}

	sess.CreatedAt = createdAt
	if err := json.Unmarshal(rawMsgs, &sess.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for session %s: %w", key, err)
	}

	return &sess, nil
}

// Create inserts a new session with an empty transcript and returns it.
// Create-or-fetch is idempotent: if the key already exists (including a
// concurrent create racing this one), the existing session is returned
// unchanged.
func (s *Store) Create(ctx context.Context, key, username, agentName string) (*Session, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (session_key, username, agent_name, messages)
		 VALUES ($1, $2, $3, '[]'::jsonb)
		 ON CONFLICT (session_key) DO NOTHING`,
		key, username, agentName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", key, err)
	}

	sess, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created session", "key", key, "username", username, "agent", agentName)
	return sess, nil
}

// Save persists the whole session in one write. The operation is an
// idempotent upsert keyed by session key; identity columns are written
// on insert and left untouched on conflict, only the transcript is
// replaced. Message invariants are validated before touching the store.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	for i, msg := range sess.Messages {
		if err := msg.validate(); err != nil {
			return fmt.Errorf("invalid message at index %d: %w", i, err)
		}
	}

	rawMsgs, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages for session %s: %w", sess.Key, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (session_key, username, agent_name, messages)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_key) DO UPDATE
		 SET messages = EXCLUDED.messages, updated_at = now()`,
		sess.Key, sess.Username, sess.AgentName, rawMsgs,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.Key, err)
	}

	s.logger.Debug("saved session", "key", sess.Key, "messages", len(sess.Messages))
	return nil
}

// DeleteAll removes every session. Administrative use only.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
