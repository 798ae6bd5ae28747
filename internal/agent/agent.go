// Package agent provides the agent directory: durable keyed storage
// mapping an agent name to its system prompt.
//
// The directory is seeded administratively (sago agents seed) and is
// read-only from the chat relay's perspective. A missing agent is not an
// error condition for chat; the relay proceeds with an empty system
// prompt.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates no agent exists with the requested name.
// Store errors are never masked as ErrNotFound.
var ErrNotFound = errors.New("agent not found")

// Agent is a named configuration bundle supplying a system prompt.
type Agent struct {
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a CRUD facade over the agents table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates an agent store. logger may be nil.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Get looks up an agent by name. Returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, name string) (*Agent, error) {
	var a Agent
	err := s.db.QueryRow(ctx,
		`SELECT name, system_prompt, created_at FROM agents WHERE name = $1`, name,
	).Scan(&a.Name, &a.SystemPrompt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get agent %s: %w", name, err)
	}
	return &a, nil
}

// Upsert creates the agent or overwrites its system prompt.
func (s *Store) Upsert(ctx context.Context, name, systemPrompt string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO agents (name, system_prompt) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET system_prompt = EXCLUDED.system_prompt`,
		name, systemPrompt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert agent %s: %w", name, err)
	}

	s.logger.Debug("upserted agent", "name", name, "prompt_len", len(systemPrompt))
	return nil
}

// List returns all agents ordered by name.
func (s *Store) List(ctx context.Context) ([]*Agent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, system_prompt, created_at FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.Name, &a.SystemPrompt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read agents: %w", err)
	}

	return agents, nil
}

// DeleteAll removes every agent. Administrative use only.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM agents`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete agents: %w", err)
	}
	return tag.RowsAffected(), nil
}
