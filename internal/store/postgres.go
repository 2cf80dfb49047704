package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations in PostgreSQL, one row per
// conversation with the transcript as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			history JSONB NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations (updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) (map[string]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, updated_at, history FROM conversations ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	all := map[string]Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		all[conv.ID] = conv
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return all, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, updated_at, history FROM conversations WHERE id=$1`, id)
	if err != nil {
		return Conversation{}, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Conversation{}, fmt.Errorf("query conversation: %w", err)
		}
		return Conversation{}, ErrNotFound
	}
	return scanConversation(rows)
}

func (s *PostgresStore) Save(ctx context.Context, id string, history []Message) error {
	payload, err := json.Marshal(cloneHistory(history))
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (id, updated_at, history)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at, history = EXCLUDED.history`,
		id,
		time.Now().UTC(),
		payload,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanConversation(rows pgx.Rows) (Conversation, error) {
	var (
		conv      Conversation
		updatedAt time.Time
		payload   []byte
	)
	if err := rows.Scan(&conv.ID, &updatedAt, &payload); err != nil {
		return Conversation{}, fmt.Errorf("scan conversation row: %w", err)
	}
	if err := json.Unmarshal(payload, &conv.History); err != nil {
		return Conversation{}, fmt.Errorf("decode history for %s: %w", conv.ID, err)
	}
	conv.Timestamp = updatedAt.Local().Format(TimeLayout)
	return conv, nil
}
