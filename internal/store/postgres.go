package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"examPrepAPI/internal/types/progress"
)

// PostgresMedium keeps one JSONB progress document per user. Selected
// over the flat file when DATABASE_URL is set.
type PostgresMedium struct {
	db *pgxpool.Pool
}

func NewPostgresMedium(db *pgxpool.Pool) *PostgresMedium {
	return &PostgresMedium{db: db}
}

// Init creates the backing table. Safe to call on every startup.
func (m *PostgresMedium) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS user_progress (
			user_id    TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := m.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create user_progress table: %w", err)
	}
	return nil
}

func (m *PostgresMedium) Load(ctx context.Context) (map[string]*progress.UserProgress, error) {
	rows, err := m.db.Query(ctx, `SELECT user_id, data FROM user_progress`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user progress: %w", err)
	}
	defer rows.Close()

	state := make(map[string]*progress.UserProgress)
	for rows.Next() {
		var userID string
		var data []byte
		if err := rows.Scan(&userID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		p := &progress.UserProgress{}
		if err := json.Unmarshal(data, p); err != nil {
			// One bad document should not take the whole state down.
			log.Printf("PostgresMedium: skipping unparsable record for user %s: %v", userID, err)
			continue
		}
		state[userID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user progress: %w", err)
	}
	return state, nil
}

func (m *PostgresMedium) Save(ctx context.Context, state map[string]*progress.UserProgress) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO user_progress (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET data = $2, updated_at = NOW()
	`

	for userID, p := range state {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal progress for user %s: %w", userID, err)
		}
		if _, err := tx.Exec(ctx, query, userID, data); err != nil {
			return fmt.Errorf("failed to upsert progress for user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit progress save: %w", err)
	}
	return nil
}
