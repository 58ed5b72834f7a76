package storage

import (
	"context"
	"database/sql"
	"fmt"

	"pmcbot/internal/conversation"
)

// TurnRepo stores conversation turns per session.
// It implements conversation.TurnStore.
type TurnRepo struct {
	db *sql.DB
}

var _ conversation.TurnStore = (*TurnRepo)(nil)

// NewTurnRepo creates a new TurnRepo.
func NewTurnRepo(db *sql.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// LoadTurns returns up to limit most recent turns for a session, oldest first.
// An unknown session yields no turns.
func (r *TurnRepo) LoadTurns(ctx context.Context, sessionID string, limit int) ([]conversation.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_text, bot_text, subject FROM (
			SELECT id, user_text, bot_text, subject FROM turns
			WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		if err := rows.Scan(&t.User, &t.Bot, &t.Subject); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return turns, nil
}

// AppendTurn stores one turn, creating the session row on first use.
func (r *TurnRepo) AppendTurn(ctx context.Context, sessionID string, turn conversation.Turn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id) VALUES (?)
		 ON CONFLICT (id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO turns (session_id, user_text, bot_text, subject) VALUES (?, ?, ?, ?)",
		sessionID, turn.User, turn.Bot, turn.Subject,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its turns. Deleting an unknown session is not an error.
func (r *TurnRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetSession returns a session with its turn count. Returns ErrNotFound if absent.
func (r *TurnRepo) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var s SessionRecord
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at, COUNT(t.id)
		 FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		 WHERE s.id = ? GROUP BY s.id`,
		sessionID,
	).Scan(&s.ID, &createdAt, &updatedAt, &s.Turns)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if s.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
