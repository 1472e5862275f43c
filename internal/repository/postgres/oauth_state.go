package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/composite-gateway/internal/model"
)

var (
	_ model.OAuthStateStore   = (*OAuthStateRepository)(nil)
	_ model.OAuthStateSweeper = (*OAuthStateRepository)(nil)
)

type OAuthStateRepository struct {
	db *Connection
}

func NewOAuthStateRepository(db *Connection) *OAuthStateRepository {
	return &OAuthStateRepository{
		db: db,
	}
}

func (r *OAuthStateRepository) Create(ctx context.Context, state model.OAuthState) error {
	const query = `INSERT INTO oauth_states (state_token, provider, user_id, redirect_url, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		state.StateToken, string(state.Provider), state.UserID, state.RedirectURL, state.ExpiresAt, state.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create oauth state: %w", err)
	}

	return nil
}

// Consume deletes and returns an unexpired record in one statement, so a state is usable once.
func (r *OAuthStateRepository) Consume(ctx context.Context, stateToken string, now time.Time) (model.OAuthState, error) {
	const query = `DELETE FROM oauth_states WHERE state_token = $1 AND expires_at > $2
			  RETURNING state_token, provider, user_id, redirect_url, expires_at, created_at`

	var (
		state    model.OAuthState
		provider string
	)
	err := r.db.QueryRow(ctx, query, stateToken, now).Scan(
		&state.StateToken, &provider, &state.UserID, &state.RedirectURL, &state.ExpiresAt, &state.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.OAuthState{}, model.ErrInvalidOAuthState
		}
		return model.OAuthState{}, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	state.Provider = model.OAuthProvider(provider)

	return state, nil
}

func (r *OAuthStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM oauth_states WHERE expires_at <= $1`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired oauth states: %w", err)
	}

	return tag.RowsAffected(), nil
}
