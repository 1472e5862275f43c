package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.OAuthStateStore = (*OAuthStateRepository)(nil)

// DefaultKeyPrefix namespaces state keys.
const DefaultKeyPrefix = "gateway:oauth_state:"

// ErrStateExists is returned when a state token collides with a pending one.
var ErrStateExists = errors.New("oauth state already exists")

// OAuthStateRepository keeps OAuth states as expiring keys. Expiry is enforced
// by the key TTL, so no sweeper is needed.
type OAuthStateRepository struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

func NewOAuthStateRepository(client redis.UniversalClient, keyPrefix string) *OAuthStateRepository {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &OAuthStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (r *OAuthStateRepository) key(stateToken string) string {
	return r.keyPrefix + stateToken
}

func (r *OAuthStateRepository) Create(ctx context.Context, state model.OAuthState) error {
	ttl := state.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("oauth state already expired at %s", state.ExpiresAt.Format(time.RFC3339))
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(state.StateToken), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create oauth state: %w", err)
	}
	if !ok {
		return ErrStateExists
	}

	return nil
}

// Consume reads and deletes the key atomically with GETDEL.
func (r *OAuthStateRepository) Consume(ctx context.Context, stateToken string, now time.Time) (model.OAuthState, error) {
	data, err := r.client.GetDel(ctx, r.key(stateToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.OAuthState{}, model.ErrInvalidOAuthState
		}
		return model.OAuthState{}, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	var state model.OAuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.OAuthState{}, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}
	if !state.ExpiresAt.After(now) {
		return model.OAuthState{}, model.ErrInvalidOAuthState
	}

	return state, nil
}
