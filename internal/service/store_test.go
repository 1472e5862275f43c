package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/model"
)

// memoryStore keeps users and their sessions in a map.
type memoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[uuid.UUID]model.User)}
}

func (s *memoryStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memoryStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return model.User{}, model.ErrEmailTaken
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *memoryStore) Update(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	user.HashedRefreshToken = stored.HashedRefreshToken
	user.RefreshTokenExpiresAt = stored.RefreshTokenExpiresAt
	s.users[user.ID] = user
	return user, nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memoryStore) List(_ context.Context, _ model.UserFilter) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memoryStore) RotateSession(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	u.HashedRefreshToken = &tokenHash
	u.RefreshTokenExpiresAt = &expiresAt
	s.users[userID] = u
	return nil
}

func (s *memoryStore) GetBySessionHash(_ context.Context, tokenHash string, now time.Time) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.HashedRefreshToken != nil && *u.HashedRefreshToken == tokenHash &&
			u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.After(now) && u.IsActive {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memoryStore) ClearSession(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	u.HashedRefreshToken = nil
	u.RefreshTokenExpiresAt = nil
	s.users[userID] = u
	return nil
}

func (s *memoryStore) put(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// memoryStates is a single-use state store keyed by token.
type memoryStates struct {
	mu     sync.Mutex
	states map[string]model.OAuthState
}

func newMemoryStates() *memoryStates {
	return &memoryStates{states: make(map[string]model.OAuthState)}
}

func (s *memoryStates) Create(_ context.Context, state model.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.StateToken] = state
	return nil
}

func (s *memoryStates) Consume(_ context.Context, stateToken string, now time.Time) (model.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[stateToken]
	if !ok || !state.ExpiresAt.After(now) {
		return model.OAuthState{}, model.ErrInvalidOAuthState
	}
	delete(s.states, stateToken)
	return state, nil
}

func (s *memoryStates) get(token string) (model.OAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[token]
	return state, ok
}
