package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// TokenService issues, rotates, resolves and revokes cookie sessions.
// It composes the TokenManager with the per-user SessionStore.
type TokenService struct {
	manager  model.TokenManager
	users    model.UserStore
	sessions model.SessionStore
	logger   *logger.Logger
	now      func() time.Time
}

func NewTokenService(manager model.TokenManager, users model.UserStore, sessions model.SessionStore, logger *logger.Logger) *TokenService {
	return &TokenService{
		manager:  manager,
		users:    users,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue creates a fresh credential pair and stores its refresh hash on the
// user, replacing any earlier session.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (model.Session, error) {
	access, err := s.manager.IssueAccessToken(userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := s.manager.IssueRefreshToken()
	if err != nil {
		return model.Session{}, fmt.Errorf("issue refresh: %w", err)
	}

	expiresAt := s.now().Add(s.manager.RefreshTTL())
	if err := s.sessions.RotateSession(ctx, userID, s.manager.HashRefreshToken(refresh), expiresAt); err != nil {
		s.logger.Error("Token service: failed to rotate session",
			"user_id", userID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("persist refresh: %w", err)
	}

	return model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.manager.AccessTTL(),
		RefreshTTL:   s.manager.RefreshTTL(),
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair. The old token
// stops matching as soon as the new hash is written.
func (s *TokenService) Refresh(ctx context.Context, presented string) (model.Session, error) {
	if presented == "" {
		return model.Session{}, model.ErrMissingCredential
	}

	user, err := s.sessions.GetBySessionHash(ctx, s.manager.HashRefreshToken(presented), s.now())
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Token service: refresh token not recognised")
		return model.Session{}, model.ErrInvalidSession
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to look up session: %w", err)
	}

	session, err := s.Issue(ctx, user.ID)
	if err != nil {
		return model.Session{}, err
	}

	s.logger.Debug("Token service: session rotated",
		"user_id", user.ID)

	return session, nil
}

// Resolve identifies the caller from cookie credentials. A valid access token
// for an active user wins; otherwise a live refresh token is accepted without
// rotating it. Rotation only happens through Refresh.
func (s *TokenService) Resolve(ctx context.Context, accessToken, refreshToken string) (model.Identity, error) {
	if accessToken != "" {
		identity, ok, err := s.resolveAccess(ctx, accessToken)
		if err != nil {
			return model.Identity{}, err
		}
		if ok {
			return identity, nil
		}
	}

	if refreshToken != "" {
		user, err := s.sessions.GetBySessionHash(ctx, s.manager.HashRefreshToken(refreshToken), s.now())
		if err == nil {
			return model.Identity{UserID: user.ID, Email: user.Email}, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.Identity{}, fmt.Errorf("failed to look up session: %w", err)
		}
	}

	return model.Identity{}, model.ErrUnauthenticated
}

func (s *TokenService) resolveAccess(ctx context.Context, accessToken string) (model.Identity, bool, error) {
	userID, err := s.manager.VerifyAccessToken(accessToken)
	if err != nil {
		s.logger.Debug("Token service: access token rejected",
			"error", err.Error())
		return model.Identity{}, false, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return model.Identity{}, false, nil
	}

	return model.Identity{UserID: user.ID, Email: user.Email}, true, nil
}

// Revoke drops the stored session so the refresh token can no longer be used.
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	err := s.sessions.ClearSession(ctx, userID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
