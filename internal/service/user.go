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

// User manages gateway accounts.
type User struct {
	users  model.UserStore
	hasher model.PasswordHasher
	tokens *TokenService
	logger *logger.Logger
	now    func() time.Time
}

func NewUser(users model.UserStore, hasher model.PasswordHasher, tokens *TokenService, logger *logger.Logger) *User {
	return &User{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Signup registers a credentials user and opens a session for it.
func (s *User) Signup(ctx context.Context, params model.SignupParams) (model.User, model.Session, error) {
	_, err := s.users.GetByEmail(ctx, params.Email)
	if err == nil {
		return model.User{}, model.Session{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return model.User{}, model.Session{}, err
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, model.User{
		ID:             uuid.New(),
		Email:          params.Email,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		LoginMethod:    model.LoginMethodCredentials,
		HashedPassword: &hash,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if !errors.Is(err, model.ErrEmailTaken) {
			s.logger.Error("User service: failed to create user",
				"email", params.Email,
				"error", err.Error())
		}
		return model.User{}, model.Session{}, err
	}

	session, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}

	s.logger.Info("User service: user signed up",
		"user_id", user.ID)

	return user, session, nil
}

// Get returns a user. Inactive users are hidden unless includeInactive is set.
func (s *User) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if !user.IsActive && !includeInactive {
		return model.User{}, model.ErrNotFound
	}
	return user, nil
}

func (s *User) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	return s.users.List(ctx, filter)
}

// Update applies a partial profile change. Email and password can only be
// changed for credentials users.
func (s *User) Update(ctx context.Context, id uuid.UUID, update model.UserUpdate, force bool) (model.User, error) {
	user, err := s.activeUser(ctx, id, force)
	if err != nil {
		return model.User{}, err
	}

	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}

	if update.Email != nil && *update.Email != user.Email {
		if user.LoginMethod != model.LoginMethodCredentials {
			return model.User{}, model.ErrCredentialsRequired
		}
		existing, err := s.users.GetByEmail(ctx, *update.Email)
		if err == nil && existing.ID != user.ID {
			return model.User{}, model.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
		}
		user.Email = *update.Email
	}

	if update.CurrentPassword != nil && update.NewPassword != nil {
		if user.LoginMethod != model.LoginMethodCredentials {
			return model.User{}, model.ErrCredentialsRequired
		}
		if user.HasPassword() && !s.hasher.Verify(*user.HashedPassword, *update.CurrentPassword) {
			return model.User{}, model.ErrIncorrectPassword
		}
		hash, err := s.hasher.Hash(*update.NewPassword)
		if err != nil {
			return model.User{}, err
		}
		user.HashedPassword = &hash
	}

	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}

	user.UpdatedAt = s.now().UTC()
	saved, err := s.users.Update(ctx, user)
	if err != nil {
		return model.User{}, err
	}

	s.logger.Debug("User service: user updated",
		"user_id", id)

	return saved, nil
}

// Delete deactivates a user, or removes the row when soft is false.
func (s *User) Delete(ctx context.Context, id uuid.UUID, soft, force bool) error {
	user, err := s.activeUser(ctx, id, force)
	if err != nil {
		return err
	}

	if !soft {
		if err := s.users.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info("User service: user deleted",
			"user_id", id)
		return nil
	}

	user.IsActive = false
	user.UpdatedAt = s.now().UTC()
	if _, err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User service: user deactivated",
		"user_id", id)

	return nil
}

func (s *User) activeUser(ctx context.Context, id uuid.UUID, force bool) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserInactive
	}
	if err != nil {
		return model.User{}, err
	}
	if !user.IsActive && !force {
		return model.User{}, model.ErrUserInactive
	}
	return user, nil
}
