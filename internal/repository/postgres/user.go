package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/composite-gateway/internal/model"
)

var (
	_ model.UserStore    = (*UserRepository)(nil)
	_ model.SessionStore = (*UserRepository)(nil)
)

const userColumns = `id, email, first_name, last_name, login_method, hashed_password, oauth_provider_id,
	is_active, hashed_refresh_token, refresh_token_expires_at, created_at, updated_at`

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

var userSortColumns = map[string]string{
	"":           "created_at",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
}

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user        model.User
		loginMethod string
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &loginMethod,
		&user.HashedPassword, &user.OAuthProviderID, &user.IsActive,
		&user.HashedRefreshToken, &user.RefreshTokenExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	user.LoginMethod = model.LoginMethod(loginMethod)
	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, email, first_name, last_name, login_method, hashed_password,
			  oauth_provider_id, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, string(user.LoginMethod),
		user.HashedPassword, user.OAuthProviderID, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// Update writes profile fields. Session columns are owned by RotateSession and ClearSession.
func (r *UserRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	query := `UPDATE users SET email = $2, first_name = $3, last_name = $4, hashed_password = $5,
			  oauth_provider_id = $6, is_active = $7, updated_at = $8
			  WHERE id = $1
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.HashedPassword,
		user.OAuthProviderID, user.IsActive, user.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM users WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func buildListQuery(filter model.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(email ILIKE %s OR first_name ILIKE %s OR last_name ILIKE %s)", p, p, p))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if filter.CreatedAfter != nil {
		conds = append(conds, "created_at >= "+arg(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		conds = append(conds, "created_at <= "+arg(*filter.CreatedBefore))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + userColumns + ` FROM users`)
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	column, ok := userSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	b.WriteString(fmt.Sprintf(" ORDER BY %s %s, id", column, direction))

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	skip := max(filter.Skip, 0)
	b.WriteString(" LIMIT " + arg(limit) + " OFFSET " + arg(skip))

	return b.String(), args
}

// RotateSession replaces the stored refresh hash in one row write.
func (r *UserRepository) RotateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const query = `UPDATE users SET hashed_refresh_token = $2, refresh_token_expires_at = $3, updated_at = NOW()
			  WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// GetBySessionHash returns the active user holding an unexpired session with this hash.
func (r *UserRepository) GetBySessionHash(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
			  WHERE hashed_refresh_token = $1 AND refresh_token_expires_at > $2 AND is_active = TRUE`

	user, err := scanUser(r.db.QueryRow(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by session: %w", err)
	}

	return user, nil
}

func (r *UserRepository) ClearSession(ctx context.Context, userID uuid.UUID) error {
	const query = `UPDATE users SET hashed_refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}
