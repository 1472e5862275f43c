package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.TokenManager = (*JWT)(nil)

const (
	typeAccess        = "access"
	refreshTokenBytes = 32
)

// Claims represents access token claims.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}

// JWT implements TokenManager with HMAC-signed access tokens
// and random opaque refresh tokens.
type JWT struct {
	secretKey  []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWT creates a token manager. algorithm must be one of HS256, HS384, HS512.
func NewJWT(secretKey, algorithm string, accessTTL, refreshTTL time.Duration) (*JWT, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &JWT{
		secretKey:  []byte(secretKey),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (j *JWT) AccessTTL() time.Duration { return j.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (j *JWT) RefreshTTL() time.Duration { return j.refreshTTL }

// IssueAccessToken creates a short-lived access token for the user.
func (j *JWT) IssueAccessToken(userID uuid.UUID) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(j.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		TokenType: typeAccess,
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// VerifyAccessToken validates an access token and returns its subject.
func (j *JWT) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return uuid.Nil, model.ErrTokenExpired
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", model.ErrTokenMalformed, err.Error())
	}
	if claims.TokenType != typeAccess {
		return uuid.Nil, model.ErrTokenWrongType
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", model.ErrTokenMalformed)
	}

	return userID, nil
}

// IssueRefreshToken returns a random URL-safe opaque token.
func (j *JWT) IssueRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken returns the hex SHA-256 digest stored in place of the token.
func (j *JWT) HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
