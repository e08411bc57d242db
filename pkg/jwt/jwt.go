package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the access-token claims. The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim as a numeric user ID.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Manager signs and validates HS256 access tokens.
type Manager struct {
	secret         []byte
	issuer         string
	accessDuration time.Duration
}

// NewManager creates a JWT manager with a shared HMAC secret.
func NewManager(secret, issuer string, accessDuration time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Manager{
		secret:         []byte(secret),
		issuer:         issuer,
		accessDuration: accessDuration,
	}, nil
}

// Generate creates a signed access token for a user ID.
func (m *Manager) Generate(userID uint) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := strconv.ParseUint(claims.Subject, 10, 64); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
