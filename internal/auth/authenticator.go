package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Specto0/specto/internal/repository"
	"github.com/Specto0/specto/pkg/jwt"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

// Identity is the authenticated caller attached to a session or request.
type Identity struct {
	UserID    uint
	Username  string
	AvatarURL string
}

// Authenticator resolves a bearer credential to a user identity.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// JWTAuthenticator validates access tokens in-process and resolves the
// subject against the users table.
type JWTAuthenticator struct {
	manager *jwt.Manager
	users   repository.UserRepository
}

// NewJWTAuthenticator creates an authenticator backed by the shared JWT
// manager and the user repository.
func NewJWTAuthenticator(manager *jwt.Manager, users repository.UserRepository) *JWTAuthenticator {
	return &JWTAuthenticator{manager: manager, users: users}
}

// Resolve validates the token and loads the subject's identity.
func (a *JWTAuthenticator) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := a.manager.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	return &Identity{
		UserID:    user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
	}, nil
}
