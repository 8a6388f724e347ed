package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/alumnos-api/pkg/config"
	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
)

// CredentialStore resolves the bcrypt password hash for a username.
// ok is false when the user is unknown.
type CredentialStore interface {
	PasswordHash(ctx context.Context, username string) (hash []byte, ok bool, err error)
}

// StaticCredentialStore serves the single account defined in configuration.
type StaticCredentialStore struct {
	username string
	hash     []byte
}

// NewStaticCredentialStore builds the store from cfg. A plaintext password is hashed once here;
// a configured PasswordHash takes precedence.
func NewStaticCredentialStore(cfg config.AuthConfig) (*StaticCredentialStore, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("auth username must not be empty")
	}

	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, fmt.Errorf("auth password must not be empty")
		}
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash auth password: %w", err)
		}
		hash = generated
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid auth password hash: %w", err)
	}

	return &StaticCredentialStore{username: cfg.Username, hash: hash}, nil
}

// PasswordHash implements CredentialStore.
func (s *StaticCredentialStore) PasswordHash(ctx context.Context, username string) ([]byte, bool, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return nil, false, nil
	}
	return s.hash, true, nil
}

// AuthService verifies HTTP Basic credentials against a CredentialStore.
type AuthService struct {
	store  CredentialStore
	logger *zap.Logger
	// dummy is compared against for unknown users so both paths cost one bcrypt check.
	dummy []byte
}

// NewAuthService constructs the credential checker.
func NewAuthService(store CredentialStore, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	return &AuthService{store: store, logger: logger, dummy: dummy}
}

// Authenticate returns nil when password matches the stored hash for username.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) error {
	hash, ok, err := s.store.PasswordHash(ctx, username)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to load credentials")
	}
	if !ok {
		hash = s.dummy
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || !ok {
		s.logger.Debug("authentication rejected", zap.String("username", username))
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}
	return nil
}
