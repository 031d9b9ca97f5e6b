package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	session, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	session.Email = user.Email
	return session, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Verify resolves a token to its user id.
func (s *Service) Verify(ctx context.Context, token string) (int64, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return 0, shared.ErrInvalidCredentials
	}
	return userID, nil
}
