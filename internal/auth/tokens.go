package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps opaque session tokens in redis with a TTL. A token maps
// to the owning user id; losing redis only forces re-login.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// ErrTokenNotFound indicates an expired or unknown token.
var ErrTokenNotFound = errors.New("auth: token not found")

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Issue creates a fresh token for the user.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (Session, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKey(token), userID, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("auth: store token: %w", err)
	}
	return Session{Token: token, UserID: userID, ExpiresAt: time.Now().UTC().Add(s.ttl)}, nil
}

// Resolve returns the user id a token belongs to.
func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("auth: resolve token: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}
