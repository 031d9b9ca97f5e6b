package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

type memoryRepo struct {
	users map[string]*User
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memoryRepo{users: map[string]*User{
		"owner@vastra.local": {ID: 7, Email: "owner@vastra.local", PasswordHash: string(hash), IsActive: true},
		"gone@vastra.local":  {ID: 8, Email: "gone@vastra.local", PasswordHash: string(hash), IsActive: false},
	}}
	return NewService(repo, NewTokenStore(client, time.Hour)), mr
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "owner@vastra.local", "open-sesame")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, int64(7), session.UserID)

	userID, err := svc.Verify(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, int64(7), userID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "owner@vastra.local", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@vastra.local", "open-sesame")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "gone@vastra.local", "open-sesame")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "owner@vastra.local", "open-sesame")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = svc.Verify(ctx, session.Token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenExpires(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "owner@vastra.local", "open-sesame")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = svc.Verify(ctx, session.Token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
