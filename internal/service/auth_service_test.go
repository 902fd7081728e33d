package service

import (
	"context"
	"testing"
	"time"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthEnv(t *testing.T) (*testEnv, AuthService) {
	t.Helper()
	env := newTestEnv(t)
	created, err := env.users.EnsureAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	require.True(t, created)
	return env, NewAuthService(env.store.Users, jwt.NewIssuer("test-secret", time.Hour, "digital-inventory"), zap.NewNop())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthEnv(t)

	resp, err := auth.Login(ctx, &LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	user, err := auth.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = auth.Login(ctx, &LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, &LoginRequest{Username: "ghost", Password: "admin123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, &LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthEnv(t)

	_, err := auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)

	_, err = auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	other := jwt.NewIssuer("other-secret", time.Hour, "digital-inventory")
	forged, err := other.GenerateToken(1, "admin", "admin")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	_, auth := newAuthEnv(t)
	issuer := jwt.NewIssuer("test-secret", time.Hour, "digital-inventory")
	token, err := issuer.GenerateToken(999, "ghost", "staff")
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	_, auth := newAuthEnv(t)

	err := auth.ChangePassword(ctx, &ChangePasswordRequest{Username: "admin", OldPassword: "nope", NewPassword: "s3cret!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = auth.ChangePassword(ctx, &ChangePasswordRequest{Username: "admin", OldPassword: "admin123", NewPassword: "123"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, auth.ChangePassword(ctx, &ChangePasswordRequest{Username: "admin", OldPassword: "admin123", NewPassword: "s3cret!"}))

	_, err = auth.Login(ctx, &LoginRequest{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, &LoginRequest{Username: "admin", Password: "s3cret!"})
	assert.NoError(t, err)
}
