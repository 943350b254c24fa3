package service

import (
	"context"
	"testing"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/model"
	"github.com/klass-lk/crudboot/example/internal/repository"
	"github.com/klass-lk/crudboot/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *AuthService {
	db, err := crudboot.NewSQLConfig().
		WithProvider(crudboot.ProviderSQLite).
		WithDatabase(":memory:").
		Open(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return NewAuthService(repository.NewUserRepository(db, zap.NewNop()), security.NewBcryptEncoder(bcrypt.MinCost), zap.NewNop())
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	var apiErr crudboot.ApiError
	if assert.ErrorAs(t, err, &apiErr) {
		assert.Equal(t, crudboot.ErrUnauthorized.ErrorCode, apiErr.ErrorCode)
	}
}

func TestAuthService_EnsureUser(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(t)

	id, err := auth.EnsureUser(ctx, "admin", "secret", "admin")
	require.NoError(t, err)
	again, err := auth.EnsureUser(ctx, "admin", "other", "reader")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = auth.Login(ctx, "admin", "other")
	assertUnauthorized(t, err)
}

func TestAuthService_Login(t *testing.T) {
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	ctx := context.Background()
	auth := newAuthService(t)
	id, err := auth.EnsureUser(ctx, "admin", "secret", "admin")
	require.NoError(t, err)

	tokens, err := auth.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	token, err := crudboot.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	claims, err := crudboot.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", crudboot.ExtractRole(claims))
	userID, err := crudboot.ParseKey[int64](crudboot.ExtractUserId(claims))
	require.NoError(t, err)
	assert.Equal(t, id, userID)

	_, err = auth.Login(ctx, "admin", "wrong")
	assertUnauthorized(t, err)
	_, err = auth.Login(ctx, "nobody", "secret")
	assertUnauthorized(t, err)
}

func TestAuthService_Refresh(t *testing.T) {
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	ctx := context.Background()
	auth := newAuthService(t)
	_, err := auth.EnsureUser(ctx, "admin", "secret", "admin")
	require.NoError(t, err)

	tokens, err := auth.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	refreshed, err := auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = auth.Refresh(ctx, tokens.AccessToken)
	assertUnauthorized(t, err)
	_, err = auth.Refresh(ctx, "garbage")
	assertUnauthorized(t, err)
}
