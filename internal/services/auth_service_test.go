package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaltrainer/internal/models"
)

func newTestAuth(t *testing.T) (AuthService, *memUsers, *clock, *models.User) {
	t.Helper()
	users := &memUsers{}
	u := &models.User{DisplayName: "anna"}
	require.NoError(t, users.Create(context.Background(), u))
	clk := newClock()
	svc := NewAuthService(users, AuthOptions{Secret: []byte("secret"), Now: clk.Now})
	return svc, users, clk, u
}

func TestAuthService_Passwords(t *testing.T) {
	svc, _, _, _ := newTestAuth(t)
	hash, err := svc.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, svc.CheckPassword(hash, "correct horse"))
	assert.False(t, svc.CheckPassword(hash, "wrong"))
}

func TestAuthService_IssueAndParse(t *testing.T) {
	svc, _, clk, u := newTestAuth(t)
	pair, err := svc.IssueTokens(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)

	id, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	clk.Advance(16 * time.Minute)
	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	svc, _, clk, _ := newTestAuth(t)
	claims := &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour))}}

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(other)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(none)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.ParseAccessToken("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, _, _, u := newTestAuth(t)
	ctx := context.Background()
	pair, err := svc.IssueTokens(ctx, u)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// the old token is single use
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_RefreshExpired(t *testing.T) {
	svc, _, clk, u := newTestAuth(t)
	ctx := context.Background()
	pair, err := svc.IssueTokens(ctx, u)
	require.NoError(t, err)

	clk.Advance(31 * 24 * time.Hour)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Refresh(ctx, "  ")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
