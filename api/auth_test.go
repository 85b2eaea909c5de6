package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()
	req := registerRequest{Name: "Alice", Email: "alice@example.com", Password: testPassword, PasswordConfirmation: testPassword}

	u, err := app.register(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, []byte(testPassword), u.PasswordHash)

	_, err = app.register(ctx, req)
	verr, ok := asValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "The email has already been taken.", verr.first("email"))
}

func TestLogin(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()
	u := createTestUser(t, app, "alice@example.com")

	token, got, err := app.login(ctx, "alice@example.com", testPassword, apiTokenName)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	id, secret, ok := strings.Cut(token, "|")
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Len(t, secret, 40)

	_, _, err = app.login(ctx, "alice@example.com", "wrong-password", apiTokenName)
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, _, err = app.login(ctx, "bob@example.com", testPassword, apiTokenName)
	assert.ErrorIs(t, err, errInvalidCredentials)
}

func TestResolveBearer(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()
	u := createTestUser(t, app, "alice@example.com")
	token := issueTestToken(t, app, u)

	got, stored, err := app.resolveBearer(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotNil(t, stored.LastUsedAt)

	_, secret, _ := strings.Cut(token, "|")
	_, _, err = app.resolveBearer(ctx, "0|"+secret)
	assert.ErrorIs(t, err, errUnauthenticated)

	_, _, err = app.resolveBearer(ctx, "")
	assert.ErrorIs(t, err, errUnauthenticated)

	require.NoError(t, app.revokeToken(ctx, stored))
	_, _, err = app.resolveBearer(ctx, token)
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestResolveSession(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()
	u := createTestUser(t, app, "alice@example.com")

	value, expiresAt, err := app.issueSession(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(app.config.JWT.SessionLifetime), expiresAt, time.Minute)

	got, err := app.resolveSession(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = app.resolveSession(ctx, "")
	assert.ErrorIs(t, err, errUnauthenticated)
	_, err = app.resolveSession(ctx, value+"x")
	assert.ErrorIs(t, err, errUnauthenticated)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serviceName,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte(app.config.JWT.Secret))
	require.NoError(t, err)
	_, err = app.resolveSession(ctx, signed)
	assert.ErrorIs(t, err, errUnauthenticated)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{UserID: u.ID})
	forged, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = app.resolveSession(ctx, forged)
	assert.ErrorIs(t, err, errUnauthenticated)
}
