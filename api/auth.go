package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "session"
	tokenCookieName   = "user_token"
	tokenCookieMaxAge = 365 * 24 * time.Hour
	apiTokenName      = "api_token"
	webTokenName      = "web_token"
)

func (app *application) hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), app.bcryptCost)
}

func matchPassword(hash []byte, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// register creates a user account from an already validated request.
func (app *application) register(ctx context.Context, req registerRequest) (*user, error) {
	hash, err := app.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &user{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := app.storage.insertUser(ctx, u); err != nil {
		if errors.Is(err, errDuplicateEmail) {
			return nil, &validationError{Fields: map[string][]string{
				"email": {"The email has already been taken."},
			}}
		}
		return nil, err
	}
	return u, nil
}

// login checks the credentials and issues a new API token. Unknown email and
// wrong password are indistinguishable to the caller.
func (app *application) login(ctx context.Context, email, password, tokenName string) (string, *user, error) {
	u, err := app.storage.getUserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, errInvalidCredentials
	}
	ok, err := matchPassword(u.PasswordHash, password)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, errInvalidCredentials
	}
	token, err := app.issueToken(ctx, u, tokenName)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func hashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// issueToken stores a new API token for u and returns its plaintext form,
// "<id>|<secret>". Only the secret's hash is persisted.
func (app *application) issueToken(ctx context.Context, u *user, name string) (string, error) {
	b := make([]byte, 25)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)

	t := &apiToken{
		UserID:    u.ID,
		Name:      name,
		TokenHash: hashToken(secret),
	}
	if err := app.storage.insertToken(ctx, t); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d|%s", t.ID, secret), nil
}

// lookupToken finds the stored token for a plaintext bearer value.
func (app *application) lookupToken(ctx context.Context, plaintext string) (*apiToken, error) {
	id, secret, hasID := strings.Cut(plaintext, "|")
	if !hasID {
		secret = plaintext
	}
	if secret == "" {
		return nil, errUnauthenticated
	}
	t, err := app.storage.getTokenByHash(ctx, hashToken(secret))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errUnauthenticated
	}
	if hasID && id != strconv.Itoa(t.ID) {
		return nil, errUnauthenticated
	}
	return t, nil
}

// resolveBearer maps an API token to its owner.
func (app *application) resolveBearer(ctx context.Context, plaintext string) (*user, *apiToken, error) {
	t, err := app.lookupToken(ctx, plaintext)
	if err != nil {
		return nil, nil, err
	}
	u, err := app.storage.getUserByID(ctx, t.UserID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		return nil, nil, errUnauthenticated
	}
	if err := app.storage.touchToken(ctx, t, time.Now()); err != nil {
		app.logger.WithError(err).WithField("token_id", t.ID).Warn("failed to record token use")
	}
	return u, t, nil
}

func (app *application) revokeToken(ctx context.Context, t *apiToken) error {
	return app.storage.deleteToken(ctx, t)
}

type sessionClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// issueSession signs a session credential for u valid for the configured
// session lifetime.
func (app *application) issueSession(u *user) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(app.config.JWT.SessionLifetime)
	claims := sessionClaims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serviceName,
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(app.config.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// resolveSession validates a session cookie value and loads its user.
func (app *application) resolveSession(ctx context.Context, value string) (*user, error) {
	if value == "" {
		return nil, errUnauthenticated
	}
	token, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(app.config.JWT.Secret), nil
	})
	if err != nil {
		app.logger.WithError(err).Debug("rejected session")
		return nil, errUnauthenticated
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.Issuer != serviceName {
		return nil, errUnauthenticated
	}
	u, err := app.storage.getUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errUnauthenticated
	}
	return u, nil
}
