package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

// newTestApplication returns an application backed by a fresh in-memory
// SQLite database with the schema migrated.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	cfg := defaultConfig()
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = ":memory:"
	cfg.JWT.Secret = "test-secret"
	cfg.Limiter.Enabled = false

	db, err := openDB(cfg)
	require.NoError(t, err)
	store := newStorage(db)
	t.Cleanup(func() { store.close() })
	require.NoError(t, store.migrate(context.Background()))

	app, err := newApplication(cfg, newLogger("error", io.Discard), store)
	require.NoError(t, err)
	app.bcryptCost = bcrypt.MinCost
	return app
}

func createTestUser(t *testing.T, app *application, email string) *user {
	t.Helper()
	u, err := app.register(context.Background(), registerRequest{
		Name:                 strings.Split(email, "@")[0],
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
	})
	require.NoError(t, err)
	return u
}

func issueTestToken(t *testing.T, app *application, u *user) string {
	t.Helper()
	token, err := app.issueToken(context.Background(), u, apiTokenName)
	require.NoError(t, err)
	return token
}

// insertTestTask stores a task directly. An empty due leaves the due date unset.
func insertTestTask(t *testing.T, app *application, u *user, title, due string) *task {
	t.Helper()
	tk := &task{UserID: u.ID, Title: title}
	if due != "" {
		d, err := time.Parse(dateLayout, due)
		require.NoError(t, err)
		tk.DueDate = &d
	}
	require.NoError(t, app.storage.insertTask(context.Background(), tk))
	return tk
}

func itoa(n int) string { return strconv.Itoa(n) }

func countTasks(t *testing.T, app *application) int64 {
	t.Helper()
	var n int64
	require.NoError(t, app.storage.db.Model(&task{}).Count(&n).Error)
	return n
}

func doJSON(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const testCSRFToken = "test-csrf-token"

// webSession holds the cookies of a signed-in browser.
type webSession struct {
	cookies []*http.Cookie
}

func newWebSession(t *testing.T, app *application, u *user) *webSession {
	t.Helper()
	value, _, err := app.issueSession(u)
	require.NoError(t, err)
	return &webSession{cookies: []*http.Cookie{
		{Name: sessionCookieName, Value: value},
		{Name: csrfCookieName, Value: testCSRFToken},
	}}
}

// newGuestSession is a browser that has loaded a page but is not signed in.
func newGuestSession() *webSession {
	return &webSession{cookies: []*http.Cookie{{Name: csrfCookieName, Value: testCSRFToken}}}
}

func (s *webSession) get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// post submits a form the way a browser does, including the CSRF field
// unless the form already sets one.
func (s *webSession) post(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form[csrfFormField]; !ok {
		form.Set(csrfFormField, testCSRFToken)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
