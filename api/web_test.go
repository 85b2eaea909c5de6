package main

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestWebLogin(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	createTestUser(t, app, "alice@example.com")

	t.Run("success sets both cookies", func(t *testing.T) {
		rr := newGuestSession().post(t, h, "/login", url.Values{
			"email":    {"alice@example.com"},
			"password": {testPassword},
		})
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/tasks", rr.Header().Get("Location"))

		cookies := rr.Result().Cookies()
		session := cookieByName(cookies, sessionCookieName)
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)

		token := cookieByName(cookies, tokenCookieName)
		require.NotNil(t, token)
		assert.False(t, token.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, token.SameSite)

		rr = doJSON(t, h, http.MethodGet, "/api/tasks", token.Value, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		rr := newGuestSession().post(t, h, "/login", url.Values{
			"email":    {"alice@example.com"},
			"password": {"wrong-password"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "These credentials do not match our records.")
		assert.Contains(t, rr.Body.String(), `value="alice@example.com"`)
		assert.Nil(t, cookieByName(rr.Result().Cookies(), sessionCookieName))
	})
}

func TestWebRegister(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()

	rr := newGuestSession().post(t, h, "/register", url.Values{
		"name":                  {"Alice"},
		"email":                 {"alice@example.com"},
		"password":              {testPassword},
		"password_confirmation": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.NotNil(t, cookieByName(rr.Result().Cookies(), sessionCookieName))

	rr = newGuestSession().post(t, h, "/register", url.Values{
		"name":                  {"Alice again"},
		"email":                 {"alice@example.com"},
		"password":              {testPassword},
		"password_confirmation": {"different"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "The password confirmation does not match.")
}

func TestWebGuestPagesRedirectSignedInUsers(t *testing.T) {
	app := newTestApplication(t)
	u := createTestUser(t, app, "alice@example.com")
	rr := newWebSession(t, app, u).get(t, app.routes(), "/login")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/tasks", rr.Header().Get("Location"))
}

func TestWebLogout(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	u := createTestUser(t, app, "alice@example.com")
	token, err := app.issueToken(context.Background(), u, webTokenName)
	require.NoError(t, err)

	s := newWebSession(t, app, u)
	s.cookies = append(s.cookies, &http.Cookie{Name: tokenCookieName, Value: token})

	rr := s.post(t, h, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	for _, name := range []string{sessionCookieName, tokenCookieName} {
		c := cookieByName(rr.Result().Cookies(), name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebTasksIndex(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	alice := createTestUser(t, app, "alice@example.com")
	bob := createTestUser(t, app, "bob@example.com")
	for _, title := range []string{"first", "second", "third", "fourth"} {
		insertTestTask(t, app, alice, title, "2025-01-01")
	}
	insertTestTask(t, app, bob, "bob's secret", "2025-01-01")
	s := newWebSession(t, app, alice)

	rr := s.get(t, h, "/tasks?notice=created")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Task created successfully!")
	assert.Contains(t, body, "first")
	assert.Contains(t, body, "third")
	assert.NotContains(t, body, "fourth")
	assert.NotContains(t, body, "bob&#39;s secret")
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, "/tasks?page=2")

	rr = s.get(t, h, "/tasks?page=2&search=four")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No tasks found.")

	rr = s.get(t, h, "/")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestWebStoreTask(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	u := createTestUser(t, app, "alice@example.com")
	s := newWebSession(t, app, u)

	rr := s.get(t, h, "/tasks/create")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.post(t, h, "/tasks", url.Values{
		"title":       {"From the web"},
		"description": {"details"},
		"due_date":    {"2025-06-01"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/tasks?notice=created", rr.Header().Get("Location"))

	page, err := app.listTasks(context.Background(), u, taskQuery{})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "From the web", page.Tasks[0].Title)

	rr = s.post(t, h, "/tasks", url.Values{
		"title":    {""},
		"due_date": {"someday"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "The title field is required.")
	assert.Contains(t, body, "The due date must be a date.")
	assert.Contains(t, body, `value="someday"`)
	assert.Equal(t, int64(1), countTasks(t, app))
}

func TestWebEditAndUpdateTask(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	alice := createTestUser(t, app, "alice@example.com")
	bob := createTestUser(t, app, "bob@example.com")
	tk := insertTestTask(t, app, alice, "Editable", "2025-01-01")
	s := newWebSession(t, app, alice)
	path := "/tasks/" + itoa(tk.ID)

	rr := s.get(t, h, path+"/edit")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="Editable"`)

	rr = newWebSession(t, app, bob).get(t, h, path+"/edit")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.get(t, h, "/tasks/99999/edit")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.post(t, h, path, url.Values{
		"_method":   {"PATCH"},
		"title":     {"Edited"},
		"due_date":  {"2025-02-02"},
		"completed": {"1"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/tasks?notice=updated", rr.Header().Get("Location"))

	got, err := app.storage.getTask(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.NotNil(t, got.Completed)

	rr = newWebSession(t, app, bob).post(t, h, path, url.Values{
		"_method":  {"PATCH"},
		"title":    {"Hijacked"},
		"due_date": {"2025-02-02"},
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.post(t, h, path, url.Values{
		"_method":  {"PATCH"},
		"title":    {strings.Repeat("x", maxTitleLength+1)},
		"due_date": {"2025-02-02"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "The title must not be greater than 150 characters.")

	got, err = app.storage.getTask(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
}

func TestWebDestroyTask(t *testing.T) {
	app := newTestApplication(t)
	h := app.routes()
	alice := createTestUser(t, app, "alice@example.com")
	bob := createTestUser(t, app, "bob@example.com")
	tk := insertTestTask(t, app, alice, "Doomed", "2025-01-01")
	path := "/tasks/" + itoa(tk.ID)

	rr := newWebSession(t, app, bob).post(t, h, path, url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, int64(1), countTasks(t, app))

	rr = newWebSession(t, app, alice).post(t, h, path, url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/tasks?notice=deleted", rr.Header().Get("Location"))
	assert.Zero(t, countTasks(t, app))
}

func TestPageURL(t *testing.T) {
	q := taskQuery{taskFilter: taskFilter{Status: statusPending, Search: "milk & eggs"}}
	assert.Equal(t, "/tasks?page=3&search=milk+%26+eggs&status=pending", pageURL(q, 3))
	assert.Equal(t, "/tasks?page=1", pageURL(taskQuery{}, 1))
}

func TestTemplateCache(t *testing.T) {
	cache, err := newTemplateCache()
	require.NoError(t, err)
	for _, name := range []string{"index.html", "create.html", "edit.html", "login.html", "register.html", "error.html"} {
		assert.Contains(t, cache, name)
	}
	assert.NotContains(t, cache, "base.html")
}
