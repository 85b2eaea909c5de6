package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

func (app *application) homeHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func (app *application) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = loginRequest{}
	app.render(w, r, http.StatusOK, "login.html", data)
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.renderError(w, r, http.StatusBadRequest, "The request could not be read.")
		return
	}
	input := loginRequest{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}

	showForm := func(fields map[string][]string) {
		data := app.newTemplateData(r)
		data.Form = loginRequest{Email: input.Email}
		data.Errors = fields
		app.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
	}

	if err := input.validate(); err != nil {
		verr, _ := asValidationError(err)
		showForm(verr.Fields)
		return
	}

	token, u, err := app.login(r.Context(), input.Email, input.Password, webTokenName)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			showForm(map[string][]string{"email": {"These credentials do not match our records."}})
			return
		}
		app.webServerError(w, r, err)
		return
	}

	if err := app.startSession(w, u, token); err != nil {
		app.webServerError(w, r, err)
		return
	}
	app.requestLogger(r).WithField("user_id", u.ID).Info("user logged in")
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func (app *application) registerFormHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = registerRequest{}
	app.render(w, r, http.StatusOK, "register.html", data)
}

func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.renderError(w, r, http.StatusBadRequest, "The request could not be read.")
		return
	}
	input := registerRequest{
		Name:                 r.PostForm.Get("name"),
		Email:                r.PostForm.Get("email"),
		Password:             r.PostForm.Get("password"),
		PasswordConfirmation: r.PostForm.Get("password_confirmation"),
	}

	err := input.validate()
	var u *user
	if err == nil {
		u, err = app.register(r.Context(), input)
	}
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			data := app.newTemplateData(r)
			data.Form = registerRequest{Name: input.Name, Email: input.Email}
			data.Errors = verr.Fields
			app.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
			return
		}
		app.webServerError(w, r, err)
		return
	}

	token, err := app.issueToken(r.Context(), u, webTokenName)
	if err != nil {
		app.webServerError(w, r, err)
		return
	}
	if err := app.startSession(w, u, token); err != nil {
		app.webServerError(w, r, err)
		return
	}
	app.requestLogger(r).WithField("user_id", u.ID).Info("user registered")
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	if c, err := r.Cookie(tokenCookieName); err == nil && c.Value != "" {
		t, err := app.lookupToken(r.Context(), c.Value)
		switch {
		case err == nil && t.UserID == u.ID:
			if err := app.revokeToken(r.Context(), t); err != nil {
				app.webServerError(w, r, err)
				return
			}
		case err != nil && !errors.Is(err, errUnauthenticated):
			app.webServerError(w, r, err)
			return
		}
	}

	app.clearSession(w)
	app.requestLogger(r).WithField("user_id", u.ID).Info("user logged out")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// startSession sets the signed session cookie and the script-readable API
// token cookie.
func (app *application) startSession(w http.ResponseWriter, u *user, token string) error {
	session, expiresAt, err := app.issueSession(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   app.config.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenCookieMaxAge / time.Second),
		Secure:   app.config.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (app *application) clearSession(w http.ResponseWriter) {
	for _, name := range []string{sessionCookieName, tokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
}

func (app *application) tasksIndexHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	q := parseTaskQuery(r.URL.Query(), true)

	page, err := app.listTasks(r.Context(), u, q)
	if err != nil {
		app.webServerError(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Page = page
	data.Query = q
	data.Notice = notice(r.URL.Query().Get("notice")).message()
	app.render(w, r, http.StatusOK, "index.html", data)
}

func (app *application) createTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = taskForm{}
	app.render(w, r, http.StatusOK, "create.html", data)
}

func (app *application) storeTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	if err := r.ParseForm(); err != nil {
		app.renderError(w, r, http.StatusBadRequest, "The request could not be read.")
		return
	}
	form := taskFormFromValues(r.PostForm)

	fields, err := form.createRequest().validate()
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			data := app.newTemplateData(r)
			data.Form = form
			data.Errors = verr.Fields
			app.render(w, r, http.StatusUnprocessableEntity, "create.html", data)
			return
		}
		app.webServerError(w, r, err)
		return
	}

	out, err := app.createTask(r.Context(), u, fields)
	if err != nil {
		app.webTaskError(w, r, err)
		return
	}
	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task created")
	redirectWithNotice(w, r, out.Notice)
}

func (app *application) editTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.webTaskError(w, r, errNotFound)
		return
	}
	t, err := app.findTaskFor(r.Context(), u, id)
	if err != nil {
		app.webTaskError(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Task = t
	data.Form = taskFormFromTask(t)
	app.render(w, r, http.StatusOK, "edit.html", data)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.webTaskError(w, r, errNotFound)
		return
	}
	t, err := app.findTaskFor(r.Context(), u, id)
	if err != nil {
		app.webTaskError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.renderError(w, r, http.StatusBadRequest, "The request could not be read.")
		return
	}
	form := taskFormFromValues(r.PostForm)

	showForm := func(fields map[string][]string) {
		data := app.newTemplateData(r)
		data.Task = t
		data.Form = form
		data.Errors = fields
		app.render(w, r, http.StatusUnprocessableEntity, "edit.html", data)
	}

	changes, err := form.changes()
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			showForm(verr.Fields)
			return
		}
		app.webServerError(w, r, err)
		return
	}

	out, err := app.saveTaskChanges(r.Context(), t, changes)
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			showForm(verr.Fields)
			return
		}
		app.webTaskError(w, r, err)
		return
	}
	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task updated")
	redirectWithNotice(w, r, out.Notice)
}

func (app *application) destroyTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.webTaskError(w, r, errNotFound)
		return
	}
	out, err := app.deleteTask(r.Context(), u, id)
	if err != nil {
		app.webTaskError(w, r, err)
		return
	}
	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task deleted")
	redirectWithNotice(w, r, out.Notice)
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, n notice) {
	http.Redirect(w, r, fmt.Sprintf("/tasks?notice=%s", n), http.StatusSeeOther)
}

// webTaskError renders the error page matching a task core error.
func (app *application) webTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotFound):
		app.renderError(w, r, http.StatusNotFound, "The task you are looking for does not exist.")
	case errors.Is(err, errForbidden):
		app.renderError(w, r, http.StatusForbidden, "This action is unauthorized.")
	case errors.Is(err, errPersistence):
		app.requestLogger(r).WithError(err).Error("task could not be stored")
		app.renderError(w, r, http.StatusBadRequest, "Error while creating task!")
	default:
		app.webServerError(w, r, err)
	}
}

func (app *application) webServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.requestLogger(r).WithError(err).Error("internal server error")
	app.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
