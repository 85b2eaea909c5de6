package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

type envelope map[string]any

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	heathCheck := envelope{
		"status":      "available",
		"environment": app.config.Env,
		"version":     version,
	}
	err := writeJSON(w, http.StatusOK, heathCheck)
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) generateTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	err := readJSON(w, r, &input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := input.validate(); err != nil {
		app.apiError(w, r, err, "")
		return
	}

	token, u, err := app.login(r.Context(), input.Email, input.Password, apiTokenName)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			writeMessage(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		app.serverError(w, r, err)
		return
	}

	app.requestLogger(r).WithField("user_id", u.ID).Info("api token issued")
	err = writeJSON(w, http.StatusOK, envelope{"message": "Login successful", "token": token})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) revokeTokenHandler(w http.ResponseWriter, r *http.Request) {
	t := getTokenFromRequest(r)
	if t == nil {
		writeMessage(w, "Unauthenticated.", http.StatusUnauthorized)
		return
	}
	if err := app.revokeToken(r.Context(), t); err != nil {
		app.serverError(w, r, err)
		return
	}
	err := writeJSON(w, http.StatusOK, envelope{"message": "Token revoked"})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) listTasksAPIHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	q := parseTaskQuery(r.URL.Query(), false)

	page, err := app.listTasks(r.Context(), u, q)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := envelope{"tasks": toTaskResponses(page.Tasks)}
	if q.Page > 0 {
		data = envelope{
			"data":         toTaskResponses(page.Tasks),
			"current_page": page.CurrentPage,
			"last_page":    page.LastPage,
			"per_page":     page.PerPage,
			"total":        page.Total,
		}
	}
	err = writeJSON(w, http.StatusOK, data)
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) createTaskAPIHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	var input createTaskRequest
	err := readJSON(w, r, &input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	fields, err := input.validate()
	if err != nil {
		app.apiError(w, r, err, "create")
		return
	}

	out, err := app.createTask(r.Context(), u, fields)
	if err != nil {
		app.apiError(w, r, err, "create")
		return
	}

	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task created")
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", out.Task.ID))
	err = writeJSON(w, http.StatusCreated, envelope{"message": out.Notice.message(), "task": toTaskResponse(out.Task)})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) showTaskAPIHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.apiError(w, r, errNotFound, "view")
		return
	}

	t, err := app.findTaskFor(r.Context(), u, id)
	if err != nil {
		app.apiError(w, r, err, "view")
		return
	}

	err = writeJSON(w, http.StatusOK, envelope{"single_task": toTaskResponse(t)})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) updateTaskAPIHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.apiError(w, r, errNotFound, "update")
		return
	}

	t, err := app.findTaskFor(r.Context(), u, id)
	if err != nil {
		app.apiError(w, r, err, "update")
		return
	}

	var input updateTaskRequest
	err = readJSON(w, r, &input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	changes, err := input.validate()
	if err != nil {
		app.apiError(w, r, err, "update")
		return
	}

	out, err := app.saveTaskChanges(r.Context(), t, changes)
	if err != nil {
		app.apiError(w, r, err, "update")
		return
	}

	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task updated")
	err = writeJSON(w, http.StatusOK, envelope{"message": out.Notice.message(), "task": toTaskResponse(out.Task)})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) deleteTaskAPIHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := readIDParam(r)
	if err != nil {
		app.apiError(w, r, errNotFound, "delete")
		return
	}

	out, err := app.deleteTask(r.Context(), u, id)
	if err != nil {
		app.apiError(w, r, err, "delete")
		return
	}

	app.requestLogger(r).WithField("task_id", out.Task.ID).Info("task deleted")
	err = writeJSON(w, http.StatusOK, envelope{"message": out.Notice.message()})
	if err != nil {
		app.serverError(w, r, err)
	}
}

// apiError maps the error kinds of the task core onto JSON responses. verb
// names the attempted action in the forbidden message.
func (app *application) apiError(w http.ResponseWriter, r *http.Request, err error, verb string) {
	if verr, ok := asValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			"message": validationMessage(verr),
			"errors":  verr.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, errNotFound):
		writeMessage(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, errForbidden):
		writeMessage(w, fmt.Sprintf("You are not authorized to %s this task", verb), http.StatusForbidden)
	case errors.Is(err, errUnauthenticated):
		writeMessage(w, "Unauthenticated.", http.StatusUnauthorized)
	case errors.Is(err, errPersistence):
		app.requestLogger(r).WithError(err).Error("task could not be stored")
		writeMessage(w, "Error while creating task!", http.StatusBadRequest)
	default:
		app.serverError(w, r, err)
	}
}

// validationMessage summarises field errors as "<first> (and N more errors)".
func validationMessage(verr *validationError) string {
	names := verr.fieldNames()
	if len(names) == 0 {
		return "The given data was invalid."
	}
	msg := verr.first(names[0])
	more := 0
	for _, n := range names {
		more += len(verr.Fields[n])
	}
	more--
	switch {
	case more == 1:
		msg += " (and 1 more error)"
	case more > 1:
		msg += fmt.Sprintf(" (and %d more errors)", more)
	}
	return msg
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.requestLogger(r).WithError(err).Error("internal server error")
	writeMessage(w, "internal server error", http.StatusInternalServerError)
}

func readIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}
	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data envelope) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func composeJSONError(err error) envelope {
	msg := err.Error()
	if msg == "" {
		msg = http.StatusText(http.StatusInternalServerError)
	}
	return envelope{"message": strings.TrimSpace(msg)}
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("X-Content-Type-Options", "nosniff")
	writeJSON(w, statusCode, composeJSONError(err))
}

func writeMessage(w http.ResponseWriter, msg string, statusCode int) {
	writeError(w, errors.New(msg), statusCode)
}
