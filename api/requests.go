package main

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// nullable records whether a JSON field was present and whether it was null,
// so PATCH bodies can distinguish "leave alone" from "clear".
type nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return json.Unmarshal(data, &n.Value)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req loginRequest) validate() error {
	v := newValidator()
	v.checkCond(req.Email != "", "email", "The email field is required.")
	v.checkCond(req.Email == "" || emailRegexp.MatchString(req.Email), "email", "The email must be a valid email address.")
	v.checkCond(req.Password != "", "password", "The password field is required.")
	return v.toError()
}

type registerRequest struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (req registerRequest) validate() error {
	v := newValidator()
	v.checkCond(strings.TrimSpace(req.Name) != "", "name", "The name field is required.")
	v.checkCond(len(req.Name) <= 255, "name", "The name must not be greater than 255 characters.")
	v.checkEmail(req.Email)
	v.checkPassword(req.Password)
	v.checkCond(req.Password == req.PasswordConfirmation, "password", "The password confirmation does not match.")
	return v.toError()
}

// taskFields is a validated set of fields for a new task.
type taskFields struct {
	Title       string
	Description *string
	DueDate     *time.Time
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     string  `json:"due_date"`
}

func (req createTaskRequest) validate() (taskFields, error) {
	v := newValidator()
	v.checkTitle(req.Title)
	if req.Description != nil {
		v.checkDescription(*req.Description)
	}
	v.checkCond(strings.TrimSpace(req.DueDate) != "", "due_date", "The due date field is required.")
	var due *time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		due = v.checkDate("due_date", req.DueDate)
	}
	if err := v.toError(); err != nil {
		return taskFields{}, err
	}
	return taskFields{
		Title:       strings.TrimSpace(req.Title),
		Description: emptyToNil(req.Description),
		DueDate:     due,
	}, nil
}

// taskChanges is a validated partial update. Fields whose Set flag is false
// keep their stored value.
type taskChanges struct {
	Title          *string
	SetDescription bool
	Description    *string
	SetDueDate     bool
	DueDate        *time.Time
	SetCompleted   bool
	CompleteNow    bool
	Completed      *time.Time
}

type updateTaskRequest struct {
	Title       nullable[string]          `json:"title"`
	Description nullable[string]          `json:"description"`
	DueDate     nullable[string]          `json:"due_date"`
	Completed   nullable[json.RawMessage] `json:"completed"`
}

func (req updateTaskRequest) validate() (taskChanges, error) {
	var changes taskChanges
	v := newValidator()

	if req.Title.Set {
		v.checkCond(req.Title.Valid, "title", "The title field is required.")
		if req.Title.Valid {
			v.checkTitle(req.Title.Value)
			title := strings.TrimSpace(req.Title.Value)
			changes.Title = &title
		}
	}
	if req.Description.Set {
		changes.SetDescription = true
		if req.Description.Valid {
			v.checkDescription(req.Description.Value)
			changes.Description = emptyToNil(&req.Description.Value)
		}
	}
	if req.DueDate.Set {
		changes.SetDueDate = true
		if req.DueDate.Valid && strings.TrimSpace(req.DueDate.Value) != "" {
			changes.DueDate = v.checkDate("due_date", req.DueDate.Value)
		}
	}
	if req.Completed.Set {
		changes.SetCompleted = true
		if req.Completed.Valid {
			now, at, ok := parseCompleted(req.Completed.Value)
			v.checkCond(ok, "completed", "The completed field must be true, false or a date.")
			changes.CompleteNow = now
			changes.Completed = at
		}
	}

	if err := v.toError(); err != nil {
		return taskChanges{}, err
	}
	return changes, nil
}

// parseCompleted interprets the "completed" value of an update: true marks
// the task complete now, false clears it, a string is an explicit timestamp.
func parseCompleted(raw json.RawMessage) (now bool, at *time.Time, ok bool) {
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true, nil, true
		case "false", "0", "":
			return false, nil, true
		}
		if ts, ok := parseTimestamp(s); ok {
			return false, &ts, true
		}
	}
	return false, nil, false
}

// taskForm is the web form payload for both create and edit.
type taskForm struct {
	Title       string
	Description string
	DueDate     string
	Completed   bool
}

func taskFormFromValues(form url.Values) taskForm {
	completed := form.Get("completed")
	return taskForm{
		Title:       form.Get("title"),
		Description: form.Get("description"),
		DueDate:     form.Get("due_date"),
		Completed:   completed == "1" || completed == "on" || completed == "true",
	}
}

func taskFormFromTask(t *task) taskForm {
	f := taskForm{Title: t.Title, Completed: t.isCompleted()}
	if t.Description != nil {
		f.Description = *t.Description
	}
	if t.DueDate != nil {
		f.DueDate = t.DueDate.Format(dateLayout)
	}
	return f
}

func (f taskForm) createRequest() createTaskRequest {
	desc := f.Description
	return createTaskRequest{Title: f.Title, Description: &desc, DueDate: f.DueDate}
}

// changes validates an edit form. The form always carries every field, so the
// result replaces title, description and due date and sets or clears
// completion from the checkbox.
func (f taskForm) changes() (taskChanges, error) {
	v := newValidator()
	v.checkTitle(f.Title)
	v.checkDescription(f.Description)
	v.checkCond(strings.TrimSpace(f.DueDate) != "", "due_date", "The due date field is required.")
	var due *time.Time
	if strings.TrimSpace(f.DueDate) != "" {
		due = v.checkDate("due_date", f.DueDate)
	}
	if err := v.toError(); err != nil {
		return taskChanges{}, err
	}
	title := strings.TrimSpace(f.Title)
	desc := f.Description
	return taskChanges{
		Title:          &title,
		SetDescription: true,
		Description:    emptyToNil(&desc),
		SetDueDate:     true,
		DueDate:        due,
		SetCompleted:   true,
		CompleteNow:    f.Completed,
	}, nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
