package main

import (
	"context"
	"fmt"
	"time"
)

// notice tells the presentation layer which mutation succeeded.
type notice string

const (
	noticeNone    notice = ""
	noticeCreated notice = "created"
	noticeUpdated notice = "updated"
	noticeDeleted notice = "deleted"
)

func (n notice) message() string {
	switch n {
	case noticeCreated:
		return "Task created successfully!"
	case noticeUpdated:
		return "Task updated successfully!"
	case noticeDeleted:
		return "Task deleted successfully!"
	}
	return ""
}

type taskOutcome struct {
	Task   *task
	Notice notice
}

func authorizeTaskAccess(u *user, t *task) error {
	if u == nil || t.UserID != u.ID {
		return errForbidden
	}
	return nil
}

// findTaskFor loads a task and checks that u owns it. A missing row yields
// errNotFound, a row owned by someone else errForbidden.
func (app *application) findTaskFor(ctx context.Context, u *user, id int) (*task, error) {
	t, err := app.storage.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTaskAccess(u, t); err != nil {
		return nil, err
	}
	return t, nil
}

// createTask stores a new task owned by u.
func (app *application) createTask(ctx context.Context, u *user, fields taskFields) (taskOutcome, error) {
	t := &task{
		UserID:      u.ID,
		Title:       fields.Title,
		Description: fields.Description,
		DueDate:     fields.DueDate,
	}
	if err := app.storage.insertTask(ctx, t); err != nil {
		return taskOutcome{}, fmt.Errorf("%w: %w", errPersistence, err)
	}
	return taskOutcome{Task: t, Notice: noticeCreated}, nil
}

func (app *application) updateTask(ctx context.Context, u *user, id int, changes taskChanges) (taskOutcome, error) {
	t, err := app.findTaskFor(ctx, u, id)
	if err != nil {
		return taskOutcome{}, err
	}
	return app.saveTaskChanges(ctx, t, changes)
}

// saveTaskChanges applies changes to a task the caller has already been
// authorized for and persists it.
func (app *application) saveTaskChanges(ctx context.Context, t *task, changes taskChanges) (taskOutcome, error) {
	if err := changes.apply(t, time.Now()); err != nil {
		return taskOutcome{}, err
	}
	if err := app.storage.updateTask(ctx, t); err != nil {
		return taskOutcome{}, err
	}
	return taskOutcome{Task: t, Notice: noticeUpdated}, nil
}

func (app *application) deleteTask(ctx context.Context, u *user, id int) (taskOutcome, error) {
	t, err := app.findTaskFor(ctx, u, id)
	if err != nil {
		return taskOutcome{}, err
	}
	if err := app.storage.deleteTask(ctx, t); err != nil {
		return taskOutcome{}, err
	}
	return taskOutcome{Task: t, Notice: noticeDeleted}, nil
}

// apply merges c into t. Marking an already completed task complete keeps its
// original timestamp.
func (c taskChanges) apply(t *task, now time.Time) error {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.SetDescription {
		t.Description = c.Description
	}
	if c.SetDueDate {
		t.DueDate = c.DueDate
	}
	if !c.SetCompleted {
		return nil
	}
	switch {
	case c.Completed != nil:
		if c.Completed.Before(t.CreatedAt.Truncate(time.Second)) {
			return &validationError{Fields: map[string][]string{
				"completed": {"The completed must be a date after or equal to the task creation time."},
			}}
		}
		t.Completed = c.Completed
	case c.CompleteNow:
		if t.Completed == nil {
			t.Completed = &now
		}
	default:
		t.Completed = nil
	}
	return nil
}
