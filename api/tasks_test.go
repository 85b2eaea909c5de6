package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTaskRoundTrip(t *testing.T) {
	app := newTestApplication(t)
	u := createTestUser(t, app, "alice@example.com")
	ctx := context.Background()

	desc := "two litres"
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	out, err := app.createTask(ctx, u, taskFields{Title: "Buy milk", Description: &desc, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, noticeCreated, out.Notice)
	assert.Equal(t, "Task created successfully!", out.Notice.message())

	got, err := app.findTaskFor(ctx, u, out.Task.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "Buy milk", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-01-10", got.DueDate.Format(dateLayout))
	assert.Nil(t, got.Completed)
}

func TestFindTaskFor(t *testing.T) {
	app := newTestApplication(t)
	alice := createTestUser(t, app, "alice@example.com")
	bob := createTestUser(t, app, "bob@example.com")
	tk := insertTestTask(t, app, alice, "mine", "2025-01-01")
	ctx := context.Background()

	_, err := app.findTaskFor(ctx, bob, tk.ID)
	assert.ErrorIs(t, err, errForbidden)

	_, err = app.findTaskFor(ctx, alice, tk.ID+1000)
	assert.ErrorIs(t, err, errNotFound)

	assert.ErrorIs(t, authorizeTaskAccess(nil, tk), errForbidden)
	assert.NoError(t, authorizeTaskAccess(alice, tk))
}

func TestUpdateTaskPartial(t *testing.T) {
	app := newTestApplication(t)
	u := createTestUser(t, app, "alice@example.com")
	tk := insertTestTask(t, app, u, "Original", "2025-01-01")
	ctx := context.Background()

	title := "Renamed"
	out, err := app.updateTask(ctx, u, tk.ID, taskChanges{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, noticeUpdated, out.Notice)

	got, err := app.storage.getTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-01-01", got.DueDate.Format(dateLayout))

	_, err = app.updateTask(ctx, u, tk.ID, taskChanges{SetCompleted: true, CompleteNow: true})
	require.NoError(t, err)
	got, err = app.storage.getTask(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Completed)
	assert.Equal(t, "Renamed", got.Title)

	_, err = app.updateTask(ctx, u, tk.ID, taskChanges{SetCompleted: true})
	require.NoError(t, err)
	got, err = app.storage.getTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Completed)
}

func TestUpdateTaskForbidden(t *testing.T) {
	app := newTestApplication(t)
	alice := createTestUser(t, app, "alice@example.com")
	bob := createTestUser(t, app, "bob@example.com")
	tk := insertTestTask(t, app, alice, "Alice's", "2025-01-01")
	ctx := context.Background()

	title := "hijacked"
	_, err := app.updateTask(ctx, bob, tk.ID, taskChanges{Title: &title})
	require.ErrorIs(t, err, errForbidden)

	_, err = app.deleteTask(ctx, bob, tk.ID)
	require.ErrorIs(t, err, errForbidden)

	got, err := app.storage.getTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's", got.Title)
}

func TestDeleteTask(t *testing.T) {
	app := newTestApplication(t)
	u := createTestUser(t, app, "alice@example.com")
	tk := insertTestTask(t, app, u, "bye", "2025-01-01")
	ctx := context.Background()

	out, err := app.deleteTask(ctx, u, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, noticeDeleted, out.Notice)

	_, err = app.deleteTask(ctx, u, tk.ID)
	assert.ErrorIs(t, err, errNotFound)
}

func TestTaskChangesApply(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	t.Run("complete now keeps an existing timestamp", func(t *testing.T) {
		earlier := created.Add(time.Minute)
		tk := &task{CreatedAt: created, Completed: &earlier}
		require.NoError(t, taskChanges{SetCompleted: true, CompleteNow: true}.apply(tk, now))
		assert.Equal(t, earlier, *tk.Completed)
	})

	t.Run("complete now on a pending task", func(t *testing.T) {
		tk := &task{CreatedAt: created}
		require.NoError(t, taskChanges{SetCompleted: true, CompleteNow: true}.apply(tk, now))
		assert.Equal(t, now, *tk.Completed)
	})

	t.Run("explicit timestamp before creation", func(t *testing.T) {
		before := created.Add(-time.Hour)
		tk := &task{CreatedAt: created}
		err := taskChanges{SetCompleted: true, Completed: &before}.apply(tk, now)
		verr, ok := asValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "completed")
		assert.Nil(t, tk.Completed)
	})

	t.Run("unset fields are kept", func(t *testing.T) {
		desc := "keep me"
		tk := &task{Title: "t", Description: &desc, CreatedAt: created}
		require.NoError(t, taskChanges{}.apply(tk, now))
		assert.Equal(t, "t", tk.Title)
		assert.Equal(t, &desc, tk.Description)
	})
}
