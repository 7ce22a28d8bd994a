package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
)

var dueDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTask(title string, createdAt time.Time) *models.Task {
	return &models.Task{
		Title:       title,
		Description: "description of " + title,
		Priority:    models.PriorityMedium,
		DueDate:     dueDate,
		CreatedAt:   createdAt,
	}
}

// runTaskRepositoryContract はすべての保存先が満たすべき振る舞いを確認します。
func runTaskRepositoryContract(t *testing.T, newRepo func(t *testing.T) repositories.TaskRepository, malformedID, missingID string) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Ping succeeds", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Ping(ctx))
	})

	t.Run("Create assigns unique ids and keeps fields", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, newTask("A", base))
		require.NoError(t, err)
		b, err := repo.Create(ctx, newTask("B", base.Add(time.Second)))
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, b.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "A", a.Title)
		assert.Equal(t, "description of A", a.Description)
		assert.Equal(t, models.PriorityMedium, a.Priority)
		assert.True(t, a.DueDate.Equal(dueDate))
		assert.True(t, a.CreatedAt.Equal(base))
	})

	t.Run("FindAll returns newest first", func(t *testing.T) {
		repo := newRepo(t)
		for i, title := range []string{"first", "second", "third"} {
			_, err := repo.Create(ctx, newTask(title, base.Add(time.Duration(i)*time.Second)))
			require.NoError(t, err)
		}

		tasks, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "third", tasks[0].Title)
		assert.Equal(t, "second", tasks[1].Title)
		assert.Equal(t, "first", tasks[2].Title)
	})

	t.Run("FindAll on empty store returns no tasks", func(t *testing.T) {
		repo := newRepo(t)
		tasks, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("FindByID returns the stored task", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTask("find me", base))
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "find me", found.Title)
		assert.True(t, found.DueDate.Equal(dueDate))
		assert.True(t, found.CreatedAt.Equal(created.CreatedAt))
		assert.False(t, found.Completed)
	})

	t.Run("Update changes only patched fields", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTask("patch me", base))
		require.NoError(t, err)

		done := true
		updated, err := repo.Update(ctx, created.ID, &models.TaskPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.Priority, updated.Priority)
		assert.True(t, updated.DueDate.Equal(created.DueDate))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

		title := "renamed"
		high := models.PriorityHigh
		updated, err = repo.Update(ctx, created.ID, &models.TaskPatch{Title: &title, Priority: &high})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Title)
		assert.Equal(t, models.PriorityHigh, updated.Priority)
		assert.True(t, updated.Completed)

		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", found.Title)
		assert.True(t, found.Completed)
	})

	t.Run("Update with empty patch returns the current task", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTask("untouched", base))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, created.ID, &models.TaskPatch{})
		require.NoError(t, err)
		assert.Equal(t, "untouched", updated.Title)
	})

	t.Run("Delete removes the task", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, newTask("delete me", base))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))
		_, err = repo.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), repositories.ErrTaskNotFound)
	})

	t.Run("Missing id is NotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, missingID)
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		_, err = repo.Update(ctx, missingID, &models.TaskPatch{})
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, missingID), repositories.ErrTaskNotFound)
	})

	t.Run("Malformed id is NotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, malformedID)
		assert.ErrorIs(t, err, repositories.ErrInvalidTaskID)
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		_, err = repo.Update(ctx, malformedID, &models.TaskPatch{})
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, malformedID), repositories.ErrTaskNotFound)
	})
}
