package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/backend/internal/client"
	"task-manager/backend/internal/config"
	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
	"task-manager/backend/internal/routes"
	"task-manager/backend/internal/services"
)

func setupClient(t *testing.T) (*client.TaskClient, *client.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	taskService := services.NewTaskService(nil, repositories.NewInMemoryTaskRepository(), true)
	server := httptest.NewServer(routes.SetupRouter(config.Default(), taskService))
	t.Cleanup(server.Close)

	store := client.NewStore()
	return client.NewTaskClient(server.URL, store, server.Client()), store
}

func TestTaskClient_CRUD(t *testing.T) {
	ctx := context.Background()
	c, store := setupClient(t)

	// --- Test Case 1: 作成すると先頭に追加される ---
	first, err := c.AddTask(ctx, models.TaskCreateRequest{Title: "first", DueDate: "2024-01-01"})
	require.NoError(t, err)
	second, err := c.AddTask(ctx, models.TaskCreateRequest{Title: "second", DueDate: "2024-01-02", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids(store.State().Tasks))

	// --- Test Case 2: 一覧の取得 ---
	tasks, err := c.GetTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.False(t, store.State().Loading)
	assert.Equal(t, "second", store.State().Tasks[0].Title)

	// --- Test Case 3: 詳細の取得 ---
	got, err := c.GetTask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	require.NotNil(t, store.State().Task)
	assert.Equal(t, first.ID, store.State().Task.ID)

	// --- Test Case 4: 更新 ---
	done := true
	updated, err := c.UpdateTask(ctx, first.ID, models.TaskUpdateRequest{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "first", updated.Title)
	assert.True(t, store.State().Tasks[1].Completed)

	// --- Test Case 5: 削除 ---
	require.NoError(t, c.DeleteTask(ctx, second.ID))
	assert.Equal(t, []string{first.ID}, ids(store.State().Tasks))
	assert.Nil(t, store.State().Error)
}

func TestTaskClient_Errors(t *testing.T) {
	ctx := context.Background()

	// --- Test Case 1: 404 ---
	t.Run("Not found", func(t *testing.T) {
		c, store := setupClient(t)
		_, err := c.GetTask(ctx, "999")
		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

		state := store.State()
		require.NotNil(t, state.Error)
		assert.Equal(t, http.StatusNotFound, state.Error.StatusCode)
		assert.Equal(t, "Not Found", state.Error.Message)
		assert.False(t, state.Loading)
	})

	// --- Test Case 2: 400 はフィールドの一覧を持つ ---
	t.Run("Validation", func(t *testing.T) {
		c, store := setupClient(t)
		_, err := c.AddTask(ctx, models.TaskCreateRequest{})
		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.ElementsMatch(t, []client.FieldError{
			{Field: "title", Message: "Title is required"},
			{Field: "dueDate", Message: "Due date is required"},
		}, apiErr.Fields)
		assert.Empty(t, store.State().Tasks)
		assert.Equal(t, http.StatusBadRequest, store.State().Error.StatusCode)
	})

	// --- Test Case 3: 通信エラー ---
	t.Run("Transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		store := client.NewStore()
		c := client.NewTaskClient(url, store, nil)
		_, err := c.GetTasks(ctx)
		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Zero(t, apiErr.StatusCode)
		require.NotNil(t, store.State().Error)
		assert.Zero(t, store.State().Error.StatusCode)
		assert.False(t, store.State().Loading)
	})
}
