package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"task-manager/backend/internal/config"
	"task-manager/backend/internal/database"
	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
	"task-manager/backend/internal/routes"
	"task-manager/backend/internal/services"
)

// TestEnv はテスト用のルーターと、その裏にある保存先の組です。
type TestEnv struct {
	Router   *gin.Engine
	Service  *services.TaskService
	Primary  *FlakyTaskRepository
	Store    *repositories.SQLTaskRepository
	Fallback *repositories.InMemoryTaskRepository
}

// NewSQLiteTaskRepository はテストごとに独立したインメモリのSQLiteリポジトリを作成します。
func NewSQLiteTaskRepository(t *testing.T) *repositories.SQLTaskRepository {
	t.Helper()
	db, err := database.OpenSQL("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := repositories.NewSQLTaskRepository(db, repositories.DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

// SetupTestEnv は SQLite を永続ストアとするルーターをセットアップします。
// Primary.SetDown(true) でストアの停止を再現できます。
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewSQLiteTaskRepository(t)
	primary := NewFlakyTaskRepository(store)
	fallback := repositories.NewInMemoryTaskRepository()
	taskService := services.NewTaskService(primary, fallback, false)

	cfg := config.Default()
	return &TestEnv{
		Router:   routes.SetupRouter(cfg, taskService),
		Service:  taskService,
		Primary:  primary,
		Store:    store,
		Fallback: fallback,
	}
}

// DoJSON はJSONボディ付きのリクエストをルーターに送ります。
func DoJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask はAPI経由でタスクを作成します。
func CreateTestTask(t *testing.T, router http.Handler, title, dueDate string) *models.Task {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/tasks", map[string]any{
		"title":   title,
		"dueDate": dueDate,
	})
	require.Equal(t, http.StatusOK, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}
