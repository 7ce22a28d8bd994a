package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"task-manager/backend/internal/models"
)

// FieldError はサーバーが返した入力エラーです。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError はAPI呼び出しの失敗です。StatusCode が 0 の場合は通信自体に失敗しています。
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "request failed: " + e.Message
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// TaskClient は /api/tasks を呼び出し、結果を Store に Dispatch します。
type TaskClient struct {
	baseURL    string
	httpClient *http.Client
	store      *Store
}

// NewTaskClient は新しいTaskClientを作成します。httpClient が nil の場合はタイムアウト付きのものを使います。
func NewTaskClient(baseURL string, store *Store, httpClient *http.Client) *TaskClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TaskClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/tasks",
		httpClient: httpClient,
		store:      store,
	}
}

// GetTasks は一覧を取得します。
func (c *TaskClient) GetTasks(ctx context.Context) ([]models.Task, error) {
	c.store.Dispatch(Loading{})
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "", nil, &tasks); err != nil {
		return nil, c.fail(err)
	}
	c.store.Dispatch(TasksLoaded{Tasks: tasks})
	return tasks, nil
}

// GetTask は詳細を取得します。
func (c *TaskClient) GetTask(ctx context.Context, id string) (*models.Task, error) {
	c.store.Dispatch(Loading{})
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, c.fail(err)
	}
	c.store.Dispatch(TaskLoaded{Task: task})
	return &task, nil
}

// AddTask はタスクを作成します。
func (c *TaskClient) AddTask(ctx context.Context, req models.TaskCreateRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "", req, &task); err != nil {
		return nil, c.fail(err)
	}
	c.store.Dispatch(TaskCreated{Task: task})
	return &task, nil
}

// UpdateTask はタスクを部分更新します。
func (c *TaskClient) UpdateTask(ctx context.Context, id string, req models.TaskUpdateRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(id), req, &task); err != nil {
		return nil, c.fail(err)
	}
	c.store.Dispatch(TaskUpdated{Task: task})
	return &task, nil
}

// DeleteTask はタスクを削除します。
func (c *TaskClient) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil); err != nil {
		return c.fail(err)
	}
	c.store.Dispatch(TaskDeleted{ID: id})
	return nil
}

func (c *TaskClient) fail(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = &APIError{Message: err.Error()}
	}
	c.store.Dispatch(Failed{Message: apiErr.Message, StatusCode: apiErr.StatusCode})
	return apiErr
}

func (c *TaskClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Errors []FieldError `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil {
			apiErr.Fields = errBody.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "invalid response body: " + err.Error()}
	}
	return nil
}
