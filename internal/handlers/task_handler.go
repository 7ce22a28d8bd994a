package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
	"task-manager/backend/internal/services"
)

// TaskHandler はTask関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// GetTasksHandler はタスク一覧を取得します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	tasks, err := h.taskService.GetTasks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByIDHandler は指定IDのタスクを取得します。
func (h *TaskHandler) GetTaskByIDHandler(c *gin.Context) {
	task, err := h.taskService.GetTaskByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var req models.TaskCreateRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadPayload(c, err)
		return
	}

	created, err := h.taskService.CreateTask(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// UpdateTaskHandler はタスクを部分更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	var req models.TaskUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadPayload(c, err)
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task removed"})
}

// HealthHandler は現在どの保存先でリクエストを処理しているかを返します。
func (h *TaskHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.taskService.ActiveSource(c.Request.Context())})
}

func respondError(c *gin.Context, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Errors})
		return
	}
	if errors.Is(err, repositories.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
}

// bindJSON は空のボディを {} として扱います。
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondBadPayload はJSONとして読めないボディを ValidationError と同じ形で返します。
func respondBadPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": []services.FieldError{{Field: "body", Message: "Invalid request payload: " + err.Error()}}})
}
