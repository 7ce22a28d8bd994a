// Package repositories はタスクの保存先ごとのリポジトリを提供します。
package repositories

import (
	"context"
	"errors"
	"fmt"

	"task-manager/backend/internal/models"
)

// ErrTaskNotFound はタスクが見つからない場合のエラーです。
var ErrTaskNotFound = errors.New("task not found")

// ErrInvalidTaskID はIDがストアの形式に合わない場合のエラーです。NotFound として扱います。
var ErrInvalidTaskID = fmt.Errorf("invalid task id: %w", ErrTaskNotFound)

// TaskRepository はタスクの保存先を抽象化します。
// 永続ストアとインメモリのフォールバックが同じインターフェースを実装します。
type TaskRepository interface {
	// Name はログ用の保存先名を返します。
	Name() string
	// ValidID は id がこの保存先で採番される形式かどうかを返します。
	ValidID(id string) bool
	// Ping は保存先が利用可能かを確認します。
	Ping(ctx context.Context) error
	// Create は ID を採番して保存し、保存後のタスクを返します。CreatedAt は呼び出し側が設定します。
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	// FindAll は CreatedAt の降順で全タスクを返します。
	FindAll(ctx context.Context) ([]*models.Task, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	// Update はパッチで指定されたフィールドだけを更新し、更新後のタスクを返します。
	Update(ctx context.Context, id string, patch *models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}
