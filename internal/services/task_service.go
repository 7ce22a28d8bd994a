package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
)

// ErrServer は永続ストアとフォールバックの両方が失敗した場合のエラーです。
var ErrServer = errors.New("server error")

// DefaultHealthTimeout はストアのヘルスチェックのデフォルトのタイムアウトです。
const DefaultHealthTimeout = 2 * time.Second

// TaskService はタスクのCRUDと、ストア障害時のインメモリへの切り替えを扱います。
type TaskService struct {
	primary       repositories.TaskRepository // nil の場合は常にフォールバック
	fallback      repositories.TaskRepository
	forceFallback bool
	healthTimeout time.Duration
	now           func() time.Time
}

// NewTaskService は新しいTaskServiceを作成します。
// forceFallback が true の場合は primary に一切アクセスしません。
func NewTaskService(primary, fallback repositories.TaskRepository, forceFallback bool) *TaskService {
	return &TaskService{
		primary:       primary,
		fallback:      fallback,
		forceFallback: forceFallback,
		healthTimeout: DefaultHealthTimeout,
		now:           time.Now,
	}
}

// SetHealthTimeout はヘルスチェックのタイムアウトを変更します。
func (s *TaskService) SetHealthTimeout(d time.Duration) {
	if d > 0 {
		s.healthTimeout = d
	}
}

// ActiveSource は現在リクエストを処理する保存先の名前を返します。
func (s *TaskService) ActiveSource(ctx context.Context) string {
	return s.repository(ctx).Name()
}

// GetTasks は全タスクを作成日時の降順で取得します。
func (s *TaskService) GetTasks(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.run(ctx, "list", func(repo repositories.TaskRepository) error {
		var err error
		tasks, err = repo.FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// GetTaskByID は指定IDのタスクを取得します。
func (s *TaskService) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, "get", func(repo repositories.TaskRepository) error {
		var err error
		task, err = repo.FindByID(ctx, id)
		return err
	})
	return task, err
}

// CreateTask は入力を検証してからタスクを作成します。
func (s *TaskService) CreateTask(ctx context.Context, req *models.TaskCreateRequest) (*models.Task, error) {
	task, err := newTaskFromRequest(req)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = createdAt(s.now())

	var created *models.Task
	err = s.run(ctx, "create", func(repo repositories.TaskRepository) error {
		var err error
		created, err = repo.Create(ctx, task)
		return err
	})
	return created, err
}

// UpdateTask は指定されたフィールドだけを更新します。
// IDが保存先の形式に合わない場合は、入力の検証より先に NotFound を返します。
func (s *TaskService) UpdateTask(ctx context.Context, id string, req *models.TaskUpdateRequest) (*models.Task, error) {
	patch, patchErr := newPatchFromRequest(req)

	var updated *models.Task
	err := s.run(ctx, "update", func(repo repositories.TaskRepository) error {
		if !repo.ValidID(id) {
			return repositories.ErrInvalidTaskID
		}
		if patchErr != nil {
			return patchErr
		}
		var err error
		updated, err = repo.Update(ctx, id, patch)
		return err
	})
	return updated, err
}

// DeleteTask はタスクを削除します。
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	return s.run(ctx, "delete", func(repo repositories.TaskRepository) error {
		return repo.Delete(ctx, id)
	})
}

// repository はリクエストごとにストアの状態を確認し、使う保存先を返します。
func (s *TaskService) repository(ctx context.Context) repositories.TaskRepository {
	if s.forceFallback || s.primary == nil {
		return s.fallback
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()
	if err := s.primary.Ping(pingCtx); err != nil {
		log.Printf("[TaskService]%s %s store unreachable, serving from %s: %v",
			requestTag(ctx), s.primary.Name(), s.fallback.Name(), err)
		return s.fallback
	}
	return s.primary
}

// run は op を有効な保存先で実行します。ストアでの失敗はフォールバックでやり直し、
// NotFound (不正なIDを含む) と入力エラーはそのまま返します。
func (s *TaskService) run(ctx context.Context, op string, fn func(repositories.TaskRepository) error) error {
	repo := s.repository(ctx)
	err := fn(repo)
	if err == nil || isCallerError(err) {
		return err
	}
	if repo == s.fallback {
		log.Printf("[TaskService]%s %s failed on %s: %v", requestTag(ctx), op, repo.Name(), err)
		return fmt.Errorf("%w: %v", ErrServer, err)
	}

	log.Printf("[TaskService]%s %s failed on %s store, retrying on %s: %v",
		requestTag(ctx), op, repo.Name(), s.fallback.Name(), err)
	err = fn(s.fallback)
	if err == nil || isCallerError(err) {
		return err
	}
	log.Printf("[TaskService]%s %s failed on %s: %v", requestTag(ctx), op, s.fallback.Name(), err)
	return fmt.Errorf("%w: %v", ErrServer, err)
}

func isCallerError(err error) bool {
	if _, ok := IsValidationError(err); ok {
		return true
	}
	return errors.Is(err, repositories.ErrTaskNotFound)
}

// createdAt はミリ秒に切り上げます。どの保存先でも同じ値になり、リクエスト時刻より前にはなりません。
func createdAt(now time.Time) time.Time {
	now = now.UTC()
	c := now.Truncate(time.Millisecond)
	if c.Before(now) {
		c = c.Add(time.Millisecond)
	}
	return c
}
