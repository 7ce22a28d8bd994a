package testutil

import (
	"context"
	"errors"
	"sync"

	"task-manager/backend/internal/models"
	"task-manager/backend/internal/repositories"
)

// ErrStoreDown はストアに到達できない状態を表すテスト用のエラーです。
var ErrStoreDown = errors.New("store unreachable")

// FlakyTaskRepository は任意のリポジトリを包み、停止状態やエラーを注入できる永続ストアの代役です。
type FlakyTaskRepository struct {
	mu    sync.RWMutex
	inner repositories.TaskRepository
	down  bool

	// 操作ごとのエラー注入 (Ping は成功したまま操作だけ失敗させる)
	CreateErr   error
	FindAllErr  error
	FindByIDErr error
	UpdateErr   error
	DeleteErr   error

	// 実際に inner まで届いた呼び出し回数
	Calls int
}

// NewFlakyTaskRepository は inner を包んだ FlakyTaskRepository を作成します。
func NewFlakyTaskRepository(inner repositories.TaskRepository) *FlakyTaskRepository {
	return &FlakyTaskRepository{inner: inner}
}

// SetDown はストアの停止状態を切り替えます。
func (f *FlakyTaskRepository) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *FlakyTaskRepository) Name() string { return "flaky-" + f.inner.Name() }

func (f *FlakyTaskRepository) ValidID(id string) bool { return f.inner.ValidID(id) }

func (f *FlakyTaskRepository) Ping(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.down {
		return ErrStoreDown
	}
	return f.inner.Ping(ctx)
}

func (f *FlakyTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	if err := f.before(f.CreateErr); err != nil {
		return nil, err
	}
	return f.inner.Create(ctx, t)
}

func (f *FlakyTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	if err := f.before(f.FindAllErr); err != nil {
		return nil, err
	}
	return f.inner.FindAll(ctx)
}

func (f *FlakyTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if err := f.before(f.forID(id, f.FindByIDErr)); err != nil {
		return nil, err
	}
	return f.inner.FindByID(ctx, id)
}

func (f *FlakyTaskRepository) Update(ctx context.Context, id string, patch *models.TaskPatch) (*models.Task, error) {
	if err := f.before(f.forID(id, f.UpdateErr)); err != nil {
		return nil, err
	}
	return f.inner.Update(ctx, id, patch)
}

func (f *FlakyTaskRepository) Delete(ctx context.Context, id string) error {
	if err := f.before(f.forID(id, f.DeleteErr)); err != nil {
		return err
	}
	return f.inner.Delete(ctx, id)
}

func (f *FlakyTaskRepository) before(injected error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return ErrStoreDown
	}
	if injected != nil {
		return injected
	}
	f.Calls++
	return nil
}

// forID は形式の合わないIDには注入したエラーを返しません。実際のストアと同じく I/O の前に弾きます。
func (f *FlakyTaskRepository) forID(id string, injected error) error {
	if !f.inner.ValidID(id) {
		return nil
	}
	return injected
}
