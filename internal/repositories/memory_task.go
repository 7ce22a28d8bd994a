package repositories

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"task-manager/backend/internal/models"
)

// MemoryIDPrefix はインメモリで採番したIDの接頭辞です。ストアのIDと重ならないようにします。
const MemoryIDPrefix = "mem-"

// InMemoryTaskRepository はストアに接続できない間だけ使うプロセス内のタスク一覧です。
// 再起動で消えます。永続ストアとは同期しません。
type InMemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  []*models.Task // 作成順
	nextID int64
}

// NewInMemoryTaskRepository は空のInMemoryTaskRepositoryを作成します。
func NewInMemoryTaskRepository() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{}
}

func (r *InMemoryTaskRepository) Name() string { return "memory" }

func (r *InMemoryTaskRepository) ValidID(id string) bool { return validateMemoryID(id) == nil }

// Ping は常に成功します。
func (r *InMemoryTaskRepository) Ping(ctx context.Context) error { return nil }

// Create はカウンターでIDを採番してタスクを追加します。
func (r *InMemoryTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := *t
	stored.ID = MemoryIDPrefix + strconv.FormatInt(r.nextID, 10)
	r.tasks = append(r.tasks, &stored)

	created := stored
	return &created, nil
}

// FindAll は CreatedAt の降順 (同時刻は後に作成した順) でコピーを返します。
func (r *InMemoryTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(r.tasks))
	for i := len(r.tasks) - 1; i >= 0; i-- {
		t := *r.tasks[i]
		tasks = append(tasks, &t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *InMemoryTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if err := validateMemoryID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrTaskNotFound
	}
	t := *r.tasks[i]
	return &t, nil
}

func (r *InMemoryTaskRepository) Update(ctx context.Context, id string, patch *models.TaskPatch) (*models.Task, error) {
	if err := validateMemoryID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrTaskNotFound
	}
	patch.Apply(r.tasks[i])
	t := *r.tasks[i]
	return &t, nil
}

func (r *InMemoryTaskRepository) Delete(ctx context.Context, id string) error {
	if err := validateMemoryID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return nil
}

// Len は保持しているタスク数を返します。
func (r *InMemoryTaskRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

func (r *InMemoryTaskRepository) indexOf(id string) int {
	for i, t := range r.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// validateMemoryID は "mem-<正の整数>" 以外のIDを ErrInvalidTaskID にします。
func validateMemoryID(id string) error {
	n, ok := strings.CutPrefix(id, MemoryIDPrefix)
	if !ok {
		return ErrInvalidTaskID
	}
	return validateCounterID(n)
}

// validateCounterID は正の整数以外を ErrInvalidTaskID にします。
func validateCounterID(id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return ErrInvalidTaskID
	}
	return nil
}
