package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"

	"task-manager/backend/internal/models"
)

// SQLの方言 (database/sql のドライバー名と同じ)
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SQLTaskRepository はSQLデータベースにタスクを保存します。
type SQLTaskRepository struct {
	DB          *sql.DB
	dialect     string
	schemaReady atomic.Bool
}

// NewSQLTaskRepository は新しいSQLTaskRepositoryインスタンスを作成します。
func NewSQLTaskRepository(db *sql.DB, dialect string) (*SQLTaskRepository, error) {
	switch dialect {
	case DialectMySQL, DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %q", dialect)
	}
	return &SQLTaskRepository{DB: db, dialect: dialect}, nil
}

func (r *SQLTaskRepository) Name() string { return r.dialect }

func (r *SQLTaskRepository) ValidID(id string) bool {
	_, err := parseSQLID(id)
	return err == nil
}

// Ping は接続を確認し、初回成功時にテーブルを用意します。
func (r *SQLTaskRepository) Ping(ctx context.Context) error {
	if err := r.DB.PingContext(ctx); err != nil {
		return err
	}
	if r.schemaReady.Load() {
		return nil
	}
	return r.EnsureSchema(ctx)
}

// EnsureSchema は tasks テーブルが無ければ作成します。
func (r *SQLTaskRepository) EnsureSchema(ctx context.Context) error {
	var stmts []string
	switch r.dialect {
	case DialectMySQL:
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			due_date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(3) NOT NULL,
			INDEX idx_tasks_created_at (created_at)
		)`}
	case DialectPostgres:
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			due_date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at)`,
		}
	case DialectSQLite:
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'medium',
			due_date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at)`,
		}
	}
	for _, stmt := range stmts {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not create tasks table: %w", err)
		}
	}
	r.schemaReady.Store(true)
	return nil
}

// Create は新しいタスクをデータベースに挿入します。
func (r *SQLTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	query := "INSERT INTO tasks (title, description, priority, due_date, completed, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []any{t.Title, t.Description, string(t.Priority), t.DueDate.Format(dateLayout), t.Completed, t.CreatedAt}

	var id int64
	if r.dialect == DialectPostgres {
		// lib/pq は LastInsertId に対応していない
		if err := r.DB.QueryRowContext(ctx, r.rebind(query)+" RETURNING id", args...).Scan(&id); err != nil {
			log.Printf("Failed to insert task: %v", err)
			return nil, fmt.Errorf("could not insert task: %w", err)
		}
	} else {
		result, err := r.DB.ExecContext(ctx, query, args...)
		if err != nil {
			log.Printf("Failed to insert task: %v", err)
			return nil, fmt.Errorf("could not insert task: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("could not get last insert ID: %w", err)
		}
	}

	created := *t
	created.ID = strconv.FormatInt(id, 10)
	return &created, nil
}

// due_date はタイムゾーンの変換を避けるため文字列で渡す
const dateLayout = "2006-01-02"

const selectTaskColumns = "SELECT id, title, description, priority, due_date, completed, created_at FROM tasks"

// FindAll はすべてのタスクを作成日時の降順で取得します。
func (r *SQLTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.DB.QueryContext(ctx, selectTaskColumns+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		log.Printf("Failed to query tasks: %v", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			log.Printf("Failed to scan task: %v", err)
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// FindByID は指定されたIDのタスクを取得します。
func (r *SQLTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	n, err := parseSQLID(id)
	if err != nil {
		return nil, err
	}

	t, err := scanTask(r.DB.QueryRowContext(ctx, r.rebind(selectTaskColumns+" WHERE id = ?"), n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to query task by ID: %v", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return t, nil
}

// Update は指定されたIDのタスクを部分更新します。
func (r *SQLTaskRepository) Update(ctx context.Context, id string, patch *models.TaskPatch) (*models.Task, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return existing, nil
	}
	patch.Apply(existing)

	// MySQL は値が変わらない行を affected に数えないため RowsAffected は見ない
	query := "UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, completed = ? WHERE id = ?"
	n, _ := parseSQLID(id)
	_, err = r.DB.ExecContext(ctx, r.rebind(query),
		existing.Title, existing.Description, string(existing.Priority), existing.DueDate.Format(dateLayout), existing.Completed, n)
	if err != nil {
		log.Printf("Failed to update task: %v", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	return existing, nil
}

// Delete は指定されたIDのタスクを削除します。
func (r *SQLTaskRepository) Delete(ctx context.Context, id string) error {
	n, err := parseSQLID(id)
	if err != nil {
		return err
	}

	result, err := r.DB.ExecContext(ctx, r.rebind("DELETE FROM tasks WHERE id = ?"), n)
	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		return fmt.Errorf("could not delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// rebind は Postgres 用に ? を $1, $2 ... に置き換えます。
func (r *SQLTaskRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t        models.Task
		id       int64
		priority string
	)
	if err := row.Scan(&id, &t.Title, &t.Description, &priority, &t.DueDate, &t.Completed, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Priority = models.Priority(priority)
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func parseSQLID(id string) (int64, error) {
	if err := validateCounterID(id); err != nil {
		return 0, err
	}
	return strconv.ParseInt(id, 10, 64)
}
