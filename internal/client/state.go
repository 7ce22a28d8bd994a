// Package client はタスクAPIのクライアントと、取得したデータを保持する状態コンテナを提供します。
package client

import (
	"task-manager/backend/internal/models"
)

// ErrorInfo は直近に失敗したAPI呼び出しの情報です。
type ErrorInfo struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// State はクライアント側の状態です。
type State struct {
	Tasks   []models.Task `json:"tasks"`
	Task    *models.Task  `json:"task"`
	Loading bool          `json:"loading"`
	Error   *ErrorInfo    `json:"error"`
}

// InitialState は空の状態を返します。
func InitialState() State {
	return State{Tasks: []models.Task{}}
}

// Event は状態を遷移させるイベントです。このパッケージの型だけが実装できます。
type Event interface {
	apply(State) State
}

// Loading はAPI呼び出しの開始を表します。
type Loading struct{}

// TasksLoaded は一覧の取得完了を表します。
type TasksLoaded struct{ Tasks []models.Task }

// TaskLoaded は詳細の取得完了を表します。
type TaskLoaded struct{ Task models.Task }

// TaskCreated は作成完了を表します。
type TaskCreated struct{ Task models.Task }

// TaskUpdated は更新完了を表します。
type TaskUpdated struct{ Task models.Task }

// TaskDeleted は削除完了を表します。
type TaskDeleted struct{ ID string }

// Failed はAPI呼び出しの失敗を表します。
type Failed struct {
	Message    string
	StatusCode int
}

// Reduce は前の状態とイベントから次の状態を返します。前の状態は変更しません。
func Reduce(s State, e Event) State {
	if e == nil {
		return s
	}
	return e.apply(s)
}

func (Loading) apply(s State) State {
	s.Loading = true
	return s
}

func (e TasksLoaded) apply(s State) State {
	s.Tasks = append([]models.Task{}, e.Tasks...)
	s.Loading = false
	return s
}

func (e TaskLoaded) apply(s State) State {
	t := e.Task
	s.Task = &t
	s.Loading = false
	return s
}

func (e TaskCreated) apply(s State) State {
	tasks := make([]models.Task, 0, len(s.Tasks)+1)
	tasks = append(tasks, e.Task)
	s.Tasks = append(tasks, s.Tasks...)
	s.Loading = false
	return s
}

func (e TaskUpdated) apply(s State) State {
	tasks := make([]models.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.ID == e.Task.ID {
			t = e.Task
		}
		tasks[i] = t
	}
	s.Tasks = tasks
	s.Loading = false
	return s
}

func (e TaskDeleted) apply(s State) State {
	tasks := make([]models.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID != e.ID {
			tasks = append(tasks, t)
		}
	}
	s.Tasks = tasks
	s.Loading = false
	return s
}

func (e Failed) apply(s State) State {
	s.Error = &ErrorInfo{Message: e.Message, StatusCode: e.StatusCode}
	s.Loading = false
	return s
}
