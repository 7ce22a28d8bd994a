// Package modelsはTaskを定義します。
package models

import (
	"time"
)

// Priority はタスクの優先度です。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は既知の優先度かどうかを返します。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task はタスクのレコードです。ストアのスキーマもこの形に一対一で対応します。
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	DueDate     time.Time `json:"dueDate"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"` // 作成後は変更しない
}

// TaskCreateRequest は作成リクエストのボディです。
type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string `json:"dueDate" validate:"required"`
	Completed   *bool  `json:"completed"`
}

// TaskUpdateRequest は部分更新リクエストのボディです。nil のフィールドは変更しません。
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

// TaskPatch はリポジトリに渡す検証済みの部分更新です。
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	DueDate     *time.Time
	Completed   *bool
}

// Empty は変更するフィールドが一つもない場合に true を返します。
func (p *TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil && p.Completed == nil
}

// Apply はパッチの指定フィールドだけを t に反映します。ID と CreatedAt は触りません。
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
