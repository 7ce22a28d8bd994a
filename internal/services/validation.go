// Package services はタスクのビジネスロジックを扱います。
package services

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"task-manager/backend/internal/models"
)

// FieldError は入力エラーのフィールドとメッセージの組です。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError は必須項目の不足や不正な値を表します。
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidationError は err が ValidationError かどうかを返し、そうであれば取り出します。
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// エラーのフィールド名を JSON の名前にする
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"title.required":   "Title is required",
	"dueDate.required": "Due date is required",
	"priority.oneof":   "Priority must be one of low, medium, high",
}

func fieldMessage(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	return field + " is invalid"
}

// toValidationError は validator のエラーを FieldError の一覧に変換します。
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Errors = append(ve.Errors, FieldError{Field: fe.Field(), Message: fieldMessage(fe.Field(), fe.Tag())})
	}
	return ve
}

// dateLayouts は dueDate として受け付ける形式です。
var dateLayouts = []string{"2006-01-02", time.RFC3339Nano}

// ParseDueDate は日付文字列を UTC の0時に正規化して返します。
func ParseDueDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// newTaskFromRequest は作成リクエストを検証し、デフォルト値を適用したタスクを返します。
func newTaskFromRequest(req *models.TaskCreateRequest) (*models.Task, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	due, ok := ParseDueDate(req.DueDate)
	if !ok {
		return nil, &ValidationError{Errors: []FieldError{{Field: "dueDate", Message: "Due date must be a valid date"}}}
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.PriorityMedium,
		DueDate:     due,
	}
	if req.Priority != "" {
		task.Priority = models.Priority(req.Priority)
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	return task, nil
}

// newPatchFromRequest は更新リクエストを検証してパッチに変換します。
// 指定されたフィールドは作成時と同じ規則で検証します。
func newPatchFromRequest(req *models.TaskUpdateRequest) (*models.TaskPatch, error) {
	ve := &ValidationError{}
	patch := &models.TaskPatch{
		Description: req.Description,
		Completed:   req.Completed,
	}

	if req.Title != nil {
		if err := validate.Var(*req.Title, "required"); err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: fieldMessage("title", "required")})
		}
		patch.Title = req.Title
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		if !p.Valid() {
			ve.Errors = append(ve.Errors, FieldError{Field: "priority", Message: fieldMessage("priority", "oneof")})
		}
		patch.Priority = &p
	}
	if req.DueDate != nil {
		if err := validate.Var(*req.DueDate, "required"); err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: "dueDate", Message: fieldMessage("dueDate", "required")})
		} else if due, ok := ParseDueDate(*req.DueDate); !ok {
			ve.Errors = append(ve.Errors, FieldError{Field: "dueDate", Message: "Due date must be a valid date"})
		} else {
			patch.DueDate = &due
		}
	}

	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return patch, nil
}
