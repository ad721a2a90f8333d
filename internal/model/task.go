package model

import "time"

// Task is one user-owned to-do item.
//
// UpdatedAt is only set by the remote store; local-only records omit it.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type TaskCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Completed == nil
}

// Apply returns a copy of t with the set fields of u applied.
func (u TaskUpdate) Apply(t Task) Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}

// Clone returns a deep copy (UpdatedAt is a pointer).
func (t Task) Clone() Task {
	if t.UpdatedAt != nil {
		ts := *t.UpdatedAt
		t.UpdatedAt = &ts
	}
	return t
}

func StrPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }
