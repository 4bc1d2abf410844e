package domain

import "time"

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskStatus represents the completion state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Task is the stored aggregate. User references are kept as ids; see TaskView
// for the expanded form handed to clients.
type Task struct {
	ID          string
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
	Status      TaskStatus
	AssigneeID  string
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRef is a user reference expanded to the fields clients display.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TaskView is a task with assignee and creator expanded. It is the body of
// every task response and of taskCreated/taskUpdated events.
type TaskView struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	AssignedTo  *UserRef   `json:"assignedTo"`
	CreatedBy   *UserRef   `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AssigneeID returns the id of the assigned user, or "" when the reference
// could not be expanded.
func (v TaskView) AssigneeID() string {
	if v.AssignedTo == nil {
		return ""
	}
	return v.AssignedTo.ID
}
