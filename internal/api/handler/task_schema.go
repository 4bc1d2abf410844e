package handler

import "github.com/taskhub/task-tracker/internal/core/domain"

type createTaskRequest struct {
	Title       string   `json:"title"       validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	DueDate     flexTime `json:"dueDate"`
	Priority    string   `json:"priority"    validate:"omitempty,oneof=low medium high"`
	AssignedTo  string   `json:"assignedTo"  validate:"required"`
}

// updateTaskRequest is a partial update; absent fields are left untouched.
type updateTaskRequest struct {
	Title       *string   `json:"title"       validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	DueDate     *flexTime `json:"dueDate"`
	Priority    *string   `json:"priority"    validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string   `json:"assignedTo"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed"`
}

type listTasksQuery struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Priority string `query:"priority"`
	Status   string `query:"status"`
}

// taskListResponse names the generic envelope for the API docs.
type taskListResponse = listResponse[domain.TaskView]
