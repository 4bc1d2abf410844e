package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

const headerIdempotencyKey = "Idempotency-Key"

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create handles POST /tasks.
//
// @Summary      Create a task
// @Description  Creates a task assigned to a user and broadcasts taskCreated. Replaying an Idempotency-Key returns the original task with 200.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      createTaskRequest  true   "Task details"
// @Success      201              {object}  domain.TaskView
// @Success      200              {object}  domain.TaskView
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.CreateTask(c.Request().Context(), actor, ports.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate.Time,
		Priority:       req.Priority,
		AssigneeID:     req.AssignedTo,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey)),
	})
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		metrics.IdempotentReplaysTotal.Inc()
		return c.JSON(http.StatusOK, result.Task)
	}
	metrics.TasksCreatedTotal.WithLabelValues(string(result.Task.Priority)).Inc()
	return c.JSON(http.StatusCreated, result.Task)
}

// List handles GET /tasks.
//
// @Summary      List all tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Page size (default 10, max 100)"
// @Param        priority  query     string  false  "Filter by priority"  Enums(low, medium, high)
// @Param        status    query     string  false  "Filter by status"    Enums(pending, completed)
// @Success      200       {object}  taskListResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	var q listTasksQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.ListTasks(c.Request().Context(), ports.ListTasksInput{
		Priority: q.Priority,
		Status:   q.Status,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(page))
}

// ListMine handles GET /tasks/my-tasks.
//
// @Summary      List the caller's tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Page size (default 10, max 100)"
// @Success      200    {object}  taskListResponse
// @Failure      401    {object}  errorResponse
// @Router       /tasks/my-tasks [get]
func (h *TaskHandler) ListMine(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var q pageQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	page, err := h.service.ListMyTasks(c.Request().Context(), actor, q.Page, q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(page))
}

// Get handles GET /tasks/:id.
//
// @Summary      Get a task
// @Description  Admins may read any task; users only tasks assigned to them.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  domain.TaskView
// @Failure      404  {object}  errorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	task, err := h.service.GetTask(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Update handles PUT /tasks/:id.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task id"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  domain.TaskView
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.service.UpdateTask(c.Request().Context(), c.Param("id"), ports.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.ptr(),
		Priority:    req.Priority,
		AssigneeID:  req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateStatus handles PATCH /tasks/:id/status.
//
// @Summary      Toggle a task's status
// @Description  Users may only update tasks assigned to them; other tasks answer 404.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Task id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.TaskView
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.service.UpdateStatus(c.Request().Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /tasks/:id.
//
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}
