package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
)

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create handles POST /api/tasks. Only the project owner or an admin may add tasks.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTaskRequest  true  "Task"
// @Success      201   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	actor, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		Priority:    domain.TaskPriority(req.Priority),
	}
	if req.DueDate != "" {
		// Format already checked by the datetime validator.
		d, _ := time.Parse(dueDateLayout, req.DueDate)
		in.DueDate = &d
	}

	t, err := h.service.Create(c.Request().Context(), actor, req.ProjectID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTaskResponse(t))
}

// Get handles GET /api/tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  taskResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	t, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(t))
}

// ListByProject handles GET /api/tasks/project/:projectId.
//
// @Summary      List the tasks of a project
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string  true  "Project ID"
// @Success      200        {array}   taskResponse
// @Failure      404        {object}  errorResponse
// @Router       /api/tasks/project/{projectId} [get]
func (h *TaskHandler) ListByProject(c echo.Context) error {
	ts, err := h.service.ListByProject(c.Request().Context(), c.Param("projectId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponses(ts))
}

// ListByProjectAndStatus handles GET /api/tasks/project/:projectId/status/:status.
//
// @Summary      List the tasks of a project in one status
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      string  true  "Project ID"
// @Param        status     path      string  true  "Task status"  Enums(TODO, IN_PROGRESS, DONE)
// @Success      200        {array}   taskResponse
// @Failure      400        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Router       /api/tasks/project/{projectId}/status/{status} [get]
func (h *TaskHandler) ListByProjectAndStatus(c echo.Context) error {
	status := domain.TaskStatus(strings.ToUpper(c.Param("status")))
	ts, err := h.service.ListByProjectAndStatus(c.Request().Context(), c.Param("projectId"), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponses(ts))
}

// Update handles PATCH /api/tasks/:id. Project owner or admin only.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task ID"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	actor, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req updateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		st := domain.TaskStatus(*req.Status)
		in.Status = &st
	}
	if req.Priority != nil {
		pr := domain.TaskPriority(*req.Priority)
		in.Priority = &pr
	}
	if req.DueDate != nil {
		d, _ := time.Parse(dueDateLayout, *req.DueDate)
		in.DueDate = &d
	}

	t, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(t))
}

// Delete handles DELETE /api/tasks/:id. Project owner or admin only.
//
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	actor, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
