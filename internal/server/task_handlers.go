package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskwiz/taskwiz/internal/models"
	"github.com/taskwiz/taskwiz/internal/tasks"
)

// CreateTaskRequest represents a create-task request
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateTaskRequest is a partial update; absent fields are unchanged
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
}

// ListTasksQuery holds the pagination query parameters
type ListTasksQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

// TaskResponse is the wire representation of a task
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPageResponse is one page of the task listing
type TaskPageResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func toTaskResponse(t *models.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// respondWithTaskError maps task service errors to HTTP responses
func (s *Server) respondWithTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		respondWithError(c, s.logger, http.StatusNotFound, CodeTaskNotFound, "Task not found", err)
	case errors.Is(err, tasks.ErrInvalid):
		message := strings.TrimPrefix(err.Error(), tasks.ErrInvalid.Error()+": ")
		respondWithError(c, s.logger, http.StatusUnprocessableEntity, CodeValidation, message, err)
	default:
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
	}
}

// currentUserID is only called behind JWTAuthMiddleware
func currentUserID(c *gin.Context) string {
	sessionData, _ := GetSessionData(c)
	if sessionData == nil {
		return ""
	}
	return sessionData.UserID
}

// @Summary List tasks
// @Description List the caller's tasks, newest first
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Items per page (1-100)"
// @Success 200 {object} TaskPageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tasks [get]
func (s *Server) listTasks(c *gin.Context) {
	var query ListTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithBindError(c, s.logger, err)
		return
	}

	page, err := s.tasksService.List(c.Request.Context(), tasks.ListParams{
		UserID:   currentUserID(c),
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		s.respondWithTaskError(c, err)
		return
	}

	items := make([]TaskResponse, len(page.Items))
	for i := range page.Items {
		items[i] = toTaskResponse(&page.Items[i])
	}

	c.JSON(http.StatusOK, TaskPageResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// @Summary Get task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [get]
func (s *Server) getTask(c *gin.Context) {
	task, err := s.tasksService.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.respondWithTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// @Summary Create task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} TaskResponse
// @Failure 422 {object} ErrorResponse
// @Router /tasks [post]
func (s *Server) createTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, s.logger, err)
		return
	}

	task, err := s.tasksService.Create(c.Request.Context(), tasks.CreateTaskParams{
		UserID:      currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.respondWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// @Summary Update task
// @Description Partial update; PUT is accepted with the same semantics as PATCH
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tasks/{id} [patch]
func (s *Server) updateTask(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, s.logger, err)
		return
	}

	task, err := s.tasksService.Update(c.Request.Context(), currentUserID(c), c.Param("id"), tasks.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		s.respondWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// @Summary Delete task
// @Tags tasks
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [delete]
func (s *Server) deleteTask(c *gin.Context) {
	if err := s.tasksService.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		s.respondWithTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
