package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskwiz/taskwiz/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxTitleLength  = 255
)

var (
	// ErrNotFound is returned for missing tasks and for tasks owned by another user.
	ErrNotFound = errors.New("task not found")
	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid task input")
)

type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "tasks_service").Logger(),
	}
}

type ListParams struct {
	UserID   string
	Page     int
	PageSize int
}

// Page is one slice of a user's tasks, newest first.
type Page struct {
	Items      []models.Task
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

type CreateTaskParams struct {
	UserID      string
	Title       string
	Description *string
}

// UpdateTaskParams carries a partial update. Nil fields are left as they are;
// a blank description clears it.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	IsCompleted *bool
}

func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.Page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrInvalid)
	}
	if params.PageSize == 0 {
		params.PageSize = DefaultPageSize
	}
	if params.PageSize < 1 || params.PageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalid, MaxPageSize)
	}

	owned := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Task{}).Where("user_id = ?", params.UserID)
	}

	var total int64
	if err := owned().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	items := []models.Task{}
	err := owned().
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.PageSize).
		Offset((params.Page - 1) * params.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	}, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

func (s *Service) Create(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	title, err := cleanTitle(params.Title)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		UserID:      params.UserID,
		Title:       title,
		Description: cleanDescription(params.Description),
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Debug().Str("task_id", task.ID).Str("user_id", task.UserID).Msg("Task created")
	return &task, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, params UpdateTaskParams) (*models.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if params.Title != nil {
		title, err := cleanTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if params.Description != nil {
		updates["description"] = cleanDescription(params.Description)
	}
	if params.IsCompleted != nil {
		updates["is_completed"] = *params.IsCompleted
	}
	if len(updates) == 0 {
		return task, nil
	}

	if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.Get(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug().Str("task_id", id).Str("user_id", userID).Msg("Task deleted")
	return nil
}

func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalid, MaxTitleLength)
	}
	return title, nil
}

func cleanDescription(raw *string) *string {
	if raw == nil {
		return nil
	}
	desc := strings.TrimSpace(*raw)
	if desc == "" {
		return nil
	}
	return &desc
}

func totalPages(total int64, pageSize int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
