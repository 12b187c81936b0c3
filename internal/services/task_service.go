package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrNameRequired    = errors.New("name is required")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleEmpty      = errors.New("title cannot be empty")
	ErrInvalidStatus   = errors.New("invalid task status")
)

// TaskService handles client, project and task business logic. Callers have
// already authorized the request against the owning organization.
type TaskService struct {
	repos *repository.Repositories
}

// NewTaskService creates a new TaskService
func NewTaskService(repos *repository.Repositories) *TaskService {
	return &TaskService{repos: repos}
}

// CreateClientInput represents input for creating a client
type CreateClientInput struct {
	OrganizationID uint64
	Name           string
	Email          string
}

func (s *TaskService) CreateClient(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	client := &models.Client{
		OrganizationID: input.OrganizationID,
		Name:           name,
		Email:          utils.NormalizeEmail(input.Email),
	}
	if err := s.repos.Clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *TaskService) ListClients(ctx context.Context, organizationID uint64) ([]models.Client, error) {
	clients, err := s.repos.Clients.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	ClientID    uint64
	Name        string
	Description string
}

func (s *TaskService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.repos.Clients.FindByID(ctx, input.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	project := &models.Project{
		ClientID:    input.ClientID,
		Name:        name,
		Description: input.Description,
	}
	if err := s.repos.Projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

func (s *TaskService) ListProjects(ctx context.Context, clientID uint64) ([]models.Project, error) {
	projects, err := s.repos.Projects.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID uint64
	Status    *models.TaskStatus
	Page      utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	CreatorID   uint64
	Title       string
	Description string
	Status      models.TaskStatus
	DueDate     *time.Time
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasks returns a project's tasks, earliest due date first
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	tasks, total, err := s.repos.Tasks.List(ctx, repository.TaskFilter{
		ProjectID: input.ProjectID,
		Status:    input.Status,
		Page:      input.Page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task with its creator
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.repos.Tasks.FindByID(ctx, taskID, "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CreateTask creates a new task with validation
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if _, err := s.repos.Projects.FindByID(ctx, input.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
		CreatorID:   input.CreatorID,
	}

	if err := s.repos.Tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.repos.Tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// DeleteTask soft deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64) error {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return err
	}

	if err := s.repos.Tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
