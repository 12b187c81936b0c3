package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/utils"
)

// TaskHandler serves the client, project and task hierarchy. Access checks
// happen in middleware before any handler runs.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateClient creates a client in an organization
func (h *TaskHandler) CreateClient(c *gin.Context) {
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	type CreateClientRequest struct {
		Name  string `json:"name" binding:"required,max=255"`
		Email string `json:"email" binding:"omitempty,email"`
	}

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.taskService.CreateClient(c.Request.Context(), services.CreateClientInput{
		OrganizationID: orgID,
		Name:           req.Name,
		Email:          req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToClientDTO(*client))
}

// ListClients returns the organization's clients
func (h *TaskHandler) ListClients(c *gin.Context) {
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	clients, err := h.taskService.ListClients(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.ClientDTO, len(clients))
	for i, client := range clients {
		items[i] = dto.ToClientDTO(client)
	}
	c.JSON(http.StatusOK, gin.H{"clients": items})
}

// CreateProject creates a project under a client
func (h *TaskHandler) CreateProject(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string `json:"name" binding:"required,max=255"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.taskService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		ClientID:    clientID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns a client's projects
func (h *TaskHandler) ListProjects(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	projects, err := h.taskService.ListProjects(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = dto.ToProjectDTO(project)
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

// ListTasks returns a project's tasks, optionally filtered by status
func (h *TaskHandler) ListTasks(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	input := services.ListTasksInput{
		ProjectID: projectID,
		Page:      utils.GetPaginationParams(c),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, input.Page, total))
}

// CreateTask creates a new task in a project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		DueDate     *time.Time        `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		ProjectID:   projectID,
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask updates only the fields present in the body. A null due_date
// clears it.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]json.RawMessage
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput
	if raw, ok := rawReq["title"]; ok {
		if err := json.Unmarshal(raw, &input.Title); err != nil {
			apierrors.BadRequest(c, "Invalid title")
			return
		}
	}
	if raw, ok := rawReq["description"]; ok {
		if err := json.Unmarshal(raw, &input.Description); err != nil {
			apierrors.BadRequest(c, "Invalid description")
			return
		}
	}
	if raw, ok := rawReq["status"]; ok {
		if err := json.Unmarshal(raw, &input.Status); err != nil {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
	}
	if raw, ok := rawReq["due_date"]; ok {
		if string(raw) == "null" {
			input.ClearDueDate = true
		} else if err := json.Unmarshal(raw, &input.DueDate); err != nil {
			apierrors.BadRequest(c, "Invalid due_date")
			return
		}
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}
