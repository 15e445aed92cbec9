package handlers

import (
	"errors"
	"net/http"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// TasksHandler serves the project task CRUD plus the board and calendar
// move operations.
type TasksHandler struct {
	crm *crm.Service
}

func NewTasksHandler(crmService *crm.Service) *TasksHandler {
	return &TasksHandler{crm: crmService}
}

// GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	tasks, err := h.crm.ListTasks(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"tasks": tasks, "total": len(tasks)})
}

// POST /api/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req models.TaskCreateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	task, err := h.crm.CreateTask(user.ID, req)
	if err != nil { utils.WriteBadRequestResponse(w, err.Error()); return }
	utils.WriteCreatedResponse(w, task)
}

// PATCH /api/tasks/{id}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	taskID := chiRoute.URLParam(r, "id")
	var req models.TaskUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.UpdateTask(user.ID, taskID, req); err != nil {
		if errors.Is(err, crm.ErrNotFound) { utils.WriteNotFoundResponse(w, err.Error()); return }
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	task, err := h.crm.GetTask(user.ID, taskID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, task)
}

// POST /api/tasks/{id}/status
func (h *TasksHandler) Move(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	taskID := chiRoute.URLParam(r, "id")
	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.MoveTask(user.ID, taskID, req.Status); err != nil {
		if errors.Is(err, crm.ErrNotFound) { utils.WriteNotFoundResponse(w, err.Error()); return }
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": taskID, "status": req.Status})
}

// POST /api/tasks/{id}/reschedule
// Moves the task start to the given day, shifting the end to keep duration.
func (h *TasksHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	taskID := chiRoute.URLParam(r, "id")
	var req struct {
		StartDate string `json:"start_date"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.RescheduleTask(user.ID, taskID, req.StartDate); err != nil {
		if errors.Is(err, crm.ErrNotFound) { utils.WriteNotFoundResponse(w, err.Error()); return }
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	task, err := h.crm.GetTask(user.ID, taskID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, task)
}

// DELETE /api/tasks/{id}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	taskID := chiRoute.URLParam(r, "id")
	if err := h.crm.DeleteTask(user.ID, taskID); err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": taskID, "deleted": true})
}
