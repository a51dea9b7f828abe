package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"examPrepAPI/internal/types/progress"
	"examPrepAPI/services"
)

// TaskHandler is the HTTP face of the command surface. The chat
// gateway authenticates users, maps slash commands onto these routes
// and owns all message formatting; responses here are plain data.
type TaskHandler struct {
	progressService  *services.ProgressService
	countdownService *services.CountdownService
}

func NewTaskHandler(progressService *services.ProgressService, countdownService *services.CountdownService) *TaskHandler {
	return &TaskHandler{
		progressService:  progressService,
		countdownService: countdownService,
	}
}

type AddTaskRequest struct {
	Name string `json:"name"`
	// Points is taken as supplied, sign included; communities use
	// negative values for penalty tasks.
	Points   int    `json:"points"`
	Category string `json:"category,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

type TaskIDRequest struct {
	TaskID string `json:"task_id"`
}

// AddTask handles POST /api/v1/task/add
func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := gatewayUserID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	var req AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.progressService.AddTask(ctx, userID, req.Name, req.Points, req.Category, req.Deadline)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

// CompleteTask handles POST /api/v1/task/done
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := gatewayUserID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	var req TaskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.progressService.CompleteTask(ctx, userID, req.TaskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			respondWithError(w, http.StatusNotFound, "Task not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// UndoTask handles POST /api/v1/task/undo
func (h *TaskHandler) UndoTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := gatewayUserID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	var req TaskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.progressService.UndoTask(ctx, userID, req.TaskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			respondWithError(w, http.StatusNotFound, "Task not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListTasks handles GET /api/v1/task/list
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := gatewayUserID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	tasks := []progress.Task{}
	for task := range h.progressService.ListActive(userID) {
		tasks = append(tasks, task)
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetStats handles GET /api/v1/stats
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := gatewayUserID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	respondWithJSON(w, http.StatusOK, h.progressService.Stats(userID))
}

// GetLeaderboard handles GET /api/v1/leaderboard
func (h *TaskHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	respondWithJSON(w, http.StatusOK, h.progressService.Leaderboard(limit))
}

// GetCountdown handles GET /api/v1/countdown
func (h *TaskHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.countdownService.Status())
}

// GetHelp handles GET /api/v1/help: the command catalog as data, so
// the gateway can render its own embed.
func (h *TaskHandler) GetHelp(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"commands": []map[string]string{
			{"command": "task add", "usage": `task add name:"Task name" points:50 category:Work deadline:2025-04-01`, "description": "Add a new task"},
			{"command": "task list", "usage": "task list", "description": "Show your active tasks"},
			{"command": "task done", "usage": "task done id:TASK_ID", "description": "Complete a task"},
			{"command": "task undo", "usage": "task undo id:TASK_ID", "description": "Undo a completed task"},
			{"command": "stats", "usage": "stats", "description": "View your points and streak"},
			{"command": "leaderboard", "usage": "leaderboard", "description": "See top users"},
			{"command": "countdown", "usage": "countdown", "description": "Days until the event"},
		},
	})
}

// gatewayUserID extracts the opaque user identity the chat gateway
// attaches to every command it forwards.
func gatewayUserID(r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	return userID, userID != ""
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
