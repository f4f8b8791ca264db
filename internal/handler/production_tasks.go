package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/salgadospro/api/internal/database"
)

// ProductionTaskStore defines the database methods needed by task handlers.
type ProductionTaskStore interface {
	CreateProductionTask(ctx context.Context, arg database.CreateProductionTaskParams) (database.ProductionTask, error)
	ListProductionTasks(ctx context.Context) ([]database.ProductionTask, error)
	SetProductionTaskDone(ctx context.Context, arg database.SetProductionTaskDoneParams) (database.ProductionTask, error)
	DeleteProductionTask(ctx context.Context, id uuid.UUID) error
}

// ProductionTaskHandler handles the kitchen task board.
type ProductionTaskHandler struct {
	store ProductionTaskStore
}

// NewProductionTaskHandler creates a new ProductionTaskHandler.
func NewProductionTaskHandler(store ProductionTaskStore) *ProductionTaskHandler {
	return &ProductionTaskHandler{store: store}
}

// RegisterRoutes registers task endpoints on the given Chi router.
func (h *ProductionTaskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Patch("/{id}/done", h.SetDone)
	r.Delete("/{id}", h.Delete)
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
}

type setDoneRequest struct {
	Done bool `json:"done"`
}

type taskResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    string    `json:"category"`
	DueDate     *string   `json:"due_date"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create handles POST /production-tasks.
func (h *ProductionTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	category := database.TaskCategory(req.Category)
	if !isValidTaskCategory(category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category must be one of PREP, ASSEMBLY, BAKING, PACKAGING, DELIVERY"})
		return
	}

	dueDate := pgtype.Date{}
	if req.DueDate != "" {
		t, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_date format, use YYYY-MM-DD"})
			return
		}
		dueDate = pgtype.Date{Time: t, Valid: true}
	}

	task, err := h.store.CreateProductionTask(r.Context(), database.CreateProductionTaskParams{
		Title:       req.Title,
		Description: optionalText(req.Description),
		Category:    category,
		DueDate:     dueDate,
	})
	if err != nil {
		log.Printf("ERROR: create production task: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// List handles GET /production-tasks.
func (h *ProductionTaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListProductionTasks(r.Context())
	if err != nil {
		log.Printf("ERROR: list production tasks: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetDone handles PATCH /production-tasks/{id}/done.
func (h *ProductionTaskHandler) SetDone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task ID"})
		return
	}

	var req setDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	task, err := h.store.SetProductionTaskDone(r.Context(), database.SetProductionTaskDoneParams{
		ID:   id,
		Done: req.Done,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
			return
		}
		log.Printf("ERROR: set task done: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// Delete handles DELETE /production-tasks/{id}.
func (h *ProductionTaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task ID"})
		return
	}

	if err := h.store.DeleteProductionTask(r.Context(), id); err != nil {
		log.Printf("ERROR: delete production task: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidTaskCategory(c database.TaskCategory) bool {
	switch c {
	case database.TaskCategoryPrep, database.TaskCategoryAssembly,
		database.TaskCategoryBaking, database.TaskCategoryPackaging,
		database.TaskCategoryDelivery:
		return true
	}
	return false
}

func toTaskResponse(t database.ProductionTask) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: textPtr(t.Description),
		Category:    string(t.Category),
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
	}
	if t.DueDate.Valid {
		s := t.DueDate.Time.Format("2006-01-02")
		resp.DueDate = &s
	}
	return resp
}
