package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/duetrack/deadline-api/internal/metrics"
	"github.com/duetrack/deadline-api/internal/middleware"
	"github.com/duetrack/deadline-api/internal/models"
	"github.com/duetrack/deadline-api/internal/repo"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// DeadlineHandler serves the ownership-scoped deadline CRUD. Every operation
// takes the owner from the verified token in the request context; the body
// can never override it.
type DeadlineHandler struct {
	Repo *repo.DeadlineRepo

	// Now is the clock for derived fields. Nil means time.Now; tests pin it.
	Now func() time.Time
}

func (h *DeadlineHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

//
// ==========================
// List Deadlines
// ==========================
//

func (h *DeadlineHandler) ListDeadlines(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	deadlines, err := h.Repo.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list deadlines failed", "error", err, "user_id", userID)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	now := h.now()
	result := make([]models.DeadlineResponse, 0, len(deadlines))
	for _, d := range deadlines {
		result = append(result, d.WithDerived(now))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

//
// ==========================
// Create Deadline
// ==========================
//

func (h *DeadlineHandler) CreateDeadline(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Course  string `json:"course" validate:"required"`
		Title   string `json:"title" validate:"required"`
		Type    string `json:"type" validate:"required,oneof=assignment exam midterm"`
		DueDate string `json:"due_date" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	// ===== Validate input =====
	validate := validator.New()
	fields := validationFields(validate.Struct(input))
	var due time.Time
	if input.DueDate != "" {
		var err error
		if due, err = parseDueDate(input.DueDate); err != nil {
			fields["due_date"] = "must be a date (YYYY-MM-DD)"
		}
	}
	if len(fields) > 0 {
		metrics.RecordDeadlineOp("create", "rejected")
		// Schema violations surface as 500 on this endpoint; the body still
		// carries field detail.
		JSONValidationError(w, "validation failed", fields, http.StatusInternalServerError)
		return
	}

	deadline, err := h.Repo.Create(r.Context(), userID, input.Course, input.Title, input.Type, due)
	if err != nil {
		slog.Error("create deadline failed", "error", err, "user_id", userID)
		metrics.RecordDeadlineOp("create", "error")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	metrics.RecordDeadlineOp("create", "ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(deadline.WithDerived(h.now()))
}

//
// ==========================
// Update Deadline
// ==========================
//

func (h *DeadlineHandler) UpdateDeadline(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "deadline not found", http.StatusNotFound)
		return
	}

	// Subset-of-fields body: nil pointers keep the stored value.
	var input struct {
		Course  *string `json:"course" validate:"omitempty,min=1"`
		Title   *string `json:"title" validate:"omitempty,min=1"`
		Type    *string `json:"type" validate:"omitempty,oneof=assignment exam midterm"`
		DueDate *string `json:"due_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	validate := validator.New()
	fields := validationFields(validate.Struct(input))
	var due *time.Time
	if input.DueDate != nil {
		parsed, err := parseDueDate(*input.DueDate)
		if err != nil {
			fields["due_date"] = "must be a date (YYYY-MM-DD)"
		} else {
			due = &parsed
		}
	}
	if len(fields) > 0 {
		metrics.RecordDeadlineOp("update", "rejected")
		JSONValidationError(w, "validation failed", fields, http.StatusInternalServerError)
		return
	}

	deadline, err := h.Repo.Update(r.Context(), id, userID, input.Course, input.Title, input.Type, due)
	if err == repo.ErrNotFound {
		metrics.RecordDeadlineOp("update", "not_found")
		JSONError(w, "deadline not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("update deadline failed", "error", err, "user_id", userID, "deadline_id", id)
		metrics.RecordDeadlineOp("update", "error")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	metrics.RecordDeadlineOp("update", "ok")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deadline.WithDerived(h.now()))
}

//
// ==========================
// Delete Deadline
// ==========================
//

func (h *DeadlineHandler) DeleteDeadline(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "deadline not found", http.StatusNotFound)
		return
	}

	switch err := h.Repo.Delete(r.Context(), id, userID); err {
	case nil:
		metrics.RecordDeadlineOp("delete", "ok")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Successfully deleted"})
	case repo.ErrNotFound:
		metrics.RecordDeadlineOp("delete", "not_found")
		JSONError(w, "deadline not found", http.StatusNotFound)
	default:
		slog.Error("delete deadline failed", "error", err, "user_id", userID, "deadline_id", id)
		metrics.RecordDeadlineOp("delete", "error")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

// parseDueDate accepts a plain date or an RFC 3339 timestamp. Time-of-day is
// irrelevant downstream; the column is a DATE.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// validationFields flattens validator errors into a field -> message map
// keyed by the JSON field names.
func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	if err == nil {
		return fields
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["body"] = "invalid"
		return fields
	}
	for _, e := range verrs {
		name := strings.ToLower(e.Field())
		if name == "duedate" {
			name = "due_date"
		}
		switch e.Tag() {
		case "required":
			fields[name] = "required"
		case "oneof":
			fields[name] = "must be one of: assignment, exam, midterm"
		case "min":
			fields[name] = "must not be empty"
		default:
			fields[name] = "invalid"
		}
	}
	return fields
}
