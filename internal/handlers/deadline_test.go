package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/duetrack/deadline-api/internal/middleware"
	"github.com/duetrack/deadline-api/internal/repo"
	"github.com/go-chi/chi/v5"
)

// testNow pins the clock so derived fields are deterministic.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newDeadlineHandler(db *sql.DB) *DeadlineHandler {
	return &DeadlineHandler{
		Repo: repo.NewDeadlineRepo(db),
		Now:  func() time.Time { return testNow },
	}
}

// authedRequest returns a request carrying the caller identity and optional chi URL params.
func authedRequest(method, path string, body []byte, userID int, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	ctx := middleware.WithUser(r.Context(), userID, "tester")
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func TestDeadlineHandler_ListDeadlines(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, course, title, type, due_date, user_id`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}).
			AddRow(1, "CS101", "Problem Set 1", "assignment", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 1).
			AddRow(2, "MATH221", "Midterm 1", "midterm", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), 1))

	h := newDeadlineHandler(db)

	rr := httptest.NewRecorder()
	h.ListDeadlines(rr, authedRequest("GET", "/", nil, 1, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("ListDeadlines status: got %d, want 200", rr.Code)
	}
	var list []struct {
		ID            int    `json:"id"`
		Course        string `json:"course"`
		DaysRemaining int    `json:"daysRemaining"`
		Overdue       bool   `json:"overdue"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d deadlines, want 2", len(list))
	}
	// Due today: daysRemaining 1, not overdue. Due yesterday: 0, overdue.
	if list[0].DaysRemaining != 1 || list[0].Overdue {
		t.Errorf("deadline due today: got %d/%v, want 1/false", list[0].DaysRemaining, list[0].Overdue)
	}
	if list[1].DaysRemaining != 0 || !list[1].Overdue {
		t.Errorf("deadline due yesterday: got %d/%v, want 0/true", list[1].DaysRemaining, list[1].Overdue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_ListDeadlines_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, course, title, type, due_date, user_id`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}))

	h := newDeadlineHandler(db)

	rr := httptest.NewRecorder()
	h.ListDeadlines(rr, authedRequest("GET", "/", nil, 1, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("ListDeadlines status: got %d, want 200", rr.Code)
	}
	// Empty list must encode as [], not null.
	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body: got %s, want []", got)
	}
}

func TestDeadlineHandler_CreateDeadline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	due := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO deadlines \(course, title, type, due_date, user_id\)`).
		WithArgs("CS101", "Final Exam", "exam", due, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}).
			AddRow(5, "CS101", "Final Exam", "exam", due, 1))

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{
		"course":   "CS101",
		"title":    "Final Exam",
		"type":     "exam",
		"due_date": "2025-03-13",
	})
	rr := httptest.NewRecorder()
	h.CreateDeadline(rr, authedRequest("POST", "/", body, 1, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateDeadline status: got %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		ID            int    `json:"id"`
		Type          string `json:"type"`
		UserID        int    `json:"userId"`
		DaysRemaining int    `json:"daysRemaining"`
		Overdue       bool   `json:"overdue"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 5 || out.Type != "exam" || out.UserID != 1 {
		t.Errorf("unexpected deadline: %+v", out)
	}
	// Due three days out with the pinned clock: daysRemaining 4.
	if out.DaysRemaining != 4 || out.Overdue {
		t.Errorf("derived: got %d/%v, want 4/false", out.DaysRemaining, out.Overdue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// The owner always comes from the token; a userId in the body is ignored.
func TestDeadlineHandler_CreateDeadline_IgnoresBodyOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	due := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO deadlines \(course, title, type, due_date, user_id\)`).
		WithArgs("CS101", "Final Exam", "exam", due, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}).
			AddRow(5, "CS101", "Final Exam", "exam", due, 1))

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]interface{}{
		"course":   "CS101",
		"title":    "Final Exam",
		"type":     "exam",
		"due_date": "2025-03-13",
		"userId":   999,
	})
	rr := httptest.NewRecorder()
	h.CreateDeadline(rr, authedRequest("POST", "/", body, 1, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateDeadline status: got %d, want 201", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_CreateDeadline_InvalidType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{
		"course":   "CS101",
		"title":    "Quiz 1",
		"type":     "quiz",
		"due_date": "2025-03-13",
	})
	rr := httptest.NewRecorder()
	h.CreateDeadline(rr, authedRequest("POST", "/", body, 1, nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("CreateDeadline status: got %d, want 500", rr.Code)
	}
	var out struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Fields["type"] == "" {
		t.Errorf("expected field detail for type, got %+v", out.Fields)
	}
	// Nothing persisted: no INSERT was expected or executed.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_CreateDeadline_BadDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{
		"course":   "CS101",
		"title":    "Final Exam",
		"type":     "exam",
		"due_date": "next tuesday",
	})
	rr := httptest.NewRecorder()
	h.CreateDeadline(rr, authedRequest("POST", "/", body, 1, nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("CreateDeadline status: got %d, want 500", rr.Code)
	}
	var out struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Fields["due_date"] == "" {
		t.Errorf("expected field detail for due_date, got %+v", out.Fields)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_UpdateDeadline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	due := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	title := "Problem Set 1 (revised)"
	mock.ExpectQuery(`UPDATE deadlines`).
		WithArgs(3, 1, nil, title, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}).
			AddRow(3, "CS101", title, "assignment", due, 1))

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{"title": title})
	rr := httptest.NewRecorder()
	h.UpdateDeadline(rr, authedRequest("PUT", "/3", body, 1, map[string]string{"id": "3"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateDeadline status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Title         string `json:"title"`
		DaysRemaining int    `json:"daysRemaining"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Title != title || out.DaysRemaining != 2 {
		t.Errorf("unexpected response: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// A deadline owned by another user updates as if it did not exist.
func TestDeadlineHandler_UpdateDeadline_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	title := "hijack"
	mock.ExpectQuery(`UPDATE deadlines`).
		WithArgs(3, 2, nil, title, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course", "title", "type", "due_date", "user_id"}))

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{"title": title})
	rr := httptest.NewRecorder()
	h.UpdateDeadline(rr, authedRequest("PUT", "/3", body, 2, map[string]string{"id": "3"}))

	if rr.Code != http.StatusNotFound {
		t.Errorf("UpdateDeadline status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_UpdateDeadline_InvalidType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := newDeadlineHandler(db)

	body, _ := json.Marshal(map[string]string{"type": "quiz"})
	rr := httptest.NewRecorder()
	h.UpdateDeadline(rr, authedRequest("PUT", "/3", body, 1, map[string]string{"id": "3"}))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("UpdateDeadline status: got %d, want 500", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_DeleteDeadline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM deadlines WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := newDeadlineHandler(db)

	rr := httptest.NewRecorder()
	h.DeleteDeadline(rr, authedRequest("DELETE", "/3", nil, 1, map[string]string{"id": "3"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("DeleteDeadline status: got %d, want 200", rr.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["message"] != "Successfully deleted" {
		t.Errorf("unexpected message: %q", out["message"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeadlineHandler_DeleteDeadline_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM deadlines WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	h := newDeadlineHandler(db)

	rr := httptest.NewRecorder()
	h.DeleteDeadline(rr, authedRequest("DELETE", "/3", nil, 2, map[string]string{"id": "3"}))

	if rr.Code != http.StatusNotFound {
		t.Errorf("DeleteDeadline status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
