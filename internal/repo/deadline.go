package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/duetrack/deadline-api/internal/models"
)

// ==========================
// DeadlineRepo
// ==========================

// DeadlineRepo is ownership-scoped: every query carries the owner's user id
// in its WHERE clause, so an ownership check and the mutation it guards are
// always a single atomic statement.
type DeadlineRepo struct {
	DB *sql.DB
}

func NewDeadlineRepo(db *sql.DB) *DeadlineRepo {
	return &DeadlineRepo{DB: db}
}

// ==========================
// List By User
// ==========================
func (r *DeadlineRepo) ListByUser(ctx context.Context, userID int) ([]models.Deadline, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, course, title, type, due_date, user_id
		FROM deadlines
		WHERE user_id = $1
		ORDER BY due_date
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deadlines []models.Deadline
	for rows.Next() {
		var d models.Deadline
		if err := rows.Scan(&d.ID, &d.Course, &d.Title, &d.Type, &d.DueDate, &d.UserID); err != nil {
			return nil, err
		}
		deadlines = append(deadlines, d)
	}
	return deadlines, rows.Err()
}

// ==========================
// Create
// ==========================

// Create inserts a deadline owned by userID. The owner always comes from
// this argument, never from client input.
func (r *DeadlineRepo) Create(ctx context.Context, userID int, course, title, dtype string, due time.Time) (models.Deadline, error) {
	var d models.Deadline
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO deadlines (course, title, type, due_date, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, course, title, type, due_date, user_id
	`, course, title, dtype, due, userID).
		Scan(&d.ID, &d.Course, &d.Title, &d.Type, &d.DueDate, &d.UserID)
	return d, err
}

// ==========================
// Update
// ==========================

// Update applies the non-nil fields to the deadline matching (id, userID) in
// one statement. COALESCE keeps the stored value for absent fields. Returns
// ErrNotFound when no row matches, whether the deadline is missing or owned
// by someone else.
func (r *DeadlineRepo) Update(ctx context.Context, id, userID int, course, title, dtype *string, due *time.Time) (models.Deadline, error) {
	var d models.Deadline
	err := r.DB.QueryRowContext(ctx, `
		UPDATE deadlines
		SET course   = COALESCE($3, course),
		    title    = COALESCE($4, title),
		    type     = COALESCE($5, type),
		    due_date = COALESCE($6, due_date)
		WHERE id = $1 AND user_id = $2
		RETURNING id, course, title, type, due_date, user_id
	`, id, userID, course, title, dtype, due).
		Scan(&d.ID, &d.Course, &d.Title, &d.Type, &d.DueDate, &d.UserID)

	if err == sql.ErrNoRows {
		return models.Deadline{}, ErrNotFound
	}
	return d, err
}

// ==========================
// Delete
// ==========================

// Delete removes the deadline matching (id, userID). Returns ErrNotFound
// when no row matched.
func (r *DeadlineRepo) Delete(ctx context.Context, id, userID int) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM deadlines WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
