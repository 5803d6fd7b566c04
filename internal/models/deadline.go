package models

import "time"

// Deadline types. Any other value is rejected at validation time and by a
// CHECK constraint on the table.
const (
	TypeAssignment = "assignment"
	TypeExam       = "exam"
	TypeMidterm    = "midterm"
)

// ValidType reports whether t is one of the known deadline types.
func ValidType(t string) bool {
	return t == TypeAssignment || t == TypeExam || t == TypeMidterm
}

type Deadline struct {
	ID      int       `json:"id"`
	Course  string    `json:"course"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	DueDate time.Time `json:"due_date"`
	UserID  int       `json:"userId"`
}

// DeadlineResponse is a Deadline plus the derived presentation fields.
// The derived fields are never persisted; every response path computes them
// through ComputeDerived so create/read/update can never disagree.
type DeadlineResponse struct {
	Deadline
	DaysRemaining int  `json:"daysRemaining"`
	Overdue       bool `json:"overdue"`
}

// WithDerived returns the deadline with daysRemaining/overdue computed
// relative to now.
func (d Deadline) WithDerived(now time.Time) DeadlineResponse {
	days, overdue := ComputeDerived(d.DueDate, now)
	return DeadlineResponse{Deadline: d, DaysRemaining: days, Overdue: overdue}
}

// ComputeDerived maps a due date and the current time to the presentation
// fields. Both times are truncated to their own calendar date, so
// time-of-day and sub-day timezone offsets are ignored.
//
// The +1 offset is deliberate: a deadline due today reports daysRemaining=1,
// not 0, so the day of the deadline itself still counts as non-overdue.
// Overdue starts the day after (daysRemaining <= 0).
func ComputeDerived(due, now time.Time) (daysRemaining int, overdue bool) {
	d := midnight(due)
	n := midnight(now)
	daysRemaining = int(d.Sub(n).Hours()/24) + 1
	return daysRemaining, daysRemaining <= 0
}

// midnight maps t to midnight UTC of its calendar date in its own location.
// Rebuilding in UTC keeps the difference an exact multiple of 24h regardless
// of DST transitions.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
