// Package store persists attendance sessions and records in SQLite.
package store

import "time"

// Record statuses mirror the grading lifecycle.
const (
	RecordStatusRecorded = "recorded"
	RecordStatusGraded   = "graded"
	RecordStatusSkipped  = "skipped"
)

// Session is one lesson's attendance sheet for a course group.
type Session struct {
	ID           int64
	Course       string
	Group        string
	Date         string // YYYY-MM-DD
	Weekday      int    // ISO weekday 1-5
	AssignmentID string // Moodle assignment bound during grading, "" until then
	CreatedAt    time.Time
}

// Record is one student's attendance entry in a session.
type Record struct {
	ID               int64
	SessionID        int64
	StudentID        string
	StudentName      string
	AttendancePoints float64
	BonusPoints      float64
	Status           string
	GradedAt         *time.Time
	CreatedAt        time.Time
}

// TotalPoints is the grade written to Moodle.
func (r *Record) TotalPoints() float64 {
	return r.AttendancePoints + r.BonusPoints
}

// Bonus is an extra-credit entry attached to a session.
type Bonus struct {
	ID        int64
	SessionID int64
	StudentID string
	Points    float64
	Reason    string
	CreatedAt time.Time
}

// TemplateEntry is one student in a course group's roster template.
// Templates pre-fill new sessions so attendance is a matter of unchecking
// absentees.
type TemplateEntry struct {
	ID          int64
	Course      string
	Group       string
	StudentID   string
	StudentName string
}
