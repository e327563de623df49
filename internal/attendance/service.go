// Package attendance implements the bookkeeping around attendance
// sessions: starting a lesson's sheet, recording who showed up, bonus
// points, and handing the queue over to the grader.
package attendance

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/npratt/rollcall/internal/config"
	"github.com/npratt/rollcall/internal/grader"
	"github.com/npratt/rollcall/internal/store"
)

// Service errors.
var (
	ErrDuplicateSession    = errors.New("a session for this course, group and date already exists")
	ErrDuplicateAttendance = errors.New("attendance already recorded for this student")
	ErrSessionNotFound     = errors.New("session not found")
)

// Service wraps the store with attendance semantics and point defaults.
type Service struct {
	store  *store.Storage
	config *config.Config
	logger *slog.Logger
}

// NewService creates an attendance service.
func NewService(st *store.Storage, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, config: cfg, logger: logger}
}

// StartSession opens a new attendance sheet for a lesson. The natural
// key is course, group and date; opening the same lesson twice is
// rejected so a crash-and-retry cannot fork the sheet.
func (s *Service) StartSession(course, group string, date time.Time) (*store.Session, error) {
	dateStr := date.Format("2006-01-02")

	existing, err := s.store.FindSession(course, group, dateStr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s %s on %s", ErrDuplicateSession, course, group, dateStr)
	}

	sess := &store.Session{
		Course:  course,
		Group:   group,
		Date:    dateStr,
		Weekday: isoWeekday(date),
	}
	id, err := s.store.CreateSession(sess)
	if err != nil {
		return nil, err
	}
	sess.ID = id

	s.logger.Info("session started",
		"session_id", id,
		"course", course,
		"group", group,
		"date", dateStr,
		"weekday", WeekdayLabel(sess.Weekday),
	)
	return sess, nil
}

// StartSessionFromTemplate opens a session and pre-fills it with the
// group's roster. Every templated student gets a record with default
// points; absentees are removed afterwards.
func (s *Service) StartSessionFromTemplate(course, group string, date time.Time) (*store.Session, []*store.Record, error) {
	sess, err := s.StartSession(course, group, date)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.store.GetTemplate(course, group)
	if err != nil {
		return nil, nil, err
	}

	var recs []*store.Record
	for _, e := range entries {
		rec, err := s.RecordAttendance(sess.ID, e.StudentID, e.StudentName)
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, rec)
	}

	return sess, recs, nil
}

// RecordAttendance marks a student present with the configured default
// points. Recording the same student twice in one session is rejected.
func (s *Service) RecordAttendance(sessionID int64, studentID, studentName string) (*store.Record, error) {
	existing, err := s.store.FindRecord(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAttendance, studentName)
	}

	rec := &store.Record{
		SessionID:        sessionID,
		StudentID:        studentID,
		StudentName:      studentName,
		AttendancePoints: s.config.Attendance.AttendancePoints,
		BonusPoints:      s.config.Attendance.BonusPoints,
		Status:           store.RecordStatusRecorded,
	}
	id, err := s.store.CreateRecord(rec)
	if err != nil {
		return nil, err
	}
	rec.ID = id

	s.logger.Debug("attendance recorded", "session_id", sessionID, "student", studentName)
	return rec, nil
}

// AddBonus grants extra points to a student and folds them into the
// attendance record so the grader writes one total.
func (s *Service) AddBonus(sessionID int64, studentID string, points float64, reason string) error {
	rec, err := s.store.FindRecord(sessionID, studentID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no attendance record for student %s in session %d", studentID, sessionID)
	}

	if _, err := s.store.CreateBonus(&store.Bonus{
		SessionID: sessionID,
		StudentID: studentID,
		Points:    points,
		Reason:    reason,
	}); err != nil {
		return err
	}

	if err := s.store.UpdateRecordPoints(rec.ID, rec.AttendancePoints, rec.BonusPoints+points); err != nil {
		return err
	}

	s.logger.Info("bonus added", "session_id", sessionID, "student", studentID, "points", points)
	return nil
}

// Records returns a session's attendance records.
func (s *Service) Records(sessionID int64) ([]*store.Record, error) {
	return s.store.GetRecordsForSession(sessionID)
}

// Sessions lists recent sessions, newest first.
func (s *Service) Sessions(limit int) ([]*store.Session, error) {
	return s.store.ListSessions(limit)
}

// Session fetches one session.
func (s *Service) Session(id int64) (*store.Session, error) {
	sess, err := s.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return sess, nil
}

// FindSession looks up the session for a course, group and date.
func (s *Service) FindSession(course, group string, date time.Time) (*store.Session, error) {
	dateStr := date.Format("2006-01-02")
	sess, err := s.store.FindSession(course, group, dateStr)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s %s on %s", ErrSessionNotFound, course, group, dateStr)
	}
	return sess, nil
}

// BindAssignment records which Moodle assignment the session was graded
// against.
func (s *Service) BindAssignment(sessionID int64, assignmentID string) error {
	return s.store.UpdateSessionAssignment(sessionID, assignmentID)
}

// GradingQueue converts a session's records into grader items. Record
// ids carry through as item ids so status updates find their way back.
func (s *Service) GradingQueue(sessionID int64) ([]grader.Item, error) {
	recs, err := s.store.GetRecordsForSession(sessionID)
	if err != nil {
		return nil, err
	}

	items := make([]grader.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, grader.Item{
			ID:     strconv.FormatInt(rec.ID, 10),
			Name:   rec.StudentName,
			Points: rec.TotalPoints(),
			Status: grader.Status(rec.Status),
		})
	}
	return items, nil
}

// UpdateRecordStatus implements grader.StatusStore. Item ids are the
// decimal record row ids produced by GradingQueue.
func (s *Service) UpdateRecordStatus(recordID, status string) error {
	id, err := strconv.ParseInt(recordID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad record id %q: %w", recordID, err)
	}
	return s.store.UpdateRecordStatus(id, status)
}
