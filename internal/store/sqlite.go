package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course TEXT NOT NULL,
		grp TEXT NOT NULL,
		session_date TEXT NOT NULL,
		weekday INTEGER NOT NULL,
		assignment_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(course, grp, session_date)
	);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES attendance_sessions(id),
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		attendance_points REAL NOT NULL DEFAULT 0,
		bonus_points REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'recorded',
		graded_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS bonus_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES attendance_sessions(id),
		student_id TEXT NOT NULL,
		points REAL NOT NULL,
		reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course TEXT NOT NULL,
		grp TEXT NOT NULL,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		UNIQUE(course, grp, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_session ON attendance_records(session_id);
	CREATE INDEX IF NOT EXISTS idx_records_status ON attendance_records(status);
	CREATE INDEX IF NOT EXISTS idx_bonus_session ON bonus_records(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) CreateSession(sess *Session) (int64, error) {
	var assignmentID *string
	if sess.AssignmentID != "" {
		assignmentID = &sess.AssignmentID
	}

	result, err := s.db.Exec(
		`INSERT INTO attendance_sessions (course, grp, session_date, weekday, assignment_id)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.Course, sess.Group, sess.Date, sess.Weekday, assignmentID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, course, grp, session_date, weekday, assignment_id, created_at
		 FROM attendance_sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

// FindSession looks a session up by its natural key. Returns nil with no
// error when it does not exist.
func (s *Storage) FindSession(course, group, date string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, course, grp, session_date, weekday, assignment_id, created_at
		 FROM attendance_sessions WHERE course = ? AND grp = ? AND session_date = ?`,
		course, group, date,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

func (s *Storage) ListSessions(limit int) ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, course, grp, session_date, weekday, assignment_id, created_at
		 FROM attendance_sessions ORDER BY session_date DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// UpdateSessionAssignment records the Moodle assignment a session's
// grading run was bound to.
func (s *Storage) UpdateSessionAssignment(id int64, assignmentID string) error {
	_, err := s.db.Exec(
		`UPDATE attendance_sessions SET assignment_id = ? WHERE id = ?`,
		assignmentID, id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var assignmentID sql.NullString

	err := row.Scan(
		&sess.ID, &sess.Course, &sess.Group, &sess.Date,
		&sess.Weekday, &assignmentID, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignmentID.Valid {
		sess.AssignmentID = assignmentID.String
	}

	return &sess, nil
}

func (s *Storage) CreateRecord(rec *Record) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO attendance_records (session_id, student_id, student_name, attendance_points, bonus_points, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StudentID, rec.StudentName,
		rec.AttendancePoints, rec.BonusPoints, rec.Status,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) GetRecord(id int64) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, student_id, student_name, attendance_points, bonus_points, status, graded_at, created_at
		 FROM attendance_records WHERE id = ?`, id,
	)
	return scanRecord(row)
}

// FindRecord looks a record up by session and student. Returns nil with
// no error when it does not exist.
func (s *Storage) FindRecord(sessionID int64, studentID string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, student_id, student_name, attendance_points, bonus_points, status, graded_at, created_at
		 FROM attendance_records WHERE session_id = ? AND student_id = ?`,
		sessionID, studentID,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *Storage) GetRecordsForSession(sessionID int64) ([]*Record, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, student_id, student_name, attendance_points, bonus_points, status, graded_at, created_at
		 FROM attendance_records WHERE session_id = ? ORDER BY student_name, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// UpdateRecordStatus writes a record's status. Moving to graded stamps
// graded_at; moving away clears it.
func (s *Storage) UpdateRecordStatus(id int64, status string) error {
	var gradedAt *time.Time
	if status == RecordStatusGraded {
		now := time.Now().UTC()
		gradedAt = &now
	}
	_, err := s.db.Exec(
		`UPDATE attendance_records SET status = ?, graded_at = ? WHERE id = ?`,
		status, gradedAt, id,
	)
	return err
}

// UpdateRecordPoints rewrites a record's point values.
func (s *Storage) UpdateRecordPoints(id int64, attendance, bonus float64) error {
	_, err := s.db.Exec(
		`UPDATE attendance_records SET attendance_points = ?, bonus_points = ? WHERE id = ?`,
		attendance, bonus, id,
	)
	return err
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var gradedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.StudentID, &rec.StudentName,
		&rec.AttendancePoints, &rec.BonusPoints, &rec.Status,
		&gradedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gradedAt.Valid {
		rec.GradedAt = &gradedAt.Time
	}

	return &rec, nil
}

func (s *Storage) CreateBonus(b *Bonus) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO bonus_records (session_id, student_id, points, reason)
		 VALUES (?, ?, ?, ?)`,
		b.SessionID, b.StudentID, b.Points, b.Reason,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) GetBonusForSession(sessionID int64) ([]*Bonus, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, student_id, points, reason, created_at
		 FROM bonus_records WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bonuses []*Bonus
	for rows.Next() {
		var b Bonus
		var reason sql.NullString
		if err := rows.Scan(&b.ID, &b.SessionID, &b.StudentID, &b.Points, &reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			b.Reason = reason.String
		}
		bonuses = append(bonuses, &b)
	}

	return bonuses, rows.Err()
}

// UpsertTemplateEntry adds or renames a student in a roster template.
func (s *Storage) UpsertTemplateEntry(e *TemplateEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO session_templates (course, grp, student_id, student_name)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(course, grp, student_id) DO UPDATE SET student_name = excluded.student_name`,
		e.Course, e.Group, e.StudentID, e.StudentName,
	)
	return err
}

func (s *Storage) GetTemplate(course, group string) ([]*TemplateEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, course, grp, student_id, student_name
		 FROM session_templates WHERE course = ? AND grp = ? ORDER BY student_name`,
		course, group,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*TemplateEntry
	for rows.Next() {
		var e TemplateEntry
		if err := rows.Scan(&e.ID, &e.Course, &e.Group, &e.StudentID, &e.StudentName); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// DeleteTemplateEntry removes a student from a roster template.
func (s *Storage) DeleteTemplateEntry(course, group, studentID string) error {
	_, err := s.db.Exec(
		`DELETE FROM session_templates WHERE course = ? AND grp = ? AND student_id = ?`,
		course, group, studentID,
	)
	return err
}

// DeleteSession removes a session with its records and bonus entries.
func (s *Storage) DeleteSession(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bonus_records WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM attendance_records WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM attendance_sessions WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}
