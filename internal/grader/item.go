package grader

// Status tracks where a student's record sits in the grading lifecycle.
type Status string

// Item statuses.
const (
	// StatusRecorded means attendance is recorded but not yet graded.
	StatusRecorded Status = "recorded"
	// StatusInProgress marks the item the routine is currently working on.
	// It is never persisted; a crash leaves the stored status untouched.
	StatusInProgress Status = "in_progress"
	// StatusGraded means the grade was entered and persisted.
	StatusGraded Status = "graded"
	// StatusSkipped means this run gave up on the item.
	StatusSkipped Status = "skipped"
)

// Item is one student's attendance record in the grading queue.
type Item struct {
	ID     string
	Name   string
	Points float64
	Status Status
}

// snapshotItems copies the queue so the run works on a stable view.
// Items added or edited after Start do not affect an in-flight run.
func snapshotItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
