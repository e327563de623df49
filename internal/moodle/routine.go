package moodle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/npratt/rollcall/internal/config"
	"github.com/npratt/rollcall/internal/grader"
)

// PageSession is the browser surface the routine drives. Implemented by
// browser.Session; tests substitute a scripted fake.
type PageSession interface {
	CurrentURL(ctx context.Context) (string, error)
	EvaluateString(ctx context.Context, expression string) (string, error)
}

// Routine grades students on the Moodle page the operator has open.
type Routine struct {
	session PageSession
	config  *config.Config
}

// NewRoutine creates the default grading routine.
func NewRoutine(session PageSession, cfg *config.Config) *Routine {
	return &Routine{session: session, config: cfg}
}

// Grade is a grader.RoutineFunc. For each student it verifies the page,
// binds the assignment, asks for the one-time confirmation, and enters
// the attendance points.
func (r *Routine) Grade(rc *grader.RunContext, item *grader.Item) (*grader.Result, error) {
	ctx, cancel := r.stepContext()
	defer cancel()

	pageURL, err := r.session.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page url: %w", err)
	}

	assignmentID, err := ParseGradingURL(pageURL)
	if err != nil {
		// The run cannot recover by moving to the next student; the
		// page stays wrong for everyone.
		return &grader.Result{
			Success:    false,
			ShouldStop: true,
			Messages: []grader.Message{{
				Text: fmt.Sprintf("open the assignment grading page first: %v", err),
				Tone: grader.ToneWarning,
			}},
		}, nil
	}

	if err := rc.EnsureAssignmentID(assignmentID); err != nil {
		return nil, err
	}

	prompt := config.ExpandPrompt(r.config.ConfirmPrompt(), config.PromptVars{
		Assignment: assignmentID,
		Course:     r.config.Course.Name,
	})
	ok, err := rc.Confirm(prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &grader.Result{
			Success:    false,
			ShouldStop: true,
			Messages: []grader.Message{{
				Text: "grading declined by operator",
				Tone: grader.ToneInfo,
			}},
		}, nil
	}

	if rc.Stopped() {
		return grader.Failuref("stopped before grading %s", item.Name), nil
	}

	status, err := r.enterGrade(ctx, item.Name, item.Points)
	if err != nil {
		return nil, fmt.Errorf("enter grade for %s: %w", item.Name, err)
	}
	if status != "ok" {
		return grader.Failuref("%s: %s", item.Name, status), nil
	}

	res := grader.Successf("%s graded with %s points", item.Name, formatPoints(item.Points))
	if !r.config.Moodle.AutoSave {
		res.Append(grader.ToneInfo, "auto-save is off, save the grading table manually")
	}
	return res, nil
}

// enterGrade fills the student's grade field on the grading table. The
// snippet reports "ok" or a short reason why it could not.
func (r *Routine) enterGrade(ctx context.Context, studentName string, points float64) (string, error) {
	script := fmt.Sprintf(gradeScript, strconv.Quote(studentName), formatPoints(points), r.config.Moodle.AutoSave)
	return r.session.EvaluateString(ctx, script)
}

func (r *Routine) stepContext() (context.Context, context.CancelFunc) {
	timeout := r.config.Moodle.StepTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}

// gradeScript locates a student's row in the grading table by full name,
// fills the quick-grading input, and optionally submits it. Evaluates to
// a status string.
const gradeScript = `(() => {
	const name = %s;
	const rows = document.querySelectorAll('table.generaltable tr');
	for (const row of rows) {
		const cell = row.querySelector('td.cell.c2, td.username, a[href*="user"]');
		if (!cell || cell.textContent.trim() !== name) continue;
		const input = row.querySelector('input[name^="quickgrade_"]');
		if (!input) return 'no grade input in row';
		input.value = '%s';
		input.dispatchEvent(new Event('change', { bubbles: true }));
		if (%t) {
			const save = document.querySelector('input[name="savequickgrades"]');
			if (save) save.click();
		}
		return 'ok';
	}
	return 'student not found on grading page';
})()`
