// Package moodle implements the default grading routine: it drives the
// Moodle assignment grading page through a browser session and writes
// one attendance grade per student.
package moodle

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotGradingPage is returned when the browser is not on a Moodle
// assignment grading page.
var ErrNotGradingPage = errors.New("not a Moodle assignment grading page")

// gradingPath marks an assignment view URL.
const gradingPath = "/mod/assign/view.php"

// gradingActions are the action values of grading-capable pages.
var gradingActions = map[string]bool{
	"grading": true,
	"grader":  true,
}

// ParseGradingURL verifies that rawURL is an assignment grading page and
// extracts the numeric assignment id. The operator navigates to the page
// by hand; this is the guard that keeps the run from typing grades into
// the wrong form.
func ParseGradingURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotGradingPage, err)
	}

	if !strings.HasSuffix(u.Path, gradingPath) {
		return "", fmt.Errorf("%w: path %q", ErrNotGradingPage, u.Path)
	}

	q := u.Query()
	if !gradingActions[q.Get("action")] {
		return "", fmt.Errorf("%w: action %q", ErrNotGradingPage, q.Get("action"))
	}

	id := q.Get("id")
	if id == "" {
		return "", fmt.Errorf("%w: missing id parameter", ErrNotGradingPage)
	}
	if _, err := strconv.Atoi(id); err != nil {
		return "", fmt.Errorf("%w: id %q is not numeric", ErrNotGradingPage, id)
	}

	return id, nil
}
