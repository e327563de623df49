package config

import "strings"

// DefaultConfirmPrompt is the question asked once per run before any
// grade is written.
const DefaultConfirmPrompt = `Enter grades for assignment {{.Assignment}} ({{.Count}} students)?`

// PromptVars holds variables for confirmation prompt expansion.
type PromptVars struct {
	Assignment string
	Course     string
	Count      string
}

// ConfirmPrompt returns the confirmation question template, preferring
// the configured override.
func (c *Config) ConfirmPrompt() string {
	if c.Moodle.ConfirmPrompt != "" {
		return c.Moodle.ConfirmPrompt
	}
	return DefaultConfirmPrompt
}

// ExpandPrompt performs variable substitution on a prompt template.
// Uses single-pass replacement to avoid template injection risks.
// Supported variables: {{.Assignment}}, {{.Course}}, {{.Count}}
func ExpandPrompt(template string, vars PromptVars) string {
	// Use Replacer for single-pass replacement to prevent injection
	// (e.g., if Assignment contains "{{.Course}}", it won't be expanded)
	r := strings.NewReplacer(
		"{{.Assignment}}", vars.Assignment,
		"{{.Course}}", vars.Course,
		"{{.Count}}", vars.Count,
	)
	return r.Replace(template)
}
