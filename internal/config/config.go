// Package config provides configuration types and defaults for rollcall.
package config

import "time"

// Config holds all configuration for rollcall.
type Config struct {
	Course      CourseConfig      `yaml:"course" mapstructure:"course"`
	Moodle      MoodleConfig      `yaml:"moodle" mapstructure:"moodle"`
	Grader      GraderConfig      `yaml:"grader" mapstructure:"grader"`
	Browser     BrowserConfig     `yaml:"browser" mapstructure:"browser"`
	Attendance  AttendanceConfig  `yaml:"attendance" mapstructure:"attendance"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// CourseConfig identifies the course being graded.
type CourseConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Group   string `yaml:"group" mapstructure:"group"`
	Weekday int    `yaml:"weekday" mapstructure:"weekday"` // ISO weekday 1-5, Monday through Friday
}

// MoodleConfig holds Moodle grading settings.
type MoodleConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	AutoSave      bool          `yaml:"auto_save" mapstructure:"auto_save"` // Save each grade without a manual click
	StepTimeout   time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
	ConfirmPrompt string        `yaml:"confirm_prompt" mapstructure:"confirm_prompt"` // Override for the per-run confirmation question
}

// GraderConfig holds orchestrator behavior settings.
type GraderConfig struct {
	// StopOnPanic ends the whole run when the grading routine panics.
	// Off by default: a bad page for one student should not strand the rest.
	StopOnPanic bool `yaml:"stop_on_panic" mapstructure:"stop_on_panic"`
	// StopOnPersistError ends the run when a graded status cannot be
	// written. On by default: grading past a broken database silently
	// regrades everyone on the next run.
	StopOnPersistError bool          `yaml:"stop_on_persist_error" mapstructure:"stop_on_persist_error"`
	ItemDelay          time.Duration `yaml:"item_delay" mapstructure:"item_delay"` // Pause between students (0 = none)
}

// BrowserConfig holds Chrome launch settings.
type BrowserConfig struct {
	Binary        string        `yaml:"binary" mapstructure:"binary"` // Empty = discover a known binary
	DebugPort     int           `yaml:"debug_port" mapstructure:"debug_port"`
	ProfileDir    string        `yaml:"profile_dir" mapstructure:"profile_dir"`
	LaunchTimeout time.Duration `yaml:"launch_timeout" mapstructure:"launch_timeout"`
	Headless      bool          `yaml:"headless" mapstructure:"headless"`
}

// AttendanceConfig holds point defaults for new attendance records.
type AttendanceConfig struct {
	AttendancePoints float64 `yaml:"attendance_points" mapstructure:"attendance_points"`
	BonusPoints      float64 `yaml:"bonus_points" mapstructure:"bonus_points"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PathsConfig holds file paths for logs and the event stream.
type PathsConfig struct {
	Log    string `yaml:"log" mapstructure:"log"`
	Events string `yaml:"events" mapstructure:"events"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Moodle: MoodleConfig{
			AutoSave:    true,
			StepTimeout: 30 * time.Second,
		},
		Grader: GraderConfig{
			StopOnPanic:        false,
			StopOnPersistError: true,
			ItemDelay:          0,
		},
		Browser: BrowserConfig{
			DebugPort:     9222,
			LaunchTimeout: 15 * time.Second,
		},
		Attendance: AttendanceConfig{
			AttendancePoints: 5.0,
			BonusPoints:      0.0,
		},
		Storage: StorageConfig{
			Path: ".rollcall/rollcall.db",
		},
		Paths: PathsConfig{
			Log:    ".rollcall/rollcall.log",
			Events: ".rollcall/events.jsonl",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
