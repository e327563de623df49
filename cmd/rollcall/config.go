package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"

	// Start command flags
	FlagTUI       = "tui"
	FlagSession   = "session"
	FlagCourse    = "course"
	FlagGroup     = "group"
	FlagDate      = "date"
	FlagBinary    = "browser-binary"
	FlagDebugPort = "debug-port"
	FlagHeadless  = "headless"
	FlagAutoSave  = "auto-save"

	// Sessions command flags
	FlagLimit = "limit"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Init command flags
	FlagGlobal = "global"
)
