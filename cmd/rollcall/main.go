package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/rollcall/internal/attendance"
	"github.com/npratt/rollcall/internal/browser"
	"github.com/npratt/rollcall/internal/config"
	"github.com/npratt/rollcall/internal/events"
	"github.com/npratt/rollcall/internal/grader"
	"github.com/npratt/rollcall/internal/moodle"
	"github.com/npratt/rollcall/internal/shutdown"
	"github.com/npratt/rollcall/internal/store"
	"github.com/npratt/rollcall/internal/tui"
)

var version = "dev"

// orchestratorStats adapts the orchestrator's snapshot stats to the
// per-field getter the TUI polls on its tick.
type orchestratorStats struct {
	orc *grader.Orchestrator
}

func (s orchestratorStats) State() string       { return string(s.orc.State()) }
func (s orchestratorStats) Graded() int         { return s.orc.Stats().Graded }
func (s orchestratorStats) Skipped() int        { return s.orc.Stats().Skipped }
func (s orchestratorStats) Total() int          { return s.orc.Stats().Total }
func (s orchestratorStats) CurrentItem() string { return s.orc.Stats().Current }

// parseDate parses a YYYY-MM-DD lesson date. Empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", s)
}

// openStore opens the sqlite store, creating the data directory if needed.
func openStore(cfg *config.Config) (*store.Storage, error) {
	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return store.New(cfg.Storage.Path)
}

// resolveSession picks the session to grade: an explicit --session id, or
// the course/group/date lookup.
func resolveSession(svc *attendance.Service, cfg *config.Config) (*store.Session, error) {
	if id := viper.GetInt64(FlagSession); id > 0 {
		return svc.Session(id)
	}

	course := cfg.Course.Name
	group := cfg.Course.Group
	if course == "" || group == "" {
		return nil, fmt.Errorf("course and group are required (--course/--group flags or config)")
	}

	date, err := parseDate(viper.GetString(FlagDate))
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}

	sess, err := svc.FindSession(course, group, date)
	if err != nil {
		if errors.Is(err, attendance.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w (record attendance first with 'rollcall record')", err)
		}
		return nil, err
	}
	return sess, nil
}

// formatEventLine renders one JSONL event line for the events command.
// Lines that are not JSON come back unchanged.
func formatEventLine(line string) string {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return line
	}

	timestamp := ""
	if ts, ok := event["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			timestamp = t.Format("15:04:05")
		} else {
			timestamp = ts
		}
	}

	eventType := ""
	if t, ok := event["type"].(string); ok {
		eventType = t
	}

	var detail string
	switch eventType {
	case string(events.EventItemStart):
		if name, ok := event["name"].(string); ok {
			detail = name
		}
	case string(events.EventConfirmRequest):
		if prompt, ok := event["prompt"].(string); ok {
			detail = prompt
		}
	case string(events.EventLogMessage):
		if text, ok := event["text"].(string); ok {
			detail = text
		}
	case string(events.EventError):
		if msg, ok := event["message"].(string); ok {
			detail = msg
		}
	case string(events.EventRunComplete):
		if reason, ok := event["reason"].(string); ok {
			detail = reason
		}
	}

	if detail != "" {
		return fmt.Sprintf("[%s] %s: %s", timestamp, eventType, detail)
	}
	return fmt.Sprintf("[%s] %s", timestamp, eventType)
}

// tailLast reads and prints the last n lines from the event log.
func tailLast(path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No events yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open event log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event log: %w", err)
	}

	if len(lines) == 0 {
		fmt.Println("No events yet")
		return nil
	}

	start := 0
	if len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		fmt.Println(formatEventLine(line))
	}
	return nil
}

// tailFollow follows the event log and prints new lines as they appear.
func tailFollow(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open event log: %w", err)
		}
		fmt.Println("Waiting for event log to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	fmt.Println("Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					time.Sleep(100 * time.Millisecond)
					continue
				}
				return fmt.Errorf("read event log: %w", err)
			}
			fmt.Println(formatEventLine(strings.TrimSuffix(line, "\n")))
		}
	}
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// followRun prints events to stdout and answers confirmation requests
// from stdin until the run completes. Used in plain (non-TUI) mode.
func followRun(ctx context.Context, orc *grader.Orchestrator, eventCh <-chan events.Event, stdin *bufio.Reader) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}

			if text := tui.Format(ev); text != "" {
				fmt.Printf("[%s] %s\n", ev.Timestamp().Format("15:04:05"), text)
			}

			switch e := ev.(type) {
			case *events.ConfirmRequestEvent:
				fmt.Printf("%s [y/N]: ", e.Prompt)
				answer, err := stdin.ReadString('\n')
				if err != nil {
					// No stdin to answer from; decline so the run can end
					answer = "n"
				}
				accepted := strings.HasPrefix(strings.TrimSpace(strings.ToLower(answer)), "y")
				// The answer can race an emergency stop; a missing
				// pending confirmation is not an error here
				_ = orc.AnswerConfirmation(accepted)
			case *events.RunCompleteEvent:
				return nil
			}
		}
	}
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	viper.SetEnvPrefix("ROLLCALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "rollcall",
		Short: "Attendance tracking with automated Moodle grading",
		Long: `rollcall tracks lesson attendance per course and group and grades the
attendance points into Moodle through a Chrome instance it controls over
the DevTools protocol.

Record who showed up during the lesson, open the assignment's grading
page in the launched browser, and let 'rollcall start' walk the roster.`,
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .rollcall/config.yaml)")
	rootCmd.PersistentFlags().String(FlagCourse, "", "Course name")
	rootCmd.PersistentFlags().String(FlagGroup, "", "Student group")
	rootCmd.PersistentFlags().String(FlagDate, "", "Lesson date (YYYY-MM-DD, default today)")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rollcall %s\n", version)
		},
	}

	// Init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a config file populated with defaults.

By default the file is created at .rollcall/config.yaml in the current
directory. Use --global for ~/.config/rollcall/config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.ProjectConfigDir, config.ProjectConfigFile)
			if viper.GetBool(FlagGlobal) {
				configDir := os.Getenv("XDG_CONFIG_HOME")
				if configDir == "" {
					home, err := os.UserHomeDir()
					if err != nil {
						return fmt.Errorf("find home directory: %w", err)
					}
					configDir = filepath.Join(home, ".config")
				}
				path = filepath.Join(configDir, config.GlobalConfigDir, config.GlobalConfigFile)
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool(FlagGlobal, false, "Write to ~/.config/rollcall/ instead of ./.rollcall/")
	initCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Record command
	recordCmd := &cobra.Command{
		Use:   "record <student-id> <student-name>",
		Short: "Record a student's attendance for today's lesson",
		Long: `Record a student's attendance. The lesson's session is created on the
first record of the day for the configured course and group.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed(FlagCourse) {
				cfg.Course.Name = viper.GetString(FlagCourse)
			}
			if cmd.Flags().Changed(FlagGroup) {
				cfg.Course.Group = viper.GetString(FlagGroup)
			}
			if cfg.Course.Name == "" || cfg.Course.Group == "" {
				return fmt.Errorf("course and group are required (--course/--group flags or config)")
			}

			date, err := parseDate(viper.GetString(FlagDate))
			if err != nil {
				return fmt.Errorf("parse date: %w", err)
			}

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			svc := attendance.NewService(st, cfg, logger)

			sess, err := svc.FindSession(cfg.Course.Name, cfg.Course.Group, date)
			if errors.Is(err, attendance.ErrSessionNotFound) {
				sess, err = svc.StartSession(cfg.Course.Name, cfg.Course.Group, date)
			}
			if err != nil {
				return err
			}

			rec, err := svc.RecordAttendance(sess.ID, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("Recorded %s (%s): %.1f points\n", rec.StudentName, rec.StudentID, rec.TotalPoints())
			return nil
		},
	}

	// Sessions command
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent attendance sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			svc := attendance.NewService(st, cfg, logger)
			sessions, err := svc.Sessions(viper.GetInt(FlagLimit))
			if err != nil {
				return err
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions yet")
				return nil
			}

			for _, s := range sessions {
				line := fmt.Sprintf("%4d  %s %-9s  %s %s",
					s.ID, s.Date, attendance.WeekdayLabel(s.Weekday), s.Course, s.Group)
				if s.AssignmentID != "" {
					line += fmt.Sprintf("  assignment=%s", s.AssignmentID)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	sessionsCmd.Flags().Int(FlagLimit, 20, "Number of sessions to show")
	sessionsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Events command
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent run events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if viper.GetBool(FlagFollow) {
				return tailFollow(cmd.Context(), cfg.Paths.Events)
			}
			return tailLast(cfg.Paths.Events, viper.GetInt(FlagCount))
		},
	}
	eventsCmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	eventsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Start command
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Grade the session's attendance into Moodle",
		Long: `Start an auto-grading run for a session's attendance records.

A Chrome instance is launched with remote debugging enabled. Log into
Moodle in that browser and open the assignment's grading page; the run
binds to the assignment it finds there and walks the roster student by
student. Already-graded records are skipped, so an interrupted run can
simply be started again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// TUI mode: explicit flag > auto-detect from TTY
			tuiEnabled := viper.GetBool(FlagTUI)
			if !cmd.Flags().Changed(FlagTUI) {
				tuiEnabled = term.IsTerminal(int(os.Stdout.Fd()))
			}

			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}

			cfg, err := config.LoadConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Apply CLI flag overrides (only if explicitly set)
			if cmd.Flags().Changed(FlagCourse) {
				cfg.Course.Name = viper.GetString(FlagCourse)
			}
			if cmd.Flags().Changed(FlagGroup) {
				cfg.Course.Group = viper.GetString(FlagGroup)
			}
			if cmd.Flags().Changed(FlagBinary) {
				cfg.Browser.Binary = viper.GetString(FlagBinary)
			}
			if cmd.Flags().Changed(FlagDebugPort) {
				cfg.Browser.DebugPort = viper.GetInt(FlagDebugPort)
			}
			if cmd.Flags().Changed(FlagHeadless) {
				cfg.Browser.Headless = viper.GetBool(FlagHeadless)
			}
			if cmd.Flags().Changed(FlagAutoSave) {
				cfg.Moodle.AutoSave = viper.GetBool(FlagAutoSave)
			}

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			svc := attendance.NewService(st, cfg, logger)

			sess, err := resolveSession(svc, cfg)
			if err != nil {
				return err
			}

			items, err := svc.GradingQueue(sess.ID)
			if err != nil {
				return fmt.Errorf("load grading queue: %w", err)
			}
			if len(items) == 0 {
				return fmt.Errorf("no attendance records for session %d", sess.ID)
			}

			logger.Info("rollcall starting",
				"version", version,
				"session", sess.ID,
				"course", sess.Course,
				"group", sess.Group,
				"students", len(items),
			)

			// Event plumbing
			router := events.NewRouter(events.DefaultBufferSize)

			if dir := filepath.Dir(cfg.Paths.Events); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create log directory: %w", err)
				}
			}
			logSink := events.NewLogSink(cfg.Paths.Events)

			ctx := cmd.Context()
			sinkCtx, sinkCancel := context.WithCancel(ctx)
			defer sinkCancel()

			sinkEvents := router.Subscribe()
			if err := logSink.Start(sinkCtx, sinkEvents); err != nil {
				router.Close()
				return fmt.Errorf("start event log: %w", err)
			}
			defer func() { _ = logSink.Stop() }()

			// TUI mode: redirect logging to a file before anything else
			// writes to stderr
			orcLogger := logger
			var tuiLogResult *TUILoggerResult
			if tuiEnabled {
				tuiLogResult, err = SetupTUILogger(filepath.Dir(cfg.Paths.Log), logLevel, cfg.LogRotation)
				if err != nil {
					router.Close()
					return err
				}
				defer func() { _ = tuiLogResult.Close() }()
				orcLogger = tuiLogResult.Logger
				slog.SetDefault(orcLogger)
			}

			// Browser
			chrome := browser.NewChrome(cfg.Browser, nil, orcLogger)
			if err := chrome.Launch(ctx); err != nil {
				router.Close()
				return fmt.Errorf("launch browser: %w", err)
			}

			wsURL, err := chrome.PageTargetURL(ctx)
			if err != nil {
				_ = chrome.Shutdown()
				router.Close()
				return fmt.Errorf("find page target: %w", err)
			}

			page, err := browser.Dial(ctx, wsURL)
			if err != nil {
				_ = chrome.Shutdown()
				router.Close()
				return fmt.Errorf("connect devtools: %w", err)
			}
			defer func() { _ = page.Close() }()

			routine := moodle.NewRoutine(page, cfg)
			orc := grader.New(cfg, router, svc, chrome, routine.Grade, orcLogger)

			if tuiEnabled {
				tuiEvents := router.SubscribeBuffered(5000)
				defer router.Unsubscribe(tuiEvents)

				app := tui.New(tuiEvents,
					tui.WithOnPause(orc.Pause),
					tui.WithOnResume(orc.Resume),
					tui.WithOnStop(orc.EmergencyStop),
					tui.WithOnQuit(orc.EmergencyStop),
					tui.WithOnConfirm(func(accepted bool) {
						// The answer can race an emergency stop
						_ = orc.AnswerConfirmation(accepted)
					}),
					tui.WithStatsGetter(orchestratorStats{orc}),
				)

				if err := orc.Start(sess.ID, items); err != nil {
					router.Close()
					return err
				}

				tuiErr := app.Run()

				// Ensure the run and the browser are down when the TUI exits
				orc.EmergencyStop()
				orc.Wait()
				router.Close()

				return tuiErr
			}

			// Plain mode: stream events to stdout, answer confirmations
			// on stdin, stop on SIGINT/SIGTERM
			runEvents := router.SubscribeBuffered(1000)
			defer router.Unsubscribe(runEvents)

			if err := orc.Start(sess.ID, items); err != nil {
				router.Close()
				return err
			}

			stdin := bufio.NewReader(os.Stdin)
			err = shutdown.RunWithGracefulShutdown(
				ctx,
				logger,
				30*time.Second,
				func(runCtx context.Context) error {
					return followRun(runCtx, orc, runEvents, stdin)
				},
				func(shutdownCtx context.Context) error {
					orc.EmergencyStop()
					return nil
				},
			)

			orc.EmergencyStop()
			orc.Wait()
			router.Close()

			return err
		},
	}

	startCmd.Flags().Bool(FlagTUI, false, "Enable terminal UI (default: auto-detect)")
	startCmd.Flags().Int64(FlagSession, 0, "Grade a specific session id instead of today's lesson")
	startCmd.Flags().String(FlagBinary, "", "Chrome binary path (default: discover)")
	startCmd.Flags().Int(FlagDebugPort, 0, "Chrome remote debugging port")
	startCmd.Flags().Bool(FlagHeadless, false, "Run Chrome headless")
	startCmd.Flags().Bool(FlagAutoSave, true, "Save each grade immediately in Moodle")
	startCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Register all commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(startCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
