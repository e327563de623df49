package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/npratt/rollcall/internal/config"
)

// portProbeRange is how many consecutive ports are tried when the
// configured debug port is taken.
const portProbeRange = 10

// Chrome manages a Chrome process with remote debugging enabled.
type Chrome struct {
	config config.BrowserConfig
	runner ProcessRunner
	logger *slog.Logger

	mu       sync.Mutex
	port     int
	launched bool
	waitErr  chan error
}

// NewChrome creates a Chrome manager. A nil runner gets the real
// os/exec implementation.
func NewChrome(cfg config.BrowserConfig, runner ProcessRunner, logger *slog.Logger) *Chrome {
	if runner == nil {
		runner = NewExecProcessRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chrome{
		config:  cfg,
		runner:  runner,
		logger:  logger,
		waitErr: make(chan error, 1),
	}
}

// Launch starts Chrome and blocks until its DevTools endpoint answers
// or the launch timeout expires.
func (c *Chrome) Launch(ctx context.Context) error {
	c.mu.Lock()
	if c.launched {
		c.mu.Unlock()
		return fmt.Errorf("browser already launched")
	}
	c.launched = true
	c.mu.Unlock()

	binary := c.config.Binary
	if binary == "" {
		found, err := discoverBinary()
		if err != nil {
			return err
		}
		binary = found
	}

	port, err := pickPort(c.config.DebugPort)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.port = port
	c.mu.Unlock()

	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(port),
		"--no-first-run",
		"--no-default-browser-check",
	}
	if c.config.ProfileDir != "" {
		args = append(args, "--user-data-dir="+c.config.ProfileDir)
	}
	if c.config.Headless {
		args = append(args, "--headless=new")
	}

	c.logger.Info("launching browser", "binary", binary, "debug_port", port)
	if err := c.runner.Start(ctx, binary, args...); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	go func() {
		c.waitErr <- c.runner.Wait()
	}()

	timeout := c.config.LaunchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if err := c.waitReady(ctx, timeout); err != nil {
		_ = c.runner.Kill()
		return err
	}

	c.logger.Info("browser ready", "debug_port", port)
	return nil
}

// DebugPort returns the port the DevTools endpoint listens on.
func (c *Chrome) DebugPort() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// waitReady polls the DevTools version endpoint until it answers.
func (c *Chrome) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", c.DebugPort())

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-c.waitErr:
			return fmt.Errorf("browser exited during startup: %v", err)
		case <-time.After(200 * time.Millisecond):
		}

		resp, err := http.Get(url)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("browser did not become ready within %s", timeout)
}

// devtoolsTarget is one entry from the /json/list endpoint.
type devtoolsTarget struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// PageTargetURL returns the websocket URL of the first open page.
func (c *Chrome) PageTargetURL(ctx context.Context) (string, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d/json/list", c.DebugPort())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list devtools targets: %w", err)
	}
	defer resp.Body.Close()

	var targets []devtoolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", fmt.Errorf("decode devtools targets: %w", err)
	}

	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, nil
		}
	}
	return "", fmt.Errorf("no page target available")
}

// Shutdown kills the browser process. Safe to call before Launch or
// multiple times.
func (c *Chrome) Shutdown() error {
	c.mu.Lock()
	launched := c.launched
	c.mu.Unlock()

	if !launched {
		return nil
	}

	c.logger.Info("shutting down browser")
	if err := c.runner.Kill(); err != nil {
		return err
	}

	// Reap the process; a kill surfaces as a non-nil exit error.
	select {
	case <-c.waitErr:
	case <-time.After(5 * time.Second):
	}
	return nil
}

// chromeCandidates are the binary names tried during discovery, in order.
func chromeCandidates() []string {
	if runtime.GOOS == "darwin" {
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	}
	return []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"chrome",
	}
}

// discoverBinary finds an installed Chrome or Chromium.
func discoverBinary() (string, error) {
	for _, candidate := range chromeCandidates() {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium binary found; set browser.binary in the config")
}

// pickPort returns the first free port at or after the preferred one.
func pickPort(preferred int) (int, error) {
	if preferred <= 0 {
		preferred = 9222
	}
	for port := preferred; port < preferred+portProbeRange; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free debug port in range %d-%d", preferred, preferred+portProbeRange-1)
}
