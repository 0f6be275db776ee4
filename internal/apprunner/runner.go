// Package apprunner starts the application serving the login page as a local
// process and waits until the login page answers.
package apprunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tomatool/loginsuite/internal/config"
	"github.com/tomatool/loginsuite/internal/runlog"
)

const (
	maxLogLines = 100
	pollEvery   = 200 * time.Millisecond
	stopGrace   = 5 * time.Second
)

// Runner manages the application under test
type Runner struct {
	config   config.TargetApp
	readyURL string

	cmd  *exec.Cmd
	done chan struct{}
	// exitErr is valid once done is closed
	exitErr error
	streams sync.WaitGroup

	logLines []string
	logMu    sync.Mutex
	logFile  *os.File
}

// NewRunner creates a runner that considers the app ready once readyURL
// answers with a non-error status.
func NewRunner(cfg config.TargetApp, readyURL string) *Runner {
	return &Runner{config: cfg, readyURL: readyURL}
}

// SetRun sends the app output to app.log in the run directory
func (r *Runner) SetRun(run *runlog.Run) {
	if run == nil {
		return
	}
	f, err := run.CreateLogFile("app")
	if err != nil {
		log.Warn().Err(err).Msg("failed to create app log file")
		return
	}
	r.logFile = f
}

// Start launches the command and blocks until the app is ready, the process
// exits, or the ready timeout passes.
func (r *Runner) Start(ctx context.Context) error {
	parts := strings.Fields(r.config.Command)
	if len(parts) == 0 {
		return fmt.Errorf("app command is required")
	}

	r.cmd = exec.CommandContext(ctx, parts[0], parts[1:]...)
	r.cmd.Dir = r.config.WorkDir
	setProcessGroup(r.cmd)
	r.cmd.Cancel = func() error { return signalGroup(r.cmd.Process, syscall.SIGKILL) }
	r.cmd.WaitDelay = stopGrace
	r.cmd.Env = os.Environ()
	for k, v := range r.config.Env {
		r.cmd.Env = append(r.cmd.Env, k+"="+v)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	r.cmd.Stdout = stdoutW
	r.cmd.Stderr = stderrW

	log.Debug().Str("command", r.config.Command).Msg("starting app process")
	if err := r.cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return fmt.Errorf("starting app: %w", err)
	}

	r.streams.Add(2)
	go r.streamLogs(stdoutR, "stdout")
	go r.streamLogs(stderrR, "stderr")

	r.done = make(chan struct{})
	go func() {
		r.exitErr = r.cmd.Wait()
		stdoutW.Close()
		stderrW.Close()
		close(r.done)
	}()

	start := time.Now()
	if err := r.waitForReady(ctx); err != nil {
		r.Stop()
		return fmt.Errorf("app not ready: %w", err)
	}

	log.Info().
		Str("command", r.config.Command).
		Int("pid", r.cmd.Process.Pid).
		Dur("duration", time.Since(start)).
		Msg("app ready")
	return nil
}

func (r *Runner) streamLogs(pipe io.Reader, source string) {
	defer r.streams.Done()

	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		r.logMu.Lock()
		r.logLines = append(r.logLines, line)
		if len(r.logLines) > maxLogLines {
			r.logLines = r.logLines[1:]
		}
		if r.logFile != nil {
			fmt.Fprintf(r.logFile, "[%s] %s\n", source, line)
		}
		r.logMu.Unlock()

		if r.config.ShowLogs {
			log.Info().Str("source", source).Msg(line)
		}
	}
}

// waitForReady polls readyURL until it answers below 400
func (r *Runner) waitForReady(ctx context.Context) error {
	timeout := r.config.ReadyTimeout
	if timeout <= 0 {
		timeout = config.DefaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		if r.ping(ctx, client) {
			return nil
		}

		select {
		case <-r.done:
			return fmt.Errorf("app exited before it was ready: %v", r.exitErr)
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", r.readyURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Runner) ping(ctx context.Context, client *http.Client) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.readyURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}

// Stop terminates the process: SIGTERM first, SIGKILL after a grace period.
// It is safe to call more than once.
func (r *Runner) Stop() error {
	defer r.closeLog()

	if r.cmd == nil || r.cmd.Process == nil || r.done == nil {
		return nil
	}

	select {
	case <-r.done:
		return nil
	default:
	}

	log.Debug().Int("pid", r.cmd.Process.Pid).Msg("stopping app process")
	if err := signalGroup(r.cmd.Process, syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Msg("failed to send SIGTERM, trying SIGKILL")
		if err := r.kill(); err != nil {
			return fmt.Errorf("killing app process: %w", err)
		}
	}

	select {
	case <-r.done:
	case <-time.After(stopGrace):
		r.kill()
		<-r.done
	}
	return nil
}

func (r *Runner) kill() error {
	if err := signalGroup(r.cmd.Process, syscall.SIGKILL); err != nil {
		return r.cmd.Process.Kill()
	}
	return nil
}

func (r *Runner) closeLog() {
	if r.done != nil {
		select {
		case <-r.done:
			r.streams.Wait()
		default:
		}
	}

	r.logMu.Lock()
	defer r.logMu.Unlock()
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
}

// Exited reports whether the process has ended
func (r *Runner) Exited() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// RecentLogs returns the most recent n output lines
func (r *Runner) RecentLogs(n int) []string {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	if n <= 0 || len(r.logLines) == 0 {
		return nil
	}

	start := len(r.logLines) - n
	if start < 0 {
		start = 0
	}

	result := make([]string, len(r.logLines)-start)
	copy(result, r.logLines[start:])
	return result
}
