// Package container runs the browser driver in docker when the suite is
// asked to manage it.
package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tomatool/loginsuite/internal/config"
	"github.com/tomatool/loginsuite/internal/runlog"
)

// DriverName names the driver container in logs and log files.
const DriverName = "driver"

// CheckDockerAvailable verifies that Docker daemon is running and accessible
func CheckDockerAvailable() error {
	cmd := exec.Command("docker", "info")
	if err := cmd.Run(); err != nil {
		return &DockerNotRunningError{}
	}
	return nil
}

// DockerNotRunningError provides helpful instructions for starting Docker
type DockerNotRunningError struct{}

func (e *DockerNotRunningError) Error() string {
	switch runtime.GOOS {
	case "darwin", "windows":
		return `Docker is not running. To fix this:

  1. Open Docker Desktop application
  2. Wait for Docker to start
  3. Run loginsuite again

  Or drop driver.container from loginsuite.yml and point driver.url at a running chromedriver.`

	case "linux":
		return `Docker is not running. To fix this:

  1. Start Docker daemon:
       sudo systemctl start docker

  2. Make sure your user is in the docker group:
       sudo usermod -aG docker $USER
       (log out and back in after this)

  Or drop driver.container from loginsuite.yml and point driver.url at a running chromedriver.`

	default:
		return `Docker is not running. Please start Docker and try again.`
	}
}

// Manager handles the lifecycle of the driver container
type Manager struct {
	cfg       config.DriverContainer
	container testcontainers.Container
	mu        sync.RWMutex
	run       *runlog.Run
	logFile   *os.File
}

// NewManager creates a manager for the configured driver container
func NewManager(cfg config.DriverContainer) *Manager {
	return &Manager{cfg: cfg}
}

// SetRun sets the run directory the container log is written to
func (m *Manager) SetRun(run *runlog.Run) {
	m.run = run
}

// Start starts the driver container and waits until it answers on its status path
func (m *Manager) Start(ctx context.Context) error {
	log.Debug().Str("container", DriverName).Str("image", m.cfg.Image).Msg("starting container")
	startTime := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        m.cfg.Image,
		Env:          m.cfg.Env,
		ExposedPorts: []string{m.cfg.Port},
		WaitingFor:   m.buildWaitStrategy(),

		HostConfigModifier: m.modifyHostConfig,
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}

	m.mu.Lock()
	m.container = container
	m.mu.Unlock()

	log.Debug().
		Str("container", DriverName).
		Dur("duration", time.Since(startTime)).
		Msg("container ready")

	if m.run != nil {
		m.captureContainerLogs(ctx, container)
	}

	return nil
}

// modifyHostConfig sizes /dev/shm; Chrome crashes on docker's 64MB default.
func (m *Manager) modifyHostConfig(hc *dockercontainer.HostConfig) {
	if m.cfg.ShmSizeMB > 0 {
		hc.ShmSize = m.cfg.ShmSizeMB << 20
	}
}

// captureContainerLogs streams container logs to a file
func (m *Manager) captureContainerLogs(ctx context.Context, container testcontainers.Container) {
	logFile, err := m.run.CreateLogFile("container-" + DriverName)
	if err != nil {
		log.Warn().Err(err).Str("container", DriverName).Msg("failed to create container log file")
		return
	}

	m.mu.Lock()
	m.logFile = logFile
	m.mu.Unlock()

	logs, err := container.Logs(ctx)
	if err != nil {
		log.Warn().Err(err).Str("container", DriverName).Msg("failed to get container logs")
		return
	}

	go func() {
		defer logs.Close()
		io.Copy(logFile, logs)
	}()
}

// buildWaitStrategy waits for the driver status endpoint on the exposed port
func (m *Manager) buildWaitStrategy() wait.Strategy {
	timeout := m.cfg.StartupTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	path := m.cfg.WaitPath
	if path == "" {
		path = config.DefaultWaitPath
	}

	return wait.ForHTTP(path).WithPort(nat.Port(m.cfg.Port)).WithStartupTimeout(timeout)
}

func (m *Manager) get() (testcontainers.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.container == nil {
		return nil, fmt.Errorf("container not started: %s", DriverName)
	}
	return m.container, nil
}

// Endpoint returns the driver URL reachable from the host, e.g. http://localhost:55012
func (m *Manager) Endpoint(ctx context.Context) (string, error) {
	container, err := m.get()
	if err != nil {
		return "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("getting container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port(m.cfg.Port))
	if err != nil {
		return "", fmt.Errorf("getting mapped port %s: %w", m.cfg.Port, err)
	}
	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port()), nil
}

// Exec executes a command in the driver container
func (m *Manager) Exec(ctx context.Context, cmd []string) (int, string, error) {
	container, err := m.get()
	if err != nil {
		return 0, "", err
	}

	exitCode, reader, err := container.Exec(ctx, cmd)
	if err != nil {
		return 0, "", err
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		return exitCode, string(output), fmt.Errorf("reading exec output: %w", err)
	}

	return exitCode, string(output), nil
}

// Cleanup stops the container and closes its log file
func (m *Manager) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logFile != nil {
		m.logFile.Close()
		m.logFile = nil
	}

	if m.container != nil {
		log.Debug().Str("container", DriverName).Msg("stopping container")
		if err := m.container.Terminate(ctx); err != nil {
			log.Warn().Err(err).Str("container", DriverName).Msg("failed to stop container")
		}
		m.container = nil
	}
}
