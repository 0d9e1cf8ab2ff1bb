package environ

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/logger"
)

const (
	// DefaultExecTimeout bounds a single command inside the container.
	// Agent invocations can legitimately run for many minutes.
	DefaultExecTimeout = 30 * time.Minute

	// heredocDelimiter terminates WriteFile content inside the container.
	heredocDelimiter = "ADEBENCH_EOF"

	copyAttempts   = 3
	copyRetryDelay = 500 * time.Millisecond
)

// DockerEnvironment executes commands inside a running container via the
// docker CLI.
type DockerEnvironment struct {
	container   string
	workdir     string
	user        string
	execTimeout time.Duration
}

// DockerOption configures a DockerEnvironment
type DockerOption func(*DockerEnvironment)

// WithWorkdir sets the directory commands execute in
func WithWorkdir(dir string) DockerOption {
	return func(d *DockerEnvironment) {
		d.workdir = dir
	}
}

// WithUser sets the user commands execute as
func WithUser(user string) DockerOption {
	return func(d *DockerEnvironment) {
		d.user = user
	}
}

// WithExecTimeout overrides the per-command timeout
func WithExecTimeout(timeout time.Duration) DockerOption {
	return func(d *DockerEnvironment) {
		d.execTimeout = timeout
	}
}

// NewDockerEnvironment creates an environment backed by the named
// container. The container must already be running; lifecycle management
// belongs to the caller.
func NewDockerEnvironment(container string, opts ...DockerOption) *DockerEnvironment {
	env := &DockerEnvironment{
		container:   container,
		workdir:     "/app",
		execTimeout: DefaultExecTimeout,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Name returns the container name
func (d *DockerEnvironment) Name() string {
	return d.container
}

// Workdir returns the directory commands execute in
func (d *DockerEnvironment) Workdir() string {
	return d.workdir
}

func (d *DockerEnvironment) execArgs(command string) []string {
	args := []string{"exec"}
	if d.workdir != "" {
		args = append(args, "-w", d.workdir)
	}
	if d.user != "" {
		args = append(args, "-u", d.user)
	}
	return append(args, d.container, "sh", "-c", command)
}

// Exec runs a shell command inside the container and returns its combined
// output and exit code.
func (d *DockerEnvironment) Exec(ctx context.Context, command string) (ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.execTimeout)
	defer cancel()

	logger.G(ctx).WithFields(map[string]interface{}{
		"container": d.container,
		"command":   truncateForLog(command),
	}).Debug("executing command in container")

	cmd := exec.CommandContext(ctx, "docker", d.execArgs(command)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ExecResult{}, errors.Errorf("command timed out after %s", d.execTimeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return ExecResult{Output: string(output), ExitCode: exitErr.ExitCode()}, nil
		}
		return ExecResult{}, errors.Wrap(err, "failed to run docker exec")
	}

	return ExecResult{Output: string(output)}, nil
}

// WriteFile places content at the given path inside the container using a
// quoted heredoc, so no temporary file crosses the container boundary.
func (d *DockerEnvironment) WriteFile(ctx context.Context, path string, content []byte) error {
	text := string(content)
	if strings.Contains(text, heredocDelimiter) {
		return errors.Errorf("content for %s contains the heredoc delimiter %s", path, heredocDelimiter)
	}

	command := fmt.Sprintf("cat > '%s' << '%s'\n%s\n%s", path, heredocDelimiter, text, heredocDelimiter)
	result, err := d.Exec(ctx, command)
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if !result.Ok() {
		return errors.Errorf("failed to write %s: %s", path, strings.TrimSpace(result.Output))
	}
	return nil
}

// CopyTo copies a local file or directory into the container. Copies are
// retried because docker cp intermittently fails while a container is
// still settling.
func (d *DockerEnvironment) CopyTo(ctx context.Context, src, dst string) error {
	target := fmt.Sprintf("%s:%s", d.container, dst)

	err := retry.Do(
		func() error {
			cmd := exec.CommandContext(ctx, "docker", "cp", src, target)
			output, err := cmd.CombinedOutput()
			if err != nil {
				return errors.Wrapf(err, "docker cp failed: %s", strings.TrimSpace(string(output)))
			}
			return nil
		},
		retry.Attempts(copyAttempts),
		retry.Delay(copyRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithFields(map[string]interface{}{
				"attempt": n + 1,
				"src":     src,
				"dst":     target,
			}).Warn("retrying docker cp")
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", src, target)
	}
	return nil
}

func truncateForLog(command string) string {
	const max = 120
	if len(command) <= max {
		return command
	}
	return command[:max] + "..."
}
