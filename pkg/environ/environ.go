// Package environ abstracts the execution environment a benchmark trial
// runs in. Setup steps (installing skills, registering MCP servers,
// writing agent config files) and the agent invocation itself all go
// through the Environment interface, so the harness never talks to
// Docker directly and tests can substitute a recorder.
package environ

import "context"

// ExecResult carries the combined output and exit code of one command.
type ExecResult struct {
	Output   string
	ExitCode int
}

// Ok reports whether the command exited successfully.
func (r ExecResult) Ok() bool {
	return r.ExitCode == 0
}

// Environment is where trial commands run: a Docker container in real
// runs, an in-memory recorder in tests.
type Environment interface {
	// Name identifies the environment in logs and results.
	Name() string

	// Workdir returns the directory commands execute in.
	Workdir() string

	// Exec runs a shell command and returns its combined output. A
	// non-zero exit code comes back in the result, not as an error;
	// the error covers failing to run the command at all.
	Exec(ctx context.Context, command string) (ExecResult, error)

	// WriteFile places content at the given path inside the environment.
	WriteFile(ctx context.Context, path string, content []byte) error

	// CopyTo copies a local file or directory into the environment.
	CopyTo(ctx context.Context, src, dst string) error
}
