package environ

import (
	"context"
	"sync"
)

// Recorder is an in-memory Environment for tests. It records every
// command, written file, and copy in order, and replays scripted results
// for commands matching registered handlers.
type Recorder struct {
	mu sync.Mutex

	name    string
	workdir string

	commands []string
	files    map[string][]byte
	copies   [][2]string

	handlers []recorderHandler
}

type recorderHandler struct {
	match  func(command string) bool
	result ExecResult
	err    error
}

// NewRecorder creates a recorder posing as the named environment.
func NewRecorder(name string) *Recorder {
	return &Recorder{
		name:    name,
		workdir: "/app",
		files:   make(map[string][]byte),
	}
}

// Name returns the recorder's environment name
func (r *Recorder) Name() string {
	return r.name
}

// Workdir returns the recorder's working directory
func (r *Recorder) Workdir() string {
	return r.workdir
}

// Handle registers a scripted result for commands the matcher accepts.
// Handlers are consulted in registration order; the first match wins.
func (r *Recorder) Handle(match func(command string) bool, result ExecResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, recorderHandler{match: match, result: result, err: err})
}

// Exec records the command and returns the first scripted result whose
// matcher accepts it, or a successful empty result.
func (r *Recorder) Exec(_ context.Context, command string) (ExecResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, command)
	for _, h := range r.handlers {
		if h.match(command) {
			return h.result, h.err
		}
	}
	return ExecResult{}, nil
}

// WriteFile records the file content under its path.
func (r *Recorder) WriteFile(_ context.Context, path string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[path] = append([]byte(nil), content...)
	return nil
}

// CopyTo records the copy as a src/dst pair.
func (r *Recorder) CopyTo(_ context.Context, src, dst string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.copies = append(r.copies, [2]string{src, dst})
	return nil
}

// Commands returns the executed commands in order.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// File returns the content written to the given path.
func (r *Recorder) File(path string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.files[path]
	return content, ok
}

// Copies returns the recorded src/dst pairs in order.
func (r *Recorder) Copies() [][2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]string(nil), r.copies...)
}
