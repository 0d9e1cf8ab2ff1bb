// Package agents adapts the coding-agent CLIs the benchmark can drive.
// Each adapter knows how to invoke its CLI non-interactively inside the
// task container, which per-repo config file the agent reads, which
// environment variables it needs, and how to recognize and parse the
// agent's structured output.
package agents

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Name identifies a coding agent implementation
type Name string

// Supported agents
const (
	Claude Name = "claude"
	Gemini Name = "gemini"
	Codex  Name = "codex"
	// None runs no agent at all, used to exercise the harness itself.
	None Name = "none"
)

// KnownNames returns the names of all supported agents
func KnownNames() []string {
	return []string{string(Claude), string(Gemini), string(Codex), string(None)}
}

// ParseName validates an agent name from user input
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case Claude, Gemini, Codex, None:
		return Name(s), nil
	default:
		return "", errors.Errorf("unknown agent '%s', available: %s", s, strings.Join(KnownNames(), ", "))
	}
}

// Metrics holds the usage numbers extracted from one agent invocation.
// Agents without structured output report zeros.
type Metrics struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CacheTokens  int64   `json:"cache_tokens"`
	NumTurns     int     `json:"num_turns"`
	RuntimeMS    int64   `json:"runtime_ms"`
	CostUSD      float64 `json:"cost_usd"`
	ModelName    string  `json:"model_name,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Agent adapts one coding-agent CLI for benchmark runs
type Agent interface {
	// Name returns the agent identifier used in skill set compatibility checks
	Name() Name

	// ConfigFile returns the per-repo instruction file the agent reads
	// (e.g. CLAUDE.md), empty when the agent has none.
	ConfigFile() string

	// Env returns the environment variables the agent invocation needs.
	// Missing required credentials are an error so runs fail before any
	// container work starts.
	Env() (map[string]string, error)

	// Command builds the shell command that runs one task prompt with
	// the given tool allowlist applied.
	Command(prompt string, allowedTools []string) string

	// OutputComplete reports whether the captured output shows the
	// invocation actually finished, as opposed to being cut off.
	OutputComplete(output string) bool

	// ParseMetrics extracts usage metrics from the captured output.
	ParseMetrics(output string) Metrics
}

type settings struct {
	model string
}

// Option configures an agent adapter
type Option func(*settings)

// WithModel pins the model the agent CLI should use
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// New creates the adapter for the named agent
func New(name Name, opts ...Option) (Agent, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	switch name {
	case Claude:
		return &claudeAgent{settings: s}, nil
	case Gemini:
		return &geminiAgent{settings: s}, nil
	case Codex:
		return &codexAgent{settings: s}, nil
	case None:
		return &noneAgent{}, nil
	default:
		return nil, errors.Errorf("unknown agent '%s', available: %s", name, strings.Join(KnownNames(), ", "))
	}
}

// shellQuote wraps s in single quotes for safe interpolation into an
// sh -c command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// EnvSetupScript renders environment variables as export lines, sorted
// by key, suitable for sourcing before the agent command runs.
func EnvSetupScript(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, "export "+k+"="+shellQuote(env[k]))
	}
	return strings.Join(lines, "\n")
}
