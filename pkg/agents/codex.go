package agents

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

type codexAgent struct {
	settings
}

func (a *codexAgent) Name() Name {
	return Codex
}

func (a *codexAgent) ConfigFile() string {
	return "AGENTS.md"
}

func (a *codexAgent) Env() (map[string]string, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	return map[string]string{"OPENAI_API_KEY": key}, nil
}

func (a *codexAgent) Command(prompt string, allowedTools []string) string {
	var b strings.Builder
	b.WriteString("echo 'AGENT RESPONSE: ' && codex exec --full-auto ")
	if a.model != "" {
		b.WriteString("--model ")
		b.WriteString(a.model)
		b.WriteString(" ")
	}
	b.WriteString(shellQuote(prompt))
	return b.String()
}

func (a *codexAgent) OutputComplete(output string) bool {
	return strings.TrimSpace(output) != ""
}

func (a *codexAgent) ParseMetrics(_ string) Metrics {
	return Metrics{}
}
