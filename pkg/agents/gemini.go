package agents

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

type geminiAgent struct {
	settings
}

func (a *geminiAgent) Name() Name {
	return Gemini
}

func (a *geminiAgent) ConfigFile() string {
	return "GEMINI.md"
}

func (a *geminiAgent) Env() (map[string]string, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	return map[string]string{"GEMINI_API_KEY": key}, nil
}

func (a *geminiAgent) Command(prompt string, allowedTools []string) string {
	var b strings.Builder
	b.WriteString("echo 'AGENT RESPONSE: ' && gemini --yolo -p ")
	b.WriteString(shellQuote(prompt))
	if a.model != "" {
		b.WriteString(" --model ")
		b.WriteString(a.model)
	}
	return b.String()
}

// OutputComplete falls back to a non-empty check: the Gemini CLI has no
// structured completion record to look for.
func (a *geminiAgent) OutputComplete(output string) bool {
	return strings.TrimSpace(output) != ""
}

func (a *geminiAgent) ParseMetrics(_ string) Metrics {
	return Metrics{}
}
