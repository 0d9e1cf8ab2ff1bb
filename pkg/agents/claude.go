package agents

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// defaultClaudeTools is the allowlist applied when a skill set grants no
// explicit tools.
var defaultClaudeTools = []string{"Bash", "Edit", "Write", "NotebookEdit", "WebFetch", "mcp__dbt"}

type claudeAgent struct {
	settings
}

func (a *claudeAgent) Name() Name {
	return Claude
}

func (a *claudeAgent) ConfigFile() string {
	return "CLAUDE.md"
}

func (a *claudeAgent) Env() (map[string]string, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	return map[string]string{"ANTHROPIC_API_KEY": key}, nil
}

func (a *claudeAgent) Command(prompt string, allowedTools []string) string {
	tools := allowedTools
	if len(tools) == 0 {
		tools = defaultClaudeTools
	}

	var b strings.Builder
	b.WriteString("echo 'AGENT RESPONSE: ' && claude --output-format json -p ")
	b.WriteString(shellQuote(prompt))
	if a.model != "" {
		b.WriteString(" --model ")
		b.WriteString(a.model)
	}
	b.WriteString(" --allowedTools ")
	b.WriteString(strings.Join(tools, " "))
	return b.String()
}

// OutputComplete looks for the trailing result record Claude Code emits
// in JSON output mode. Output without it means the invocation was cut
// off before finishing.
func (a *claudeAgent) OutputComplete(output string) bool {
	_, ok := a.resultLine(output)
	return ok
}

type claudeUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

type claudeResult struct {
	Type       string                     `json:"type"`
	Subtype    string                     `json:"subtype"`
	IsError    bool                       `json:"is_error"`
	DurationMS int64                      `json:"duration_ms"`
	NumTurns   int                        `json:"num_turns"`
	TotalCost  float64                    `json:"total_cost_usd"`
	Usage      claudeUsage                `json:"usage"`
	ModelUsage map[string]json.RawMessage `json:"modelUsage"`
	Result     string                     `json:"result"`
}

func (a *claudeAgent) resultLine(output string) (claudeResult, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var result claudeResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			continue
		}
		if result.Type == "result" {
			return result, true
		}
	}
	return claudeResult{}, false
}

func (a *claudeAgent) ParseMetrics(output string) Metrics {
	result, ok := a.resultLine(output)
	if !ok {
		return Metrics{}
	}

	metrics := Metrics{
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		CacheTokens:  result.Usage.CacheCreationInputTokens + result.Usage.CacheReadInputTokens,
		NumTurns:     result.NumTurns,
		RuntimeMS:    result.DurationMS,
		CostUSD:      result.TotalCost,
	}

	if len(result.ModelUsage) > 0 {
		models := make([]string, 0, len(result.ModelUsage))
		for model := range result.ModelUsage {
			models = append(models, model)
		}
		sort.Strings(models)
		metrics.ModelName = models[0]
	}

	if result.IsError || (result.Subtype != "" && result.Subtype != "success") {
		if strings.Contains(strings.ToLower(result.Result), "quota") ||
			strings.Contains(strings.ToLower(result.Result), "rate limit") {
			metrics.Error = "quota_exceeded"
		} else {
			metrics.Error = result.Subtype
		}
	}

	return metrics
}
