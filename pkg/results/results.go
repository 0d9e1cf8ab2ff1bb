// Package results records benchmark trial outcomes. Each trial writes
// one TrialResult per task; a run's results land in results.json inside
// the run's output directory and optionally in the shared SQLite store
// for cross-run A/B queries.
package results

import (
	"time"

	"github.com/adebench/adebench/pkg/agents"
	"github.com/adebench/adebench/pkg/skillset"
)

// Status is the outcome of one task within a trial.
type Status string

// Trial statuses
const (
	StatusPassed       Status = "passed"
	StatusFailed       Status = "failed"
	StatusSetupFailed  Status = "setup_failed"
	StatusAgentTimeout Status = "agent_timed_out"
	StatusSkipped      Status = "skipped"
)

// SkillSetSnapshot freezes the configuration a trial ran under, so the
// A/B comparison stays interpretable even after the skill-sets document
// changes.
type SkillSetSnapshot struct {
	Name         string   `json:"name"`
	Skills       []string `json:"skills,omitempty"`
	McpServers   []string `json:"mcp_servers,omitempty"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
}

// Snapshot captures the execution-relevant surface of a skill set.
func Snapshot(set skillset.SkillSet) SkillSetSnapshot {
	snapshot := SkillSetSnapshot{
		Name:         set.Name,
		McpServers:   set.ServerNames(),
		AllowedTools: append([]string(nil), set.AllowedTools...),
	}
	for _, origin := range set.Skills {
		snapshot.Skills = append(snapshot.Skills, origin.Location)
	}
	return snapshot
}

// TrialResult is one task outcome within one trial.
type TrialResult struct {
	RunID      string           `json:"run_id"`
	TrialID    string           `json:"trial_id"`
	TaskID     string           `json:"task_id"`
	Agent      string           `json:"agent"`
	Model      string           `json:"model,omitempty"`
	SkillSet   SkillSetSnapshot `json:"skill_set"`
	Status     Status           `json:"status"`
	RuntimeMS  int64            `json:"runtime_ms"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Failure    string           `json:"failure,omitempty"`
	Metrics    agents.Metrics   `json:"metrics,omitempty"`
}

// RunDocument is the shape of a run's results.json.
type RunDocument struct {
	RunID   string        `json:"run_id"`
	Host    HostInfo      `json:"host"`
	Results []TrialResult `json:"results"`
}
