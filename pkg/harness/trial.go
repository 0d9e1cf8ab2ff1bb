// Package harness plans and executes benchmark runs: it invokes the
// skill-set resolver exactly once, fans out one independent trial per
// resolved skill set, and drives each trial through its setup, agent,
// and verification phases against an isolated execution environment.
package harness

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adebench/adebench/pkg/skillset"
	"github.com/adebench/adebench/pkg/tasks"
)

// NewRunID builds a run identifier from the current time and a short
// random suffix, sortable by start time and unique across hosts.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// Unit is one task prompt executed by one trial.
type Unit struct {
	Task   tasks.TaskInfo
	Prompt tasks.Prompt
}

// ID returns the unit's identifier, keyed identically in duration hints
// and result records.
func (u Unit) ID() string {
	return u.Task.PromptID(u.Prompt.Key)
}

// UnitsOf expands a task into its prompt units. A task without prompts
// yields a single base unit prompting with the task description.
func UnitsOf(task tasks.TaskInfo) []Unit {
	if len(task.Prompts) == 0 {
		return []Unit{{Task: task, Prompt: tasks.Prompt{Key: "base", Prompt: task.Description}}}
	}
	units := make([]Unit, 0, len(task.Prompts))
	for _, prompt := range task.Prompts {
		units = append(units, Unit{Task: task, Prompt: prompt})
	}
	return units
}

// Trial is one independent execution of the task list under one
// resolved skill set. Its identifier suffixes the run id with the skill
// set name so parallel A/B outputs never collide.
type Trial struct {
	ID       string
	SkillSet skillset.SkillSet
	Units    []Unit
}

// TrialID derives a trial's unique output namespace.
func TrialID(runID, skillSetName string) string {
	return runID + "__" + skillSetName
}
