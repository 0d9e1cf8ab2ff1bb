package harness

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/skillset"
	"github.com/adebench/adebench/pkg/tasks"
	"github.com/adebench/adebench/pkg/telemetry"
)

// Config describes one benchmark run.
type Config struct {
	// SkillSetsPath is the skill-sets document the resolver works over.
	SkillSetsPath string

	// SkillSets is the explicit skill-set request. Empty means use the
	// configured defaults.
	SkillSets []string

	// Agent is the agent identifier the run executes under.
	Agent string

	// Model optionally pins the model the agent CLI uses.
	Model string

	// TasksDir holds the task fixtures; TaskFilter narrows the scan.
	TasksDir   string
	TaskFilter tasks.Filter

	// OutputDir receives results.json and per-trial logs.
	OutputDir string

	// HintsDir optionally points at a previous run's output directory,
	// whose results order this run's tasks longest-first.
	HintsDir string

	// SharedConfigDir holds the per-agent instruction files (CLAUDE.md,
	// GEMINI.md, AGENTS.md) copied into each trial's environment.
	SharedConfigDir string

	// DBPath optionally mirrors results into the shared SQLite store.
	DBPath string

	// Concurrency bounds how many trials run at once. Zero means one.
	Concurrency int

	// TaskTimeout bounds one agent invocation. Zero means no limit.
	TaskTimeout time.Duration
}

// Plan is the fully resolved shape of a run, produced before any
// container work begins so configuration errors abort early.
type Plan struct {
	RunID  string
	Agent  string
	Model  string
	Trials []Trial
}

// BuildPlan loads the skill-sets document, resolves the request for the
// configured agent, scans the task fixtures, and fans the resolved sets
// out into trials with longest-first task ordering. Every configuration
// error surfaces here, before a single container is touched.
func BuildPlan(ctx context.Context, cfg Config) (*Plan, error) {
	var plan *Plan
	err := telemetry.WithSpan(ctx, "harness.plan", func(ctx context.Context) error {
		config, err := skillset.NewLoader(cfg.SkillSetsPath).Load(ctx)
		if err != nil {
			return err
		}

		sets, err := skillset.NewResolver(config).Resolve(cfg.SkillSets, cfg.Agent)
		if err != nil {
			return err
		}

		scanned, err := tasks.NewScanner(cfg.TasksDir).Scan(ctx, cfg.TaskFilter)
		if err != nil {
			return err
		}

		var units []Unit
		for _, task := range scanned {
			units = append(units, UnitsOf(task)...)
		}
		units = OrderUnits(units, results.LoadDurationHints(ctx, cfg.HintsDir))

		runID := NewRunID(time.Now())
		trials := make([]Trial, 0, len(sets))
		for _, set := range sets {
			trials = append(trials, Trial{
				ID:       TrialID(runID, set.Name),
				SkillSet: set,
				Units:    units,
			})
		}

		logger.G(ctx).WithFields(map[string]interface{}{
			"run_id": runID,
			"trials": len(trials),
			"units":  len(units),
		}).Info("planned benchmark run")

		plan = &Plan{RunID: runID, Agent: cfg.Agent, Model: cfg.Model, Trials: trials}
		return nil
	}, attribute.String("agent", cfg.Agent))
	if err != nil {
		return nil, err
	}
	return plan, nil
}
