package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adebench/adebench/pkg/agents"
	"github.com/adebench/adebench/pkg/harness"
	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/presenter"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/results/sqlite"
	"github.com/adebench/adebench/pkg/skillset"
	"github.com/adebench/adebench/pkg/tasks"
)

// RunOptions contains all options for the run command. The mapstructure
// tags let per-agent profiles from the config file (agents.<name>.*)
// overlay the defaults.
type RunOptions struct {
	Agent           string        `mapstructure:"agent"`
	Model           string        `mapstructure:"model"`
	SkillSetsFile   string        `mapstructure:"skill_sets_file"`
	SkillSets       []string      `mapstructure:"skill_sets"`
	TasksDir        string        `mapstructure:"tasks_dir"`
	TaskIDs         []string      `mapstructure:"task_ids"`
	DBType          string        `mapstructure:"db_type"`
	ProjectType     string        `mapstructure:"project_type"`
	Status          string        `mapstructure:"status"`
	Output          string        `mapstructure:"output"`
	HintsDir        string        `mapstructure:"hints_dir"`
	SharedConfigDir string        `mapstructure:"shared_config_dir"`
	DBPath          string        `mapstructure:"db_path"`
	Concurrency     int           `mapstructure:"concurrency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DryRun          bool          `mapstructure:"-"`
}

var runOptions = &RunOptions{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a benchmark run",
	Long: `Execute a benchmark run: resolve the requested skill sets for the
chosen agent, scan the task fixtures, and run every (skill set, task)
pair in an isolated container, writing results.json as it goes.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		opts := *runOptions

		if err := applyAgentProfile(cmd, &opts); err != nil {
			return err
		}

		if _, err := agents.ParseName(opts.Agent); err != nil {
			return err
		}

		cfg := harness.Config{
			SkillSetsPath: opts.SkillSetsFile,
			SkillSets:     opts.SkillSets,
			Agent:         opts.Agent,
			Model:         opts.Model,
			TasksDir:      opts.TasksDir,
			TaskFilter: tasks.Filter{
				TaskIDs:     opts.TaskIDs,
				DBType:      opts.DBType,
				ProjectType: opts.ProjectType,
				Status:      opts.Status,
			},
			OutputDir:       opts.Output,
			HintsDir:        opts.HintsDir,
			SharedConfigDir: opts.SharedConfigDir,
			DBPath:          opts.DBPath,
			Concurrency:     opts.Concurrency,
			TaskTimeout:     opts.Timeout,
		}

		plan, err := harness.BuildPlan(ctx, cfg)
		if err != nil {
			return err
		}

		if opts.DryRun {
			printPlan(plan)
			return nil
		}

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}

		var harnessOpts []harness.Option
		if cfg.DBPath != "" {
			store, err := sqlite.NewStore(ctx, cfg.DBPath)
			if err != nil {
				return errors.Wrap(err, "opening results database")
			}
			defer store.Close()
			harnessOpts = append(harnessOpts, harness.WithResultSink(store))
		}

		started := time.Now()
		presenter.Section(fmt.Sprintf("Run %s", plan.RunID))
		presenter.Info(fmt.Sprintf("Agent: %s | Trials: %d", plan.Agent, len(plan.Trials)))

		doc, err := harness.New(cfg, harnessOpts...).Run(ctx, plan)
		if err != nil {
			logger.G(ctx).WithError(err).Error("run aborted")
		}

		printRunSummary(doc, time.Since(started))
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Results written to %s", cfg.OutputDir))
		return nil
	},
}

// applyAgentProfile overlays config-file settings under agents.<name>
// onto the options. Flags the user set explicitly always win.
func applyAgentProfile(cmd *cobra.Command, opts *RunOptions) error {
	profile := viper.GetStringMap("agents." + opts.Agent)
	if len(profile) == 0 {
		return nil
	}

	var overlay RunOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &overlay,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "building agent profile decoder")
	}
	if err := decoder.Decode(profile); err != nil {
		return errors.Wrapf(err, "agent profile 'agents.%s'", opts.Agent)
	}

	if !cmd.Flags().Changed("model") && overlay.Model != "" {
		opts.Model = overlay.Model
	}
	if !cmd.Flags().Changed("timeout") && overlay.Timeout > 0 {
		opts.Timeout = overlay.Timeout
	}
	if !cmd.Flags().Changed("concurrency") && overlay.Concurrency > 0 {
		opts.Concurrency = overlay.Concurrency
	}
	if !cmd.Flags().Changed("shared-config") && overlay.SharedConfigDir != "" {
		opts.SharedConfigDir = overlay.SharedConfigDir
	}
	return nil
}

func printPlan(plan *harness.Plan) {
	presenter.Section(fmt.Sprintf("Plan %s (dry run)", plan.RunID))

	rows := make([][]string, 0, len(plan.Trials))
	for _, trial := range plan.Trials {
		taskIDs := make(map[string]bool)
		for _, unit := range trial.Units {
			taskIDs[unit.Task.TaskID] = true
		}
		rows = append(rows, []string{
			trial.SkillSet.Name,
			trial.ID,
			strconv.Itoa(len(taskIDs)),
			strconv.Itoa(len(trial.Units)),
		})
	}
	presenter.Table([]string{"SKILL SET", "TRIAL", "TASKS", "UNITS"}, rows)
}

func printRunSummary(doc results.RunDocument, elapsed time.Duration) {
	stats := &presenter.RunStats{Duration: elapsed}
	perSet := map[string]*sqlite.SkillSetSummary{}
	var order []string

	for _, r := range doc.Results {
		stats.Trials++
		summary, ok := perSet[r.SkillSet.Name]
		if !ok {
			summary = &sqlite.SkillSetSummary{SkillSet: r.SkillSet.Name}
			perSet[r.SkillSet.Name] = summary
			order = append(order, r.SkillSet.Name)
		}
		summary.Tasks++
		switch r.Status {
		case results.StatusPassed:
			stats.Passed++
			summary.Passed++
		case results.StatusFailed:
			stats.Failed++
			summary.Failed++
		case results.StatusSetupFailed:
			stats.Errored++
			summary.SetupFailed++
		case results.StatusAgentTimeout:
			stats.Errored++
			summary.TimedOut++
		case results.StatusSkipped:
			stats.Skipped++
			summary.Skipped++
		}
	}

	rows := make([][]string, 0, len(order))
	for _, name := range order {
		s := perSet[name]
		rows = append(rows, []string{
			s.SkillSet,
			strconv.Itoa(s.Tasks),
			strconv.Itoa(s.Passed),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.SetupFailed),
			strconv.Itoa(s.TimedOut),
			strconv.Itoa(s.Skipped),
		})
	}
	presenter.Separator()
	presenter.Table([]string{"SKILL SET", "TASKS", "PASSED", "FAILED", "SETUP FAILED", "TIMED OUT", "SKIPPED"}, rows)
	presenter.Stats(stats)
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runOptions.Agent, "agent", "claude", "Agent to benchmark (claude, gemini, codex, none)")
	flags.StringVar(&runOptions.Model, "model", "", "Model the agent CLI should use")
	flags.StringVar(&runOptions.SkillSetsFile, "skill-sets-file", skillset.DefaultConfigPath, "Skill sets YAML document")
	flags.StringSliceVar(&runOptions.SkillSets, "skill-set", nil, "Skill set to run (repeatable; default: document defaults)")
	flags.StringVar(&runOptions.TasksDir, "tasks-dir", "tasks", "Directory containing task fixtures")
	flags.StringSliceVar(&runOptions.TaskIDs, "task-id", nil, "Task id or glob to include (repeatable)")
	flags.StringVar(&runOptions.DBType, "db-type", "", "Keep tasks with a variant for this database type")
	flags.StringVar(&runOptions.ProjectType, "project-type", "", "Keep tasks with a variant for this project type")
	flags.StringVar(&runOptions.Status, "status", "", "Keep tasks with this status")
	flags.StringVar(&runOptions.Output, "output", "results", "Output directory for results.json")
	flags.StringVar(&runOptions.HintsDir, "hints-dir", "", "Previous run's output directory for duration hints")
	flags.StringVar(&runOptions.SharedConfigDir, "shared-config", "", "Directory with per-agent instruction files (CLAUDE.md, ...)")
	flags.StringVar(&runOptions.DBPath, "db-path", "", "SQLite database to mirror results into (empty: results.json only)")
	flags.IntVar(&runOptions.Concurrency, "concurrency", 1, "Number of trials to run at once")
	flags.DurationVar(&runOptions.Timeout, "timeout", 0, "Per-task agent timeout (0: no limit)")
	flags.BoolVar(&runOptions.DryRun, "dry-run", false, "Resolve and print the plan without running anything")
}
