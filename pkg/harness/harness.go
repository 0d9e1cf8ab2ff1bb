package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/adebench/adebench/pkg/agents"
	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/fuzzy"
	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/plugins"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/telemetry"
)

const (
	agentEnvFile = "/tmp/agent.env"

	completionAttempts = 5
	completionDelay    = 2 * time.Second
)

// EnvFactory creates the isolated execution environment one trial runs
// in. Trials never share an environment.
type EnvFactory func(ctx context.Context, trial Trial) (environ.Environment, error)

// ResultSink receives every trial result as it is produced, in addition
// to the run's results.json.
type ResultSink interface {
	InsertTrialResult(ctx context.Context, result results.TrialResult) error
}

// Harness executes a planned run.
type Harness struct {
	cfg    Config
	envFor EnvFactory
	sink   ResultSink

	skills *plugins.SkillsHandler
	mcp    *plugins.McpHandler
}

// Option configures a Harness.
type Option func(*Harness)

// WithEnvironmentFactory overrides how trial environments are created.
func WithEnvironmentFactory(factory EnvFactory) Option {
	return func(h *Harness) {
		h.envFor = factory
	}
}

// WithResultSink mirrors every result into the given sink.
func WithResultSink(sink ResultSink) Option {
	return func(h *Harness) {
		h.sink = sink
	}
}

// New creates a harness for the given run configuration. By default
// each trial runs in a Docker container named after the trial id.
func New(cfg Config, opts ...Option) *Harness {
	h := &Harness{
		cfg: cfg,
		envFor: func(_ context.Context, trial Trial) (environ.Environment, error) {
			return environ.NewDockerEnvironment(trial.ID), nil
		},
		skills: plugins.NewSkillsHandler(),
		mcp:    plugins.NewMcpHandler(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes every trial of the plan, bounded by the configured
// concurrency, and returns the accumulated run document. Trial failures
// are recorded per task rather than aborting the whole run; the error
// covers infrastructure failures only.
func (h *Harness) Run(ctx context.Context, plan *Plan) (results.RunDocument, error) {
	writer := results.NewWriter(plan.RunID, h.cfg.OutputDir)

	concurrency := h.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, trial := range plan.Trials {
		trial := trial
		g.Go(func() error {
			return h.runTrial(gctx, plan, trial, writer)
		})
	}

	if err := g.Wait(); err != nil {
		return writer.Document(), err
	}
	return writer.Document(), nil
}

func (h *Harness) runTrial(ctx context.Context, plan *Plan, trial Trial, writer *results.Writer) error {
	ctx = logger.WithTrial(ctx, plan.RunID, trial.ID, "")
	log := logger.G(ctx)

	return telemetry.WithSpan(ctx, "harness.trial", func(ctx context.Context) error {
		agent, err := agents.New(agents.Name(plan.Agent), agents.WithModel(plan.Model))
		if err != nil {
			return err
		}

		// Local skill origins are verified before the environment
		// exists: a broken fixture must not cost a container start.
		if err := h.skills.Verify(trial.SkillSet); err != nil {
			return h.recordTrialFailure(ctx, plan, trial, writer, results.StatusSetupFailed, err)
		}

		env, err := h.envFor(ctx, trial)
		if err != nil {
			return h.recordTrialFailure(ctx, plan, trial, writer, results.StatusSetupFailed, err)
		}

		if err := h.setupTrial(ctx, trial, agent, env); err != nil {
			return h.recordTrialFailure(ctx, plan, trial, writer, results.StatusSetupFailed, err)
		}

		for _, unit := range trial.Units {
			result := h.runUnit(logger.WithTrial(ctx, plan.RunID, trial.ID, unit.ID()), plan, trial, unit, agent, env)
			if err := h.record(ctx, writer, result); err != nil {
				return err
			}
		}

		log.WithField("units", len(trial.Units)).Info("trial finished")
		return nil
	}, attribute.String("trial_id", trial.ID))
}

// setupTrial applies the trial's skill set to a fresh environment:
// agent credentials, the agent's instruction file, skill installation,
// and MCP registration, in that order. MCP registration uses the
// agent's own CLI and is skipped for the no-op agent.
func (h *Harness) setupTrial(ctx context.Context, trial Trial, agent agents.Agent, env environ.Environment) error {
	agentEnv, err := agent.Env()
	if err != nil {
		return err
	}
	script := agents.EnvSetupScript(agentEnv)
	if err := env.WriteFile(ctx, agentEnvFile, []byte(script+"\n")); err != nil {
		return errors.Wrap(err, "writing agent env file")
	}

	if file := agent.ConfigFile(); file != "" && h.cfg.SharedConfigDir != "" {
		local := filepath.Join(h.cfg.SharedConfigDir, file)
		if _, err := os.Stat(local); err == nil {
			if err := env.CopyTo(ctx, local, filepath.Join(env.Workdir(), file)); err != nil {
				return errors.Wrapf(err, "copying %s", file)
			}
		} else {
			logger.G(ctx).WithField("file", local).Warn("agent config file not found")
		}
	}

	if err := h.skills.Install(ctx, trial.SkillSet, env); err != nil {
		return err
	}

	if agent.Name() != agents.None {
		if err := h.mcp.Configure(ctx, trial.SkillSet, string(agent.Name()), env); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) runUnit(ctx context.Context, plan *Plan, trial Trial, unit Unit, agent agents.Agent, env environ.Environment) results.TrialResult {
	result := results.TrialResult{
		RunID:     plan.RunID,
		TrialID:   trial.ID,
		TaskID:    unit.ID(),
		Agent:     plan.Agent,
		Model:     plan.Model,
		SkillSet:  results.Snapshot(trial.SkillSet),
		StartedAt: time.Now().UTC(),
	}

	err := telemetry.WithSpan(ctx, "harness.task", func(ctx context.Context) error {
		if h.cfg.TaskTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.cfg.TaskTimeout)
			defer cancel()
		}

		if err := h.setupTask(ctx, unit, env); err != nil {
			result.Status = results.StatusSetupFailed
			result.Failure = err.Error()
			return nil
		}

		output, err := h.execAgent(ctx, unit, agent, trial, env)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				result.Status = results.StatusAgentTimeout
				result.Failure = fmt.Sprintf("agent did not finish within %s", h.cfg.TaskTimeout)
				return nil
			}
			result.Status = results.StatusFailed
			result.Failure = err.Error()
			return nil
		}

		result.Metrics = agent.ParseMetrics(output)
		h.verifyUnit(ctx, unit, env, &result)
		return nil
	}, attribute.String("task_id", unit.ID()))
	if err != nil {
		result.Status = results.StatusFailed
		result.Failure = err.Error()
	}

	result.FinishedAt = time.Now().UTC()
	result.RuntimeMS = result.FinishedAt.Sub(result.StartedAt).Milliseconds()
	if result.Metrics.RuntimeMS > 0 {
		result.RuntimeMS = result.Metrics.RuntimeMS
	}
	return result
}

// setupTask copies the task fixture into the environment and runs its
// setup command when the fixture declares one.
func (h *Harness) setupTask(ctx context.Context, unit Unit, env environ.Environment) error {
	if err := env.CopyTo(ctx, unit.Task.Dir, env.Workdir()); err != nil {
		return errors.Wrap(err, "copying task fixture")
	}

	if unit.Task.TestSetup != "" {
		setupResult, err := env.Exec(ctx, unit.Task.TestSetup)
		if err != nil {
			return errors.Wrap(err, "running task setup")
		}
		if !setupResult.Ok() {
			return errors.Errorf("task setup exited %d: %s", setupResult.ExitCode, setupResult.Output)
		}
	}
	return nil
}

// execAgent runs the agent command with its output teed to a log file,
// then polls the log until the agent's completion marker appears. The
// polling covers CLIs that detach from the exec before flushing their
// final structured record.
func (h *Harness) execAgent(ctx context.Context, unit Unit, agent agents.Agent, trial Trial, env environ.Environment) (string, error) {
	logPath := fmt.Sprintf("/tmp/%s.log", unit.ID())
	command := fmt.Sprintf(". %s 2>/dev/null; { %s; } > %s 2>&1; cat %s",
		agentEnvFile, agent.Command(unit.Prompt.Prompt, trial.SkillSet.AllowedTools), logPath, logPath)

	execResult, err := env.Exec(ctx, command)
	if err != nil {
		return "", errors.Wrap(err, "running agent")
	}

	output := execResult.Output
	if agent.OutputComplete(output) {
		return output, nil
	}

	err = retry.Do(
		func() error {
			tail, err := env.Exec(ctx, "cat "+logPath)
			if err != nil {
				return err
			}
			if !agent.OutputComplete(tail.Output) {
				return errors.New("agent output incomplete")
			}
			output = tail.Output
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(completionAttempts),
		retry.Delay(completionDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrap(err, "waiting for agent completion")
	}
	return output, nil
}

// verifyUnit compares the result table the agent produced against the
// task's gold CSV when the fixture ships one. Tasks without a gold file
// pass on agent completion alone.
func (h *Harness) verifyUnit(ctx context.Context, unit Unit, env environ.Environment, result *results.TrialResult) {
	goldPath := goldFile(unit)
	if goldPath == "" {
		result.Status = results.StatusPassed
		return
	}

	goldData, err := os.ReadFile(goldPath)
	if err != nil {
		result.Status = results.StatusFailed
		result.Failure = fmt.Sprintf("reading gold file: %v", err)
		return
	}
	gold, err := fuzzy.ReadCSV(strings.NewReader(string(goldData)))
	if err != nil {
		result.Status = results.StatusFailed
		result.Failure = fmt.Sprintf("parsing gold file: %v", err)
		return
	}

	resultPath := filepath.Join(env.Workdir(), "result.csv")
	catResult, err := env.Exec(ctx, "cat "+resultPath)
	if err != nil || !catResult.Ok() {
		result.Status = results.StatusFailed
		result.Failure = fmt.Sprintf("no result table at %s", resultPath)
		return
	}
	produced, err := fuzzy.ReadCSV(strings.NewReader(catResult.Output))
	if err != nil {
		result.Status = results.StatusFailed
		result.Failure = fmt.Sprintf("parsing result table: %v", err)
		return
	}

	report := fuzzy.Compare(gold, produced)
	if !report.Match {
		result.Status = results.StatusFailed
		result.Failure = report.Reason
		logger.G(ctx).WithField("diff", report.Diff).Debug("fuzzy comparison failed")
		return
	}
	result.Status = results.StatusPassed
}

// goldFile returns the gold CSV for a unit: a per-prompt file under
// gold/ wins over the task-level gold.csv. Empty when the task has no
// gold answer.
func goldFile(unit Unit) string {
	perPrompt := filepath.Join(unit.Task.Dir, "gold", unit.ID()+".csv")
	if _, err := os.Stat(perPrompt); err == nil {
		return perPrompt
	}
	taskLevel := filepath.Join(unit.Task.Dir, "gold.csv")
	if _, err := os.Stat(taskLevel); err == nil {
		return taskLevel
	}
	return ""
}

// recordTrialFailure records one failed result per unit of a trial
// whose setup never completed, so the A/B table still shows the trial.
func (h *Harness) recordTrialFailure(ctx context.Context, plan *Plan, trial Trial, writer *results.Writer, status results.Status, cause error) error {
	logger.G(ctx).WithError(cause).Error("trial setup failed")

	now := time.Now().UTC()
	for _, unit := range trial.Units {
		result := results.TrialResult{
			RunID:      plan.RunID,
			TrialID:    trial.ID,
			TaskID:     unit.ID(),
			Agent:      plan.Agent,
			Model:      plan.Model,
			SkillSet:   results.Snapshot(trial.SkillSet),
			Status:     status,
			StartedAt:  now,
			FinishedAt: now,
			Failure:    cause.Error(),
		}
		if err := h.record(ctx, writer, result); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) record(ctx context.Context, writer *results.Writer, result results.TrialResult) error {
	if err := writer.Append(result); err != nil {
		return err
	}
	if h.sink != nil {
		if err := h.sink.InsertTrialResult(ctx, result); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to mirror result into store")
		}
	}
	return nil
}
