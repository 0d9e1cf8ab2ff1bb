package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/skillset"
	"github.com/adebench/adebench/pkg/tasks"
)

func timeMustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

// recorderFactory hands each trial its own Recorder and remembers them
// for assertions.
type recorderFactory struct {
	mu        sync.Mutex
	recorders map[string]*environ.Recorder
	configure func(trialID string, rec *environ.Recorder)
}

func newRecorderFactory() *recorderFactory {
	return &recorderFactory{recorders: make(map[string]*environ.Recorder)}
}

func (f *recorderFactory) factory(_ context.Context, trial Trial) (environ.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := environ.NewRecorder(trial.ID)
	if f.configure != nil {
		f.configure(trial.ID, rec)
	}
	f.recorders[trial.ID] = rec
	return rec, nil
}

func (f *recorderFactory) recorder(trialID string) *environ.Recorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorders[trialID]
}

func testTask(t *testing.T, taskID string) tasks.TaskInfo {
	t.Helper()
	dir := filepath.Join(t.TempDir(), taskID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return tasks.TaskInfo{
		TaskID:      taskID,
		Status:      "ready",
		Description: "a task",
		Prompts:     []tasks.Prompt{{Key: "base", Prompt: "do the thing"}},
		Dir:         dir,
	}
}

func testPlan(t *testing.T, sets ...skillset.SkillSet) *Plan {
	t.Helper()
	task := testTask(t, "task_a")
	trials := make([]Trial, 0, len(sets))
	for _, set := range sets {
		trials = append(trials, Trial{
			ID:       TrialID("run-test", set.Name),
			SkillSet: set,
			Units:    UnitsOf(task),
		})
	}
	return &Plan{RunID: "run-test", Agent: "none", Trials: trials}
}

func TestRunRecordsOneResultPerTrialUnit(t *testing.T) {
	factory := newRecorderFactory()
	outputDir := t.TempDir()

	h := New(Config{OutputDir: outputDir, Concurrency: 2},
		WithEnvironmentFactory(factory.factory))

	plan := testPlan(t,
		skillset.SkillSet{Name: "baseline", Default: true},
		skillset.SkillSet{Name: "with-skills", Default: true,
			Skills: []skillset.SkillOrigin{{Location: "dbt-labs/dbt-agent-skills"}}},
	)

	doc, err := h.Run(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, doc.Results, 2)
	trialIDs := []string{doc.Results[0].TrialID, doc.Results[1].TrialID}
	assert.ElementsMatch(t, []string{"run-test__baseline", "run-test__with-skills"}, trialIDs)
	for _, result := range doc.Results {
		assert.Equal(t, results.StatusPassed, result.Status)
		assert.Equal(t, "task_a", result.TaskID)
	}

	// Trial outputs land in distinct namespaces keyed by skill set.
	persisted, err := results.ReadDocument(outputDir)
	require.NoError(t, err)
	assert.Len(t, persisted.Results, 2)

	// The with-skills trial installed its origin; baseline did not.
	withSkills := factory.recorder("run-test__with-skills")
	require.NotNil(t, withSkills)
	assert.Contains(t, strings.Join(withSkills.Commands(), "\n"), "npx --yes skills add")

	baseline := factory.recorder("run-test__baseline")
	require.NotNil(t, baseline)
	assert.NotContains(t, strings.Join(baseline.Commands(), "\n"), "npx --yes skills add")
}

func TestRunVerifiesAgainstGoldCSV(t *testing.T) {
	task := testTask(t, "task_gold")
	require.NoError(t, os.WriteFile(filepath.Join(task.Dir, "gold.csv"), []byte("id,amount\n1,10\n"), 0o644))

	factory := newRecorderFactory()
	factory.configure = func(trialID string, rec *environ.Recorder) {
		content := "id,amount\n1,10\n"
		if trialID == "run-test__failing" {
			content = "id,amount\n1,99\n"
		}
		rec.Handle(func(cmd string) bool {
			return strings.HasPrefix(cmd, "cat ") && strings.HasSuffix(cmd, "result.csv")
		}, environ.ExecResult{Output: content}, nil)
	}

	h := New(Config{OutputDir: t.TempDir()}, WithEnvironmentFactory(factory.factory))

	plan := &Plan{
		RunID: "run-test",
		Agent: "none",
		Trials: []Trial{
			{ID: "run-test__passing", SkillSet: skillset.SkillSet{Name: "passing"}, Units: UnitsOf(task)},
			{ID: "run-test__failing", SkillSet: skillset.SkillSet{Name: "failing"}, Units: UnitsOf(task)},
		},
	}

	doc, err := h.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, doc.Results, 2)

	byTrial := map[string]results.TrialResult{}
	for _, r := range doc.Results {
		byTrial[r.TrialID] = r
	}

	assert.Equal(t, results.StatusPassed, byTrial["run-test__passing"].Status)
	assert.Equal(t, results.StatusFailed, byTrial["run-test__failing"].Status)
	assert.NotEmpty(t, byTrial["run-test__failing"].Failure)
}

func TestRunRecordsSetupFailure(t *testing.T) {
	task := testTask(t, "task_setup")
	task.TestSetup = "sh setup.sh"

	factory := newRecorderFactory()
	factory.configure = func(_ string, rec *environ.Recorder) {
		rec.Handle(func(cmd string) bool {
			return cmd == "sh setup.sh"
		}, environ.ExecResult{ExitCode: 1, Output: "dbt deps failed"}, nil)
	}

	h := New(Config{OutputDir: t.TempDir()}, WithEnvironmentFactory(factory.factory))

	plan := &Plan{
		RunID: "run-test",
		Agent: "none",
		Trials: []Trial{
			{ID: "run-test__baseline", SkillSet: skillset.SkillSet{Name: "baseline"}, Units: UnitsOf(task)},
		},
	}

	doc, err := h.Run(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, doc.Results, 1)
	assert.Equal(t, results.StatusSetupFailed, doc.Results[0].Status)
	assert.Contains(t, doc.Results[0].Failure, "dbt deps failed")
}

func TestRunRecordsTrialFailureWhenLocalSkillOriginIsBroken(t *testing.T) {
	factory := newRecorderFactory()

	h := New(Config{OutputDir: t.TempDir()}, WithEnvironmentFactory(factory.factory))

	missingDir := filepath.Join(t.TempDir(), "missing-skills")
	plan := testPlan(t, skillset.SkillSet{
		Name:   "broken-local",
		Skills: []skillset.SkillOrigin{{Location: missingDir}},
	})

	doc, err := h.Run(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, doc.Results, 1)
	assert.Equal(t, results.StatusSetupFailed, doc.Results[0].Status)

	// No environment work happened for the broken trial.
	assert.Nil(t, factory.recorder("run-test__broken-local"))
}

type captureSink struct {
	mu      sync.Mutex
	results []results.TrialResult
}

func (s *captureSink) InsertTrialResult(_ context.Context, result results.TrialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func TestRunMirrorsResultsIntoSink(t *testing.T) {
	factory := newRecorderFactory()
	sink := &captureSink{}

	h := New(Config{OutputDir: t.TempDir()},
		WithEnvironmentFactory(factory.factory),
		WithResultSink(sink))

	plan := testPlan(t, skillset.SkillSet{Name: "baseline"})

	_, err := h.Run(context.Background(), plan)
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.results, 1)
	assert.Equal(t, "run-test__baseline", sink.results[0].TrialID)
}

func TestRunCopiesAgentConfigFile(t *testing.T) {
	sharedDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sharedDir, "CLAUDE.md"), []byte("# instructions"), 0o644))
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	factory := newRecorderFactory()
	factory.configure = func(_ string, rec *environ.Recorder) {
		// Claude's JSON output mode ends with a result record.
		rec.Handle(func(cmd string) bool {
			return strings.Contains(cmd, "claude --output-format json")
		}, environ.ExecResult{Output: `{"type":"result","subtype":"success","duration_ms":1200,"num_turns":3}`}, nil)
	}

	h := New(Config{OutputDir: t.TempDir(), SharedConfigDir: sharedDir},
		WithEnvironmentFactory(factory.factory))

	task := testTask(t, "task_a")
	plan := &Plan{
		RunID: "run-test",
		Agent: "claude",
		Trials: []Trial{
			{ID: "run-test__baseline", SkillSet: skillset.SkillSet{Name: "baseline"}, Units: UnitsOf(task)},
		},
	}

	doc, err := h.Run(context.Background(), plan)
	require.NoError(t, err)

	rec := factory.recorder("run-test__baseline")
	require.NotNil(t, rec)

	copies := rec.Copies()
	require.NotEmpty(t, copies)
	assert.Equal(t, filepath.Join(sharedDir, "CLAUDE.md"), copies[0][0])
	assert.Equal(t, "/app/CLAUDE.md", copies[0][1])

	envFile, ok := rec.File("/tmp/agent.env")
	require.True(t, ok)
	assert.Contains(t, string(envFile), "export ANTHROPIC_API_KEY='test-key'")

	require.Len(t, doc.Results, 1)
	assert.Equal(t, int64(1200), doc.Results[0].Metrics.RuntimeMS)
	assert.Equal(t, int64(1200), doc.Results[0].RuntimeMS)
}
