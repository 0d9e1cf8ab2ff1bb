// Package sqlite persists trial results in the shared SQLite database,
// giving the results CLI and the web UI a queryable history across runs.
package sqlite

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/adebench/adebench/pkg/db"
	"github.com/adebench/adebench/pkg/results"
)

// Store reads and writes trial results.
type Store struct {
	db *sqlx.DB
}

// NewStore opens the results database at the given path and brings its
// schema up to date.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "migrating results database")
	}

	return &Store{db: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// jsonField persists any JSON-marshallable value in a TEXT column.
type jsonField[T any] struct {
	Data T
}

func (j *jsonField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.Errorf("cannot scan %T into jsonField", value)
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, &j.Data)
}

func (j jsonField[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

type trialResultRecord struct {
	RunID      string                              `db:"run_id"`
	TrialID    string                              `db:"trial_id"`
	TaskID     string                              `db:"task_id"`
	Agent      string                              `db:"agent"`
	Model      string                              `db:"model"`
	SkillSet   string                              `db:"skill_set"`
	Snapshot   jsonField[results.SkillSetSnapshot] `db:"snapshot"`
	Status     string                              `db:"status"`
	RuntimeMS  int64                               `db:"runtime_ms"`
	StartedAt  time.Time                           `db:"started_at"`
	FinishedAt time.Time                           `db:"finished_at"`
	Failure    string                              `db:"failure"`
}

// InsertTrialResult records one trial result.
func (s *Store) InsertTrialResult(ctx context.Context, result results.TrialResult) error {
	record := trialResultRecord{
		RunID:      result.RunID,
		TrialID:    result.TrialID,
		TaskID:     result.TaskID,
		Agent:      result.Agent,
		Model:      result.Model,
		SkillSet:   result.SkillSet.Name,
		Snapshot:   jsonField[results.SkillSetSnapshot]{Data: result.SkillSet},
		Status:     string(result.Status),
		RuntimeMS:  result.RuntimeMS,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Failure:    result.Failure,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO trial_results (
			run_id, trial_id, task_id, agent, model, skill_set, snapshot,
			status, runtime_ms, started_at, finished_at, failure
		) VALUES (
			:run_id, :trial_id, :task_id, :agent, :model, :skill_set, :snapshot,
			:status, :runtime_ms, :started_at, :finished_at, :failure
		)`, record)
	return errors.Wrap(err, "inserting trial result")
}

// RunInfo summarizes one run for listings.
type RunInfo struct {
	RunID     string    `db:"run_id" json:"run_id"`
	Agent     string    `db:"agent" json:"agent"`
	Trials    int       `db:"trials" json:"trials"`
	Results   int       `db:"results" json:"results"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	// MIN(started_at) would come back as raw text: the driver's
	// TIMESTAMP conversion applies to column selects only, not to
	// aggregate expressions. The start time is loaded per run as a
	// plain column select instead.
	var runs []RunInfo
	err := s.db.SelectContext(ctx, &runs, `
		SELECT run_id,
		       MIN(agent) AS agent,
		       COUNT(DISTINCT trial_id) AS trials,
		       COUNT(*) AS results
		FROM trial_results
		GROUP BY run_id
		ORDER BY MIN(started_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}

	for i := range runs {
		err := s.db.GetContext(ctx, &runs[i].StartedAt, `
			SELECT started_at FROM trial_results
			WHERE run_id = ?
			ORDER BY started_at
			LIMIT 1`, runs[i].RunID)
		if err != nil {
			return nil, errors.Wrapf(err, "loading start time of run '%s'", runs[i].RunID)
		}
	}
	return runs, nil
}

// SkillSetSummary aggregates one skill set's outcomes within a run, the
// unit of A/B comparison.
type SkillSetSummary struct {
	SkillSet     string `db:"skill_set" json:"skill_set"`
	Tasks        int    `db:"tasks" json:"tasks"`
	Passed       int    `db:"passed" json:"passed"`
	Failed       int    `db:"failed" json:"failed"`
	SetupFailed  int    `db:"setup_failed" json:"setup_failed"`
	TimedOut     int    `db:"timed_out" json:"timed_out"`
	Skipped      int    `db:"skipped" json:"skipped"`
	MedianTimeMS int64  `db:"-" json:"median_time_ms"`
}

// RunSummary returns per-skill-set outcome counts for one run, ordered
// by skill set name.
func (s *Store) RunSummary(ctx context.Context, runID string) ([]SkillSetSummary, error) {
	var summaries []SkillSetSummary
	err := s.db.SelectContext(ctx, &summaries, `
		SELECT skill_set,
		       COUNT(*) AS tasks,
		       SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) AS passed,
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) AS failed,
		       SUM(CASE WHEN status = 'setup_failed' THEN 1 ELSE 0 END) AS setup_failed,
		       SUM(CASE WHEN status = 'agent_timed_out' THEN 1 ELSE 0 END) AS timed_out,
		       SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END) AS skipped
		FROM trial_results
		WHERE run_id = ?
		GROUP BY skill_set
		ORDER BY skill_set`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "summarizing run '%s'", runID)
	}

	for i := range summaries {
		median, err := s.medianRuntime(ctx, runID, summaries[i].SkillSet)
		if err != nil {
			return nil, err
		}
		summaries[i].MedianTimeMS = median
	}
	return summaries, nil
}

func (s *Store) medianRuntime(ctx context.Context, runID, skillSet string) (int64, error) {
	var runtimes []int64
	err := s.db.SelectContext(ctx, &runtimes, `
		SELECT runtime_ms FROM trial_results
		WHERE run_id = ? AND skill_set = ?
		ORDER BY runtime_ms`, runID, skillSet)
	if err != nil {
		return 0, errors.Wrap(err, "loading runtimes")
	}
	if len(runtimes) == 0 {
		return 0, nil
	}
	return runtimes[len(runtimes)/2], nil
}

// RunResults returns every result of one run ordered by trial then task.
func (s *Store) RunResults(ctx context.Context, runID string) ([]results.TrialResult, error) {
	var records []trialResultRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT run_id, trial_id, task_id, agent, model, skill_set, snapshot,
		       status, runtime_ms, started_at, finished_at, failure
		FROM trial_results
		WHERE run_id = ?
		ORDER BY trial_id, task_id`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading results for run '%s'", runID)
	}

	out := make([]results.TrialResult, 0, len(records))
	for _, r := range records {
		out = append(out, results.TrialResult{
			RunID:      r.RunID,
			TrialID:    r.TrialID,
			TaskID:     r.TaskID,
			Agent:      r.Agent,
			Model:      r.Model,
			SkillSet:   r.Snapshot.Data,
			Status:     results.Status(r.Status),
			RuntimeMS:  r.RuntimeMS,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Failure:    r.Failure,
		})
	}
	return out, nil
}

// ImportRun inserts every result of a run document, used to backfill
// the store from a results.json written by a run with no database.
func (s *Store) ImportRun(ctx context.Context, doc results.RunDocument) error {
	for _, result := range doc.Results {
		if err := s.InsertTrialResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
