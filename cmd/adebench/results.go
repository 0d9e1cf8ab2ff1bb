package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/adebench/adebench/pkg/db"
	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/presenter"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/results/sqlite"
)

var resultsDBPath string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect recorded benchmark results",
}

var showFull bool

var resultsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show recent runs, or one run's per-skill-set summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := sqlite.NewStore(ctx, resultsDatabasePath())
		if err != nil {
			return errors.Wrap(err, "opening results database")
		}
		defer store.Close()

		if len(args) == 0 {
			runs, err := store.ListRuns(ctx, 20)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunID,
					run.Agent,
					strconv.Itoa(run.Trials),
					strconv.Itoa(run.Results),
					run.StartedAt.Format("2006-01-02 15:04:05"),
				})
			}
			presenter.Table([]string{"RUN", "AGENT", "TRIALS", "RESULTS", "STARTED"}, rows)
			return nil
		}

		runID := args[0]
		summary, err := store.RunSummary(ctx, runID)
		if err != nil {
			return err
		}
		if len(summary) == 0 {
			return errors.Errorf("run '%s' not found", runID)
		}

		presenter.Section(runID)
		rows := make([][]string, 0, len(summary))
		for _, s := range summary {
			rows = append(rows, []string{
				s.SkillSet,
				strconv.Itoa(s.Tasks),
				strconv.Itoa(s.Passed),
				strconv.Itoa(s.Failed),
				strconv.Itoa(s.SetupFailed),
				strconv.Itoa(s.TimedOut),
				strconv.Itoa(s.Skipped),
				fmt.Sprintf("%dms", s.MedianTimeMS),
			})
		}
		presenter.Table([]string{"SKILL SET", "TASKS", "PASSED", "FAILED", "SETUP FAILED", "TIMED OUT", "SKIPPED", "MEDIAN TIME"}, rows)

		if showFull {
			trials, err := store.RunResults(ctx, runID)
			if err != nil {
				return err
			}
			presenter.Separator()
			rows := make([][]string, 0, len(trials))
			for _, trial := range trials {
				rows = append(rows, []string{
					trial.TaskID,
					trial.SkillSet.Name,
					string(trial.Status),
					fmt.Sprintf("%dms", trial.RuntimeMS),
					trial.Failure,
				})
			}
			presenter.Table([]string{"TASK", "SKILL SET", "STATUS", "TIME", "FAILURE"}, rows)
		}
		return nil
	},
}

var resultsImportCmd = &cobra.Command{
	Use:   "import <output-dir>",
	Short: "Import a run's results.json into the results database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := results.ReadDocument(args[0])
		if err != nil {
			return err
		}

		store, err := sqlite.NewStore(ctx, resultsDatabasePath())
		if err != nil {
			return errors.Wrap(err, "opening results database")
		}
		defer store.Close()

		if err := store.ImportRun(ctx, doc); err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Imported %d result(s) from run %s", len(doc.Results), doc.RunID))
		return nil
	},
}

var resultsWatchCmd = &cobra.Command{
	Use:   "watch <output-dir>",
	Short: "Follow a run's results.json as trials complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "creating file watcher")
		}
		defer watcher.Close()

		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watching '%s'", dir)
		}

		printProgress(dir)
		resultsFile := filepath.Join(dir, results.FileName)

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name != resultsFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					printProgress(dir)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.G(ctx).WithError(err).Warn("watch error")
			}
		}
	},
}

var resultsDbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the results database schema",
}

var resultsDbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := db.Open(ctx, resultsDatabasePath())
		if err != nil {
			return errors.Wrap(err, "opening results database")
		}
		defer database.Close()

		runner := db.NewMigrationRunner(database)
		versions, err := runner.GetAppliedVersions(ctx)
		if err != nil {
			return err
		}
		applied := make(map[int64]bool, len(versions))
		for _, v := range versions {
			applied[v] = true
		}

		rows := make([][]string, 0)
		for _, m := range sqlite.Migrations() {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			rows = append(rows, []string{strconv.FormatInt(m.Version, 10), m.Description, state})
		}
		presenter.Table([]string{"VERSION", "DESCRIPTION", "STATE"}, rows)
		return nil
	},
}

var resultsDbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the most recent schema migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := db.Open(ctx, resultsDatabasePath())
		if err != nil {
			return errors.Wrap(err, "opening results database")
		}
		defer database.Close()

		runner := db.NewMigrationRunner(database)
		if err := runner.Rollback(ctx, sqlite.Migrations()); err != nil {
			return err
		}
		presenter.Success("Rolled back the latest migration")
		return nil
	},
}

func printProgress(dir string) {
	doc, err := results.ReadDocument(dir)
	if err != nil {
		presenter.Info("waiting for results...")
		return
	}

	var passed, failed, other int
	for _, r := range doc.Results {
		switch r.Status {
		case results.StatusPassed:
			passed++
		case results.StatusFailed:
			failed++
		default:
			other++
		}
	}
	presenter.Info(fmt.Sprintf("[%s] %d result(s): %d passed, %d failed, %d other",
		doc.RunID, len(doc.Results), passed, failed, other))
}

// resultsDatabasePath resolves the database path from the flag or the
// default location under the user's home directory.
func resultsDatabasePath() string {
	if resultsDBPath != "" {
		return resultsDBPath
	}
	path, err := db.DefaultDBPath()
	if err != nil {
		return "results.db"
	}
	return path
}

func init() {
	resultsCmd.PersistentFlags().StringVar(&resultsDBPath, "db-path", "", "SQLite results database (default $HOME/.adebench/results.db)")
	resultsShowCmd.Flags().BoolVar(&showFull, "full", false, "Also list every trial result of the run")

	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsImportCmd)
	resultsCmd.AddCommand(resultsWatchCmd)
	resultsDbCmd.AddCommand(resultsDbStatusCmd)
	resultsDbCmd.AddCommand(resultsDbRollbackCmd)
	resultsCmd.AddCommand(resultsDbCmd)
}
