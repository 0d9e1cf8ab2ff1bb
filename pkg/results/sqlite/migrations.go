package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/db"
)

// Migrations returns the schema migrations of the results database, in
// apply order. Maintenance commands use it to inspect or roll back the
// schema without going through the store.
func Migrations() []db.Migration {
	out := make([]db.Migration, len(migrations))
	copy(out, migrations)
	return out
}

var migrations = []db.Migration{
	{
		Version:     20260815120000,
		Description: "Create trial_results table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS trial_results (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					trial_id TEXT NOT NULL,
					task_id TEXT NOT NULL,
					agent TEXT NOT NULL,
					model TEXT NOT NULL DEFAULT '',
					skill_set TEXT NOT NULL,
					snapshot TEXT NOT NULL DEFAULT '{}',
					status TEXT NOT NULL,
					runtime_ms INTEGER NOT NULL DEFAULT 0,
					started_at TIMESTAMP,
					finished_at TIMESTAMP,
					failure TEXT NOT NULL DEFAULT ''
				)`)
			return errors.Wrap(err, "creating trial_results table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec(`DROP TABLE IF EXISTS trial_results`)
			return err
		},
	},
	{
		Version:     20260815120001,
		Description: "Index trial_results for run and skill-set queries",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE INDEX IF NOT EXISTS idx_trial_results_run ON trial_results(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_trial_results_run_set ON trial_results(run_id, skill_set)`,
				`CREATE INDEX IF NOT EXISTS idx_trial_results_task ON trial_results(task_id)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "creating index")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			statements := []string{
				`DROP INDEX IF EXISTS idx_trial_results_run`,
				`DROP INDEX IF EXISTS idx_trial_results_run_set`,
				`DROP INDEX IF EXISTS idx_trial_results_task`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}
