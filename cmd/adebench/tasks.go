package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adebench/adebench/pkg/presenter"
	"github.com/adebench/adebench/pkg/tasks"
)

var tasksListOptions struct {
	tasksDir    string
	taskIDs     []string
	dbType      string
	projectType string
	status      string
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect the task fixtures",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks a run would execute",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := tasksListOptions
		scanned, err := tasks.NewScanner(opts.tasksDir).Scan(cmd.Context(), tasks.Filter{
			TaskIDs:     opts.taskIDs,
			DBType:      opts.dbType,
			ProjectType: opts.projectType,
			Status:      opts.status,
		})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(scanned))
		for _, task := range scanned {
			rows = append(rows, []string{
				task.TaskID,
				task.Status,
				task.Difficulty,
				strconv.Itoa(len(task.Prompts)),
				strconv.Itoa(len(task.Variants)),
			})
		}
		presenter.Table([]string{"TASK", "STATUS", "DIFFICULTY", "PROMPTS", "VARIANTS"}, rows)
		presenter.Info("")
		presenter.Success(strconv.Itoa(len(scanned)) + " task(s)")
		return nil
	},
}

func init() {
	flags := tasksListCmd.Flags()
	flags.StringVar(&tasksListOptions.tasksDir, "tasks-dir", "tasks", "Directory containing task fixtures")
	flags.StringSliceVar(&tasksListOptions.taskIDs, "task-id", nil, "Task id or glob to include (repeatable)")
	flags.StringVar(&tasksListOptions.dbType, "db-type", "", "Keep tasks with a variant for this database type")
	flags.StringVar(&tasksListOptions.projectType, "project-type", "", "Keep tasks with a variant for this project type")
	flags.StringVar(&tasksListOptions.status, "status", "", "Keep tasks with this status")

	tasksCmd.AddCommand(tasksListCmd)
}
