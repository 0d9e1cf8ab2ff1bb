package tasks

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/adebench/adebench/pkg/logger"
)

// Filter narrows a scan to matching tasks. Zero values place no
// restriction.
type Filter struct {
	// TaskIDs keeps only tasks whose id matches one of the entries.
	// Entries may be exact ids or glob patterns ("customer_*").
	TaskIDs []string

	// DBType keeps tasks with a variant for this database type.
	DBType string

	// ProjectType keeps tasks with a variant for this project type.
	ProjectType string

	// Status keeps tasks with this status (e.g. "ready").
	Status string
}

// Scanner discovers tasks under a tasks directory.
type Scanner struct {
	tasksDir string
}

// NewScanner creates a scanner over the given tasks directory.
func NewScanner(tasksDir string) *Scanner {
	return &Scanner{tasksDir: tasksDir}
}

// TasksDir returns the directory the scanner reads from.
func (s *Scanner) TasksDir() string {
	return s.tasksDir
}

// Scan loads every task.yaml one directory level below the tasks dir
// and returns the tasks passing the filter, sorted by task id. A
// directory whose task.yaml cannot be parsed is logged and skipped so
// one broken fixture never blocks a whole run.
func (s *Scanner) Scan(ctx context.Context, filter Filter) ([]TaskInfo, error) {
	log := logger.G(ctx).WithField("tasks_dir", s.tasksDir)

	if _, err := os.Stat(s.tasksDir); err != nil {
		return nil, errors.Wrapf(err, "tasks directory '%s'", s.tasksDir)
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(s.tasksDir, "*", "task.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "discovering task files")
	}
	sort.Strings(matches)

	var tasks []TaskInfo
	for _, taskFile := range matches {
		task, err := loadTask(taskFile)
		if err != nil {
			log.WithField("file", taskFile).WithError(err).Warn("skipping unparseable task")
			continue
		}

		if !matchesFilter(task, filter) {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID < tasks[j].TaskID })

	log.WithField("count", len(tasks)).Info("scanned tasks")
	return tasks, nil
}

func loadTask(taskFile string) (TaskInfo, error) {
	data, err := os.ReadFile(taskFile)
	if err != nil {
		return TaskInfo{}, err
	}

	var task TaskInfo
	if err := yaml.Unmarshal(data, &task); err != nil {
		return TaskInfo{}, err
	}
	if task.TaskID == "" {
		return TaskInfo{}, errors.New("task.yaml has no task_id")
	}

	task.Dir = filepath.Dir(taskFile)
	return task, nil
}

func matchesFilter(task TaskInfo, filter Filter) bool {
	if len(filter.TaskIDs) > 0 && !matchesAnyID(task.TaskID, filter.TaskIDs) {
		return false
	}
	if filter.Status != "" && task.Status != filter.Status {
		return false
	}
	if filter.DBType != "" || filter.ProjectType != "" {
		if !hasMatchingVariant(task, filter.DBType, filter.ProjectType) {
			return false
		}
	}
	return true
}

func matchesAnyID(taskID string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == taskID {
			return true
		}
		if ok, err := doublestar.Match(pattern, taskID); err == nil && ok {
			return true
		}
	}
	return false
}

func hasMatchingVariant(task TaskInfo, dbType, projectType string) bool {
	for _, v := range task.Variants {
		if (dbType == "" || v.DBType == dbType) &&
			(projectType == "" || v.ProjectType == projectType) {
			return true
		}
	}
	return false
}
