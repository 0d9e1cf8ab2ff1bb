// Package tasks discovers and filters benchmark tasks. Each task lives
// in its own directory holding a task.yaml that describes the prompts
// the agent receives and the database/project variants the task supports.
package tasks

import "gopkg.in/yaml.v3"

// Prompt is one prompt variant of a task. The base prompt carries the
// key "base"; alternates produce dotted task identifiers like
// "revenue_rollup.hard".
type Prompt struct {
	Key    string `yaml:"key"`
	Prompt string `yaml:"prompt"`
}

// Variant describes one database/project combination a task can run
// under.
type Variant struct {
	DBType      string `yaml:"db_type"`
	ProjectType string `yaml:"project_type"`
	ProjectName string `yaml:"project_name,omitempty"`
	DBName      string `yaml:"db_name,omitempty"`
}

// SolutionSeed names a table the solution script seeds before the gold
// query runs.
type SolutionSeed struct {
	TableName string `yaml:"table_name"`
	CSVPath   string `yaml:"csv_path,omitempty"`
}

// UnmarshalYAML accepts both the shorthand scalar form (just the table
// name) and the mapping form.
func (s *SolutionSeed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*s = SolutionSeed{TableName: name}
		return nil
	}
	var raw struct {
		TableName string `yaml:"table_name"`
		CSVPath   string `yaml:"csv_path"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = SolutionSeed{TableName: raw.TableName, CSVPath: raw.CSVPath}
	return nil
}

// TaskInfo is the structured metadata of one task, loaded from its
// task.yaml.
type TaskInfo struct {
	TaskID        string         `yaml:"task_id"`
	Status        string         `yaml:"status"`
	Description   string         `yaml:"description"`
	Prompts       []Prompt       `yaml:"prompts"`
	Variants      []Variant      `yaml:"variants"`
	Difficulty    string         `yaml:"difficulty,omitempty"`
	Tags          []string       `yaml:"tags,omitempty"`
	AuthorName    string         `yaml:"author_name,omitempty"`
	AuthorEmail   string         `yaml:"author_email,omitempty"`
	TestSetup     string         `yaml:"test_setup,omitempty"`
	Notes         string         `yaml:"notes,omitempty"`
	SolutionSeeds []SolutionSeed `yaml:"solution_seeds,omitempty"`

	// Dir is the task directory the metadata was loaded from. It is
	// filled by the scanner, not the document.
	Dir string `yaml:"-"`
}

// HasVariant reports whether the task supports the given database and
// project combination.
func (t TaskInfo) HasVariant(dbType, projectType string) bool {
	for _, v := range t.Variants {
		if v.DBType == dbType && v.ProjectType == projectType {
			return true
		}
	}
	return false
}

// PromptID returns the identifier of one prompt of the task: the task
// id itself for the base prompt, the dotted form for alternates. The
// same identifiers key duration hints and result records.
func (t TaskInfo) PromptID(promptKey string) string {
	if promptKey == "" || promptKey == "base" {
		return t.TaskID
	}
	return t.TaskID + "." + promptKey
}
