package skillset

import (
	"fmt"
	"strings"
)

// LoadError reports that the skill-sets document could not be loaded:
// the file is missing, the YAML is malformed, or validation failed. It
// is distinct from resolution errors so callers can tell a broken config
// file apart from a bad request against a valid one.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading skill sets from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UnknownSkillSetError reports explicitly requested skill set names that
// do not exist in the configuration. It always names every missing
// request and the full set of available names.
type UnknownSkillSetError struct {
	Missing   []string
	Available []string
}

func (e *UnknownSkillSetError) Error() string {
	label := "skill set"
	if len(e.Missing) > 1 {
		label = "skill sets"
	}
	return fmt.Sprintf("unknown %s %s, available: %s",
		label, quoteList(e.Missing), quoteList(e.Available))
}

// IncompatibleAgentError reports an explicitly requested skill set whose
// agents restriction excludes the current agent.
type IncompatibleAgentError struct {
	SkillSet string
	Agent    string
	Allowed  []string
}

func (e *IncompatibleAgentError) Error() string {
	return fmt.Sprintf("skill set '%s' is not compatible with agent '%s', compatible agents: %s",
		e.SkillSet, e.Agent, quoteList(e.Allowed))
}

// NoCompatibleDefaultsError reports that no default-marked skill set is
// compatible with the current agent and no explicit request was given.
type NoCompatibleDefaultsError struct {
	Agent string
}

func (e *NoCompatibleDefaultsError) Error() string {
	return fmt.Sprintf("no default skill set is compatible with agent '%s'", e.Agent)
}

func quoteList(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	return strings.Join(quoted, ", ")
}
