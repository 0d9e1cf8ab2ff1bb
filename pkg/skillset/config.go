package skillset

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Config is the root of a skill-sets document: the ordered list of skill
// sets available for selection. It is constructed once per run by the
// Loader, held immutably, and queried by the Resolver.
type Config struct {
	Sets []SkillSet `yaml:"sets"`
}

// Names returns the names of all skill sets in document order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Sets))
	for _, s := range c.Sets {
		names = append(names, s.Name)
	}
	return names
}

// Defaults returns every skill set marked default, preserving document
// order so A/B trial ordering is reproducible.
func (c *Config) Defaults() []SkillSet {
	var defaults []SkillSet
	for _, s := range c.Sets {
		if s.Default {
			defaults = append(defaults, s)
		}
	}
	return defaults
}

// ByName returns the skill set with the given name. The boolean reports
// whether it exists.
func (c *Config) ByName(name string) (SkillSet, bool) {
	for _, s := range c.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return SkillSet{}, false
}

// ByNames resolves each requested name in request order. The lookup is
// atomic: when any name is unknown it returns an *UnknownSkillSetError
// listing every missing name, never a partial result.
func (c *Config) ByNames(names []string) ([]SkillSet, error) {
	sets := make([]SkillSet, 0, len(names))
	var missing []string
	for _, name := range names {
		s, ok := c.ByName(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		sets = append(sets, s)
	}
	if len(missing) > 0 {
		return nil, &UnknownSkillSetError{Missing: missing, Available: c.Names()}
	}
	return sets, nil
}

// Validate checks the structural invariants a loaded document must hold:
// every skill set is named, names are unique, skill origins have a
// location, and every MCP server entry has a command. All violations are
// reported together rather than one at a time.
func (c *Config) Validate() error {
	var result *multierror.Error

	seen := make(map[string]bool)
	for i, s := range c.Sets {
		if s.Name == "" {
			result = multierror.Append(result, errors.Errorf("skill set at index %d has no name", i))
			continue
		}
		if seen[s.Name] {
			result = multierror.Append(result, errors.Errorf("duplicate skill set name '%s'", s.Name))
		}
		seen[s.Name] = true

		for j, origin := range s.Skills {
			if origin.Location == "" {
				result = multierror.Append(result, errors.Errorf("skill set '%s': skill origin at index %d has no location", s.Name, j))
			}
		}
		for serverName, server := range s.McpServers {
			if serverName == "" {
				result = multierror.Append(result, errors.Errorf("skill set '%s': MCP server with empty name", s.Name))
			}
			if server.Command == "" {
				result = multierror.Append(result, errors.Errorf("skill set '%s': MCP server '%s' has no command", s.Name, serverName))
			}
		}
	}

	return result.ErrorOrNil()
}
