// Package skillset provides the configuration model and resolution logic
// for selecting which capability bundles an agent runs under. A skill set
// names the skills to install, the MCP servers to register, and the tools
// the agent is allowed to call; the resolver turns an explicit request or
// the configured defaults into the definitive ordered list of sets for a
// benchmark run.
package skillset

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// McpServerConfig describes how to launch one MCP server: the command to
// run, its arguments, and the environment handed to the process.
type McpServerConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// AgentFilter restricts which agents a skill set may run under. The zero
// value places no restriction. A filter unmarshalled from an explicit
// list restricts the set to exactly those agents, so an empty list means
// compatible with no agent at all.
type AgentFilter struct {
	restricted bool
	agents     []string
}

// RestrictTo returns a filter allowing only the given agents.
func RestrictTo(agents ...string) AgentFilter {
	return AgentFilter{restricted: true, agents: append([]string(nil), agents...)}
}

// Restricted reports whether the filter names an explicit agent list.
func (f AgentFilter) Restricted() bool {
	return f.restricted
}

// Agents returns the allowed agent names, nil when unrestricted.
func (f AgentFilter) Agents() []string {
	if !f.restricted {
		return nil
	}
	return append([]string(nil), f.agents...)
}

// Allows reports whether the given agent passes the filter.
func (f AgentFilter) Allows(agent string) bool {
	if !f.restricted {
		return true
	}
	for _, a := range f.agents {
		if a == agent {
			return true
		}
	}
	return false
}

// UnmarshalYAML distinguishes an omitted or null agents key (no
// restriction) from an explicit list (restriction to that list).
func (f *AgentFilter) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = AgentFilter{}
		return nil
	}
	var agents []string
	if err := node.Decode(&agents); err != nil {
		return err
	}
	*f = AgentFilter{restricted: true, agents: agents}
	return nil
}

// MarshalYAML renders the filter back to its document form.
func (f AgentFilter) MarshalYAML() (interface{}, error) {
	if !f.restricted {
		return nil, nil
	}
	if f.agents == nil {
		return []string{}, nil
	}
	return f.agents, nil
}

// SkillOrigin identifies where skills are installed from: a GitHub
// repository ("owner/repo") or a local directory. An empty Skills list
// installs every skill the origin provides.
type SkillOrigin struct {
	Location string   `yaml:"location"`
	Skills   []string `yaml:"skills,omitempty"`
}

// UnmarshalYAML accepts both the shorthand scalar form ("owner/repo")
// and the mapping form with an explicit skill selection.
func (o *SkillOrigin) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var location string
		if err := node.Decode(&location); err != nil {
			return err
		}
		*o = SkillOrigin{Location: location}
		return nil
	}
	var raw struct {
		Location string   `yaml:"location"`
		Skills   []string `yaml:"skills"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*o = SkillOrigin{Location: raw.Location, Skills: raw.Skills}
	return nil
}

// MarshalYAML renders the origin back to its most compact document form.
func (o SkillOrigin) MarshalYAML() (interface{}, error) {
	if len(o.Skills) == 0 {
		return o.Location, nil
	}
	return struct {
		Location string   `yaml:"location"`
		Skills   []string `yaml:"skills"`
	}{Location: o.Location, Skills: o.Skills}, nil
}

// InstallAll reports whether every skill in the origin should be installed.
func (o SkillOrigin) InstallAll() bool {
	return len(o.Skills) == 0
}

// IsLocal reports whether the origin points at a directory on disk rather
// than a remote repository.
func (o SkillOrigin) IsLocal() bool {
	return strings.HasPrefix(o.Location, "/") ||
		strings.HasPrefix(o.Location, "./") ||
		strings.HasPrefix(o.Location, "../") ||
		strings.HasPrefix(o.Location, "~")
}

// SkillSet is the unit of configuration selection: a named bundle of
// skills, MCP servers, and tool grants, optionally restricted to specific
// agents and optionally part of the default A/B baseline.
type SkillSet struct {
	Name         string                     `yaml:"name"`
	Description  string                     `yaml:"description,omitempty"`
	Default      bool                       `yaml:"default,omitempty"`
	Agents       AgentFilter                `yaml:"agents,omitempty"`
	Skills       []SkillOrigin              `yaml:"skills,omitempty"`
	McpServers   map[string]McpServerConfig `yaml:"mcp_servers,omitempty"`
	AllowedTools []string                   `yaml:"allowed_tools,omitempty"`
}

// CompatibleWith reports whether this skill set may run under the given
// agent. A set without an agents restriction is compatible with every
// agent.
func (s SkillSet) CompatibleWith(agent string) bool {
	return s.Agents.Allows(agent)
}

// ServerNames returns the MCP server names in sorted order so that
// registration and result metadata are reproducible across runs.
func (s SkillSet) ServerNames() []string {
	names := make([]string, 0, len(s.McpServers))
	for name := range s.McpServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchesTool reports whether the tool name is covered by the set's
// allowed_tools entries. Entries are glob patterns, so "mcp__dbt__*"
// covers every tool a dbt MCP server exposes. Patterns that fail to
// compile fall back to literal comparison. An empty allowlist covers
// nothing.
func (s SkillSet) MatchesTool(tool string) bool {
	for _, pattern := range s.AllowedTools {
		g, err := glob.Compile(pattern)
		if err != nil {
			if pattern == tool {
				return true
			}
			continue
		}
		if g.Match(tool) {
			return true
		}
	}
	return false
}
