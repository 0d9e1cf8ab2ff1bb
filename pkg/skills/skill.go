// Package skills reads locally checked-out skill directories. Skills are
// packaged as directories containing a SKILL.md file with YAML
// frontmatter naming and describing the skill. The benchmark uses this
// to validate local skill origins before a trial installs them into the
// task container, and to list what an origin provides.
package skills

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description shown in listings
	Directory   string // Full path to the skill directory
	Content     string // Full content of SKILL.md (body, not frontmatter)
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
