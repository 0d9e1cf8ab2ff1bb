package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/adebench/adebench/pkg/skillset"
)

const skillFileName = "SKILL.md"

// Discovery finds skills in configured directories. Each immediate
// subdirectory holding a SKILL.md with valid frontmatter is one skill.
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets the directories to scan
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		if len(dirs) == 0 {
			return errors.New("at least one skill directory must be specified")
		}
		d.skillDirs = dirs
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if len(d.skillDirs) == 0 {
		return nil, errors.New("no skill directories configured")
	}

	return d, nil
}

// DiscoverSkills finds all available skills from configured directories.
// The first directory providing a name wins.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, skills)
	}

	return skills, nil
}

func (d *Discovery) discoverSkillsFromDir(dir string, skills map[string]*Skill) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillPath := filepath.Join(entryPath, skillFileName)
		skill, err := d.loadSkill(skillPath)
		if err != nil {
			continue
		}

		if _, exists := skills[skill.Name]; !exists {
			skill.Directory = entryPath
			skills[skill.Name] = skill
		}
	}
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return skill, nil
}

// ListSkillNames returns the names of all available skills, sorted
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// loadSkill loads a single skill from its SKILL.md file
func (d *Discovery) loadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	bodyContent := extractBodyContent(string(content))

	return &Skill{
		Name:        name,
		Description: description,
		Content:     bodyContent,
	}, nil
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !bytes.HasPrefix([]byte(content), []byte("---")) {
		return content
	}

	lines := bytes.Split([]byte(content), []byte("\n"))
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if string(bytes.TrimSpace(lines[i])) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	body := bytes.Join(lines[frontmatterEnd+1:], []byte("\n"))
	return string(bytes.TrimLeft(body, "\n"))
}

// VerifyOrigin checks a local skill origin: the directory must exist and
// every explicitly requested skill must be present. It returns the names
// the origin provides.
func VerifyOrigin(origin skillset.SkillOrigin) ([]string, error) {
	if !origin.IsLocal() {
		return nil, errors.Errorf("origin '%s' is not a local directory", origin.Location)
	}

	discovery, err := NewDiscovery(WithSkillDirs(origin.Location))
	if err != nil {
		return nil, err
	}

	available, err := discovery.ListSkillNames()
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, errors.Errorf("no skills found under '%s'", origin.Location)
	}

	if !origin.InstallAll() {
		byName := make(map[string]bool, len(available))
		for _, name := range available {
			byName[name] = true
		}
		for _, requested := range origin.Skills {
			if !byName[requested] {
				return nil, errors.Errorf("skill '%s' not found under '%s', available: %v",
					requested, origin.Location, available)
			}
		}
	}

	return available, nil
}
