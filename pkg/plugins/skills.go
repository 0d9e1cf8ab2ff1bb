// Package plugins applies a resolved skill set to a trial's execution
// environment: installing the skills it names and registering its MCP
// servers with the agent CLI. Both handlers are side-effecting
// collaborators of the resolution core and run after resolution has
// already succeeded, so a misconfigured request never reaches them.
package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/skills"
	"github.com/adebench/adebench/pkg/skillset"
)

// SkillsHandler installs the skills a skill set names into the
// execution environment via the skills CLI.
type SkillsHandler struct{}

// NewSkillsHandler creates a skills handler.
func NewSkillsHandler() *SkillsHandler {
	return &SkillsHandler{}
}

// Verify checks every local skill origin before any container work
// starts: the directory must exist and provide the requested skills.
// Remote origins cannot be verified without network access and pass
// through untouched.
func (h *SkillsHandler) Verify(set skillset.SkillSet) error {
	for _, origin := range set.Skills {
		if !origin.IsLocal() {
			continue
		}
		if _, err := skills.VerifyOrigin(origin); err != nil {
			return errors.Wrapf(err, "skill set '%s'", set.Name)
		}
	}
	return nil
}

// Install installs every skill origin of the set into the environment.
// A failing installation is logged and skipped rather than aborting the
// trial: the agent may still complete the task without that origin, and
// the result record will show which configuration it ran under.
func (h *SkillsHandler) Install(ctx context.Context, set skillset.SkillSet, env environ.Environment) error {
	log := logger.G(ctx).WithField("skill_set", set.Name)

	if len(set.Skills) == 0 {
		log.Debug("no skills to install")
		return nil
	}

	for _, origin := range set.Skills {
		cmd := installCommand(origin)
		log.WithField("origin", origin.Location).Info("installing skills")

		result, err := env.Exec(ctx, cmd)
		if err != nil {
			return errors.Wrapf(err, "installing skills from '%s'", origin.Location)
		}
		if !result.Ok() {
			log.WithFields(map[string]interface{}{
				"origin": origin.Location,
				"output": result.Output,
			}).Warn("skills installation failed")
			continue
		}
		log.WithField("origin", origin.Location).Info("skills installed")
	}
	return nil
}

// installCommand builds the skills CLI invocation for one origin.
// -y skips confirmation prompts and -g installs globally so every agent
// in the container picks the skills up.
func installCommand(origin skillset.SkillOrigin) string {
	var b strings.Builder
	fmt.Fprintf(&b, "npx --yes skills add %s -y -g", origin.Location)
	if origin.InstallAll() {
		b.WriteString(" --all")
		return b.String()
	}
	for _, name := range origin.Skills {
		fmt.Fprintf(&b, " --skill %s", name)
	}
	return b.String()
}
