package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/skillset"
)

func TestSkillsHandlerInstallAll(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewSkillsHandler()

	set := skillset.SkillSet{
		Name:   "with-skills",
		Skills: []skillset.SkillOrigin{{Location: "dbt-labs/dbt-agent-skills"}},
	}

	require.NoError(t, handler.Install(context.Background(), set, rec))

	commands := rec.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, "npx --yes skills add dbt-labs/dbt-agent-skills -y -g --all", commands[0])
}

func TestSkillsHandlerInstallNamedSkills(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewSkillsHandler()

	set := skillset.SkillSet{
		Name: "selective",
		Skills: []skillset.SkillOrigin{
			{Location: "dbt-labs/dbt-agent-skills", Skills: []string{"dbt-build", "dbt-test"}},
		},
	}

	require.NoError(t, handler.Install(context.Background(), set, rec))

	commands := rec.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t,
		"npx --yes skills add dbt-labs/dbt-agent-skills -y -g --skill dbt-build --skill dbt-test",
		commands[0])
}

func TestSkillsHandlerNoSkillsIsNoop(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewSkillsHandler()

	require.NoError(t, handler.Install(context.Background(), skillset.SkillSet{Name: "bare"}, rec))
	assert.Empty(t, rec.Commands())
}

func TestSkillsHandlerContinuesAfterFailedInstall(t *testing.T) {
	rec := environ.NewRecorder("test")
	rec.Handle(func(cmd string) bool {
		return strings.Contains(cmd, "broken/origin")
	}, environ.ExecResult{ExitCode: 1, Output: "not found"}, nil)

	handler := NewSkillsHandler()
	set := skillset.SkillSet{
		Name: "mixed",
		Skills: []skillset.SkillOrigin{
			{Location: "broken/origin"},
			{Location: "dbt-labs/dbt-agent-skills"},
		},
	}

	require.NoError(t, handler.Install(context.Background(), set, rec))
	assert.Len(t, rec.Commands(), 2)
}

func TestSkillsHandlerVerifyLocalOrigin(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "dbt-build")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	content := "---\nname: dbt-build\ndescription: Build dbt models\n---\n\nRun dbt build.\n"
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))

	handler := NewSkillsHandler()

	t.Run("valid local origin", func(t *testing.T) {
		set := skillset.SkillSet{
			Name:   "local",
			Skills: []skillset.SkillOrigin{{Location: dir}},
		}
		assert.NoError(t, handler.Verify(set))
	})

	t.Run("missing requested skill", func(t *testing.T) {
		set := skillset.SkillSet{
			Name:   "local",
			Skills: []skillset.SkillOrigin{{Location: dir, Skills: []string{"nope"}}},
		}
		err := handler.Verify(set)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("remote origins are skipped", func(t *testing.T) {
		set := skillset.SkillSet{
			Name:   "remote",
			Skills: []skillset.SkillOrigin{{Location: "owner/repo"}},
		}
		assert.NoError(t, handler.Verify(set))
	})
}
