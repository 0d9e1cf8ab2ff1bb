package plugins

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/skillset"
)

func TestMcpHandlerConfigure(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewMcpHandler()

	set := skillset.SkillSet{
		Name: "dbt-mcp",
		McpServers: map[string]skillset.McpServerConfig{
			"dbt": {Command: "uvx", Args: []string{"dbt-mcp"}},
		},
	}

	require.NoError(t, handler.Configure(context.Background(), set, "claude", rec))

	commands := rec.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, "claude mcp add dbt -- uvx dbt-mcp", commands[0])
}

func TestMcpHandlerWritesEnvFile(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewMcpHandler()

	set := skillset.SkillSet{
		Name: "dbt-mcp",
		McpServers: map[string]skillset.McpServerConfig{
			"dbt": {
				Command: "uvx",
				Args:    []string{"dbt-mcp"},
				Env:     map[string]string{"DISABLE_DBT_CLI": "false", "DBT_PROJECT_DIR": "/app"},
			},
		},
	}

	require.NoError(t, handler.Configure(context.Background(), set, "claude", rec))

	commands := rec.Commands()
	require.Len(t, commands, 2)

	assert.True(t, strings.HasPrefix(commands[0], "cat > /tmp/dbt.env << 'ENVEOF'"))
	assert.Contains(t, commands[0], "DBT_PROJECT_DIR=/app")
	assert.Contains(t, commands[0], "DISABLE_DBT_CLI=false")

	assert.Equal(t, "claude mcp add dbt -- uvx --env-file /tmp/dbt.env dbt-mcp", commands[1])
}

func TestMcpHandlerSortedServerOrder(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewMcpHandler()

	set := skillset.SkillSet{
		Name: "many",
		McpServers: map[string]skillset.McpServerConfig{
			"zeta":  {Command: "zeta-server"},
			"alpha": {Command: "alpha-server"},
			"mid":   {Command: "mid-server"},
		},
	}

	require.NoError(t, handler.Configure(context.Background(), set, "gemini", rec))

	commands := rec.Commands()
	require.Len(t, commands, 3)
	assert.Contains(t, commands[0], "mcp add alpha")
	assert.Contains(t, commands[1], "mcp add mid")
	assert.Contains(t, commands[2], "mcp add zeta")
}

func TestMcpHandlerNoServersIsNoop(t *testing.T) {
	rec := environ.NewRecorder("test")
	handler := NewMcpHandler()

	require.NoError(t, handler.Configure(context.Background(), skillset.SkillSet{Name: "bare"}, "claude", rec))
	assert.Empty(t, rec.Commands())
}

func TestMcpHandlerContinuesAfterFailedRegistration(t *testing.T) {
	rec := environ.NewRecorder("test")
	rec.Handle(func(cmd string) bool {
		return strings.Contains(cmd, "mcp add broken")
	}, environ.ExecResult{ExitCode: 1, Output: "no such command"}, nil)

	handler := NewMcpHandler()
	set := skillset.SkillSet{
		Name: "mixed",
		McpServers: map[string]skillset.McpServerConfig{
			"broken":  {Command: "missing-binary"},
			"working": {Command: "uvx", Args: []string{"dbt-mcp"}},
		},
	}

	require.NoError(t, handler.Configure(context.Background(), set, "claude", rec))
	assert.Len(t, rec.Commands(), 2)
}
