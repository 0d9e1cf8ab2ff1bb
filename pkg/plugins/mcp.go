package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/environ"
	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/skillset"
)

// McpHandler registers a skill set's MCP servers with the agent CLI
// inside the execution environment. Registration happens after the
// agent is installed, so the agent's own `mcp add` subcommand does the
// bookkeeping.
type McpHandler struct{}

// NewMcpHandler creates an MCP handler.
func NewMcpHandler() *McpHandler {
	return &McpHandler{}
}

// Configure registers every MCP server of the set with the named agent
// CLI. Servers are processed in sorted name order so repeated runs
// register them identically. A failing registration is logged and
// skipped rather than aborting the trial.
func (h *McpHandler) Configure(ctx context.Context, set skillset.SkillSet, agentCLI string, env environ.Environment) error {
	log := logger.G(ctx).WithField("skill_set", set.Name)

	if len(set.McpServers) == 0 {
		log.Debug("no MCP servers to configure")
		return nil
	}

	for _, serverName := range set.ServerNames() {
		server := set.McpServers[serverName]
		slog := log.WithField("mcp_server", serverName)
		slog.Info("configuring MCP server")

		envFile := ""
		if len(server.Env) > 0 {
			envFile = fmt.Sprintf("/tmp/%s.env", serverName)
			result, err := env.Exec(ctx, envFileCommand(envFile, server.Env))
			if err != nil {
				return errors.Wrapf(err, "writing env file for MCP server '%s'", serverName)
			}
			if !result.Ok() {
				slog.WithField("output", result.Output).Warn("failed to write MCP env file")
				envFile = ""
			}
		}

		result, err := env.Exec(ctx, addCommand(agentCLI, serverName, server, envFile))
		if err != nil {
			return errors.Wrapf(err, "registering MCP server '%s'", serverName)
		}
		if !result.Ok() {
			slog.WithField("output", result.Output).Warn("MCP server registration failed")
			continue
		}
		slog.Info("MCP server configured")
	}
	return nil
}

// envFileCommand writes the server's environment as KEY=value lines via
// a quoted heredoc, so values pass through the shell unexpanded.
func envFileCommand(path string, env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "cat > %s << 'ENVEOF'\n", path)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, env[k])
	}
	b.WriteString("ENVEOF")
	return b.String()
}

// addCommand builds the `<agent> mcp add` invocation for one server.
func addCommand(agentCLI, name string, server skillset.McpServerConfig, envFile string) string {
	parts := []string{agentCLI, "mcp", "add", name, "--", server.Command}
	if envFile != "" {
		parts = append(parts, "--env-file", envFile)
	}
	parts = append(parts, server.Args...)
	return strings.Join(parts, " ")
}
