package plugins

import (
	"context"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/skillset"
	"github.com/adebench/adebench/pkg/version"
)

// ServerReport is the outcome of probing one configured MCP server.
// Granted holds the subset of Tools the set's allowed_tools patterns
// cover, under the agent-visible mcp__<server>__<tool> names.
type ServerReport struct {
	Server  string
	Tools   []string
	Granted []string
	Err     error
}

// Doctor pre-flights a skill set's MCP servers by launching each one
// locally over stdio and asking it for its tools. A server that cannot
// start or answer here would fail identically inside the container, so
// the probe surfaces broken configuration before a run is paid for.
type Doctor struct{}

// NewDoctor creates an MCP doctor.
func NewDoctor() *Doctor {
	return &Doctor{}
}

// Probe launches every MCP server of the set and reports the tools each
// one exposes. Failures are collected per server rather than aborting,
// so one broken server does not hide the state of the others.
func (d *Doctor) Probe(ctx context.Context, set skillset.SkillSet) []ServerReport {
	reports := make([]ServerReport, 0, len(set.McpServers))
	for _, name := range set.ServerNames() {
		server := set.McpServers[name]
		tools, err := probeServer(ctx, server)
		if err != nil {
			logger.G(ctx).WithField("mcp_server", name).WithError(err).Warn("MCP server probe failed")
		}
		reports = append(reports, ServerReport{
			Server:  name,
			Tools:   tools,
			Granted: GrantedTools(set, name, tools),
			Err:     err,
		})
	}
	return reports
}

// GrantedTools returns the tools of one server that the set's
// allowed_tools patterns cover. Agent CLIs expose an MCP server's tools
// under mcp__<server>__<tool>, so the match runs against those names.
func GrantedTools(set skillset.SkillSet, server string, tools []string) []string {
	var granted []string
	for _, tool := range tools {
		if set.MatchesTool("mcp__" + server + "__" + tool) {
			granted = append(granted, tool)
		}
	}
	return granted
}

func probeServer(ctx context.Context, server skillset.McpServerConfig) ([]string, error) {
	env := make([]string, 0, len(server.Env))
	for k, v := range server.Env {
		env = append(env, k+"="+v)
	}

	tp := transport.NewStdio(server.Command, env, server.Args...)
	cli := client.NewClient(tp)

	if err := cli.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "starting server")
	}
	defer cli.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "adebench",
		Version: version.Version,
	}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		return nil, errors.Wrap(err, "initializing server")
	}

	listResult, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "listing tools")
	}

	tools := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		tools = append(tools, tool.Name)
	}
	return tools, nil
}
