package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adebench/adebench/pkg/plugins"
	"github.com/adebench/adebench/pkg/presenter"
	"github.com/adebench/adebench/pkg/skillset"
)

var skillSetsFile string

var skillSetsCmd = &cobra.Command{
	Use:   "skillsets",
	Short: "Inspect the skill sets document",
}

var skillSetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured skill set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := skillset.NewLoader(skillSetsFile).Load(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(config.Sets))
		for _, set := range config.Sets {
			agentsCol := "any"
			if set.Agents.Restricted() {
				agentsCol = strings.Join(set.Agents.Agents(), ", ")
				if agentsCol == "" {
					agentsCol = "none"
				}
			}
			rows = append(rows, []string{
				set.Name,
				boolMark(set.Default),
				agentsCol,
				strconv.Itoa(len(set.Skills)),
				strconv.Itoa(len(set.McpServers)),
				strconv.Itoa(len(set.AllowedTools)),
			})
		}
		presenter.Table([]string{"NAME", "DEFAULT", "AGENTS", "SKILLS", "MCP SERVERS", "ALLOWED TOOLS"}, rows)
		return nil
	},
}

var (
	resolveAgent string
	resolveSets  []string
)

var skillSetsResolveCmd = &cobra.Command{
	Use:   "resolve [skill-set...]",
	Short: "Resolve a skill-set request for an agent",
	Long: `Resolve the given skill-set names (or the document defaults when
none are given) for an agent, exactly as the run command would.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := skillset.NewLoader(skillSetsFile).Load(cmd.Context())
		if err != nil {
			return err
		}

		requested := append(append([]string{}, resolveSets...), args...)
		resolved, err := skillset.NewResolver(config).Resolve(requested, resolveAgent)
		if err != nil {
			return err
		}

		for _, set := range resolved {
			presenter.Section(set.Name)
			for _, origin := range set.Skills {
				presenter.Info(fmt.Sprintf("Skills: %s (%s)", origin.Location, describeInstall(origin)))
			}
			for _, name := range set.ServerNames() {
				server := set.McpServers[name]
				presenter.Info(fmt.Sprintf("MCP server: %s (%s %s)", name, server.Command, strings.Join(server.Args, " ")))
			}
			if len(set.AllowedTools) > 0 {
				presenter.Info(fmt.Sprintf("Allowed tools: %s", strings.Join(set.AllowedTools, ", ")))
			}
		}
		presenter.Success(fmt.Sprintf("%d skill set(s) resolved for agent '%s'", len(resolved), resolveAgent))
		return nil
	},
}

var skillSetsDoctorCmd = &cobra.Command{
	Use:   "doctor [skill-set...]",
	Short: "Probe the MCP servers of skill sets",
	Long: `Launch every MCP server of the given skill sets (defaults when none
are given) locally over stdio and list the tools each one offers.
Servers that fail here would fail identically inside a trial.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config, err := skillset.NewLoader(skillSetsFile).Load(ctx)
		if err != nil {
			return err
		}

		sets := config.Defaults()
		if len(args) > 0 {
			sets, err = config.ByNames(args)
			if err != nil {
				return err
			}
		}

		doctor := plugins.NewDoctor()
		healthy := true
		for _, set := range sets {
			reports := doctor.Probe(ctx, set)
			if len(reports) == 0 {
				continue
			}
			presenter.Section(set.Name)
			for _, report := range reports {
				if report.Err != nil {
					healthy = false
					presenter.Error(report.Err, fmt.Sprintf("server '%s'", report.Server))
					continue
				}
				presenter.Success(fmt.Sprintf("%s: %d tool(s), %d granted by allowed_tools: %s",
					report.Server, len(report.Tools), len(report.Granted), strings.Join(report.Tools, ", ")))
				if len(report.Granted) < len(report.Tools) {
					presenter.Warning(fmt.Sprintf("%s: %d tool(s) not covered by allowed_tools", report.Server, len(report.Tools)-len(report.Granted)))
				}
			}
		}
		if !healthy {
			return fmt.Errorf("one or more MCP servers failed the probe")
		}
		return nil
	},
}

func describeInstall(origin skillset.SkillOrigin) string {
	if origin.InstallAll() {
		return "all skills"
	}
	return strings.Join(origin.Skills, ", ")
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func init() {
	skillSetsCmd.PersistentFlags().StringVar(&skillSetsFile, "skill-sets-file", skillset.DefaultConfigPath, "Skill sets YAML document")
	skillSetsResolveCmd.Flags().StringVar(&resolveAgent, "agent", "claude", "Agent to resolve for")
	skillSetsResolveCmd.Flags().StringSliceVar(&resolveSets, "skill-set", nil, "Skill set to resolve (repeatable; default: document defaults)")

	skillSetsCmd.AddCommand(skillSetsListCmd)
	skillSetsCmd.AddCommand(skillSetsResolveCmd)
	skillSetsCmd.AddCommand(skillSetsDoctorCmd)
}
