package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/presenter"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("ADEBENCH")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.adebench")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "adebench",
	Short: "Benchmark harness for coding agents on analytics engineering tasks",
	Long: `adebench runs coding agents (claude, gemini, codex) against dbt/SQL
tasks inside isolated container environments, under configurable skill
sets, and compares agent output against gold results.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetLogLevel(viper.GetString("log_level"))
		logger.SetLogFormat(viper.GetString("log_format"))
		presenter.SetQuiet(viper.GetBool("quiet"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.adebench/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (json, text, fmt)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	cobra.OnInitialize(func() {
		if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				presenter.Error(err, "Failed to read config file")
				os.Exit(1)
			}
		}
	})

	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(skillSetsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := initTracing(ctx)
	if err != nil {
		logger.L.WithError(err).Warn("failed to initialize tracing")
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.L.WithError(err).Warn("failed to shut down tracing")
			}
		}()
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
