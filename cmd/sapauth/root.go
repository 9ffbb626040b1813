package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sapauth/internal/cli"
	"sapauth/internal/config"
	"sapauth/internal/telemetry"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	// Persistent flags
	cfgFile      string
	envFile      string
	sourceFlag   string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "sapauth",
	Short: "SAP authorization analytics",
	Long: `sapauth - SAP authorization analytics

Reads an authorization export (Users, User role, Role_tcode and Transaction
logs sheets) and reports user status, role utilization and transaction code
usage. Every report can be restricted to a date window of log evidence.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, configPath, err = config.LoadConfig(cfgFile, envFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		logger = telemetry.SetupLogger(cfg.Log.Format, resolveString(logLevel, cfg.Log.Level))

		if err := validateOutput(outputFormat); err != nil {
			return cli.UsageError("invalid --output", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs
const (
	groupReport  = "report"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover sapauth.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: .env when present)")
	rootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "", "export to analyse: file path or http(s) URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn or error")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupReport, Title: "Reports:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	for _, c := range []*cobra.Command{summaryCmd, usersCmd, rolesCmd, tcodesCmd, roleCmd, unusedCmd, integrityCmd} {
		c.GroupID = groupReport
		rootCmd.AddCommand(c)
	}
	exportCmd.GroupID = groupUtility
	configCmd.GroupID = groupUtility
	rootCmd.AddCommand(exportCmd, configCmd)
}

// Execute runs the root command and exits with the code the error maps to.
// Interrupts cancel in-flight fetches.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(cli.Report(os.Stderr, err))
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
