package main

import (
	"fmt"

	"github.com/jpalmerr/tablepulse"
	"github.com/jpalmerr/tablepulse/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a TablePulse configuration file without starting the server.

This command parses the YAML and validates all fields, and reports whether
the service credentials are currently resolvable from the environment.
It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  tablepulse validate -c config.yaml
  tablepulse validate --config /etc/tablepulse/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := config.BuildTable(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	interval := "once (no timer)"
	if cfg.PollInterval.Duration() > 0 {
		interval = cfg.PollInterval.Duration().String()
	}

	service := "not configured (setup page will be served)"
	if tablepulse.ServiceFromEnv().Configured() {
		service = "configured"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Table:         %s\n", cfg.Table)
	fmt.Printf("  Poll interval: %s\n", interval)
	fmt.Printf("  Service:       %s\n", service)

	return nil
}
