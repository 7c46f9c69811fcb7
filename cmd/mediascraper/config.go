package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mediascraper/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long: `Inspect the mediascraper configuration.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (and a .env file)
  - Configuration file
  - Default values`,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration as YAML. The Redis password is
masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cliFlags())
	if err != nil {
		return err
	}

	out, err := renderConfig(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// renderConfig marshals cfg to YAML with secrets masked
func renderConfig(cfg *config.Config) ([]byte, error) {
	masked := *cfg
	if masked.Redis.Password != "" {
		masked.Redis.Password = "********"
	}
	if masked.Redis.URL != "" {
		masked.Redis.URL = maskURL(masked.Redis.URL)
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	return out, nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(configFile, cliFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "Configuration is invalid")
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}
