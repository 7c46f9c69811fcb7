package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	envName    string
	storeName  string
	once       bool
)

// rootCmd runs the scheduled scraper when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "mediascraper",
	Short: "Harvest trending media from Reddit, 9GAG and Imgur into Redis",
	Long: `mediascraper periodically scrapes trending posts for every tag in the
Redis tag set, normalizes them into media records and appends records not
seen before to a Redis stream.

Outside production a run starts immediately; afterwards one run fires every
schedule interval (30 minutes by default).`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliFlags collects the flags that override configuration
func cliFlags() map[string]interface{} {
	return map[string]interface{}{
		"log-level": logLevel,
		"env":       envName,
		"store":     storeName,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.mediascraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name; production skips the immediate run")
	rootCmd.PersistentFlags().StringVar(&storeName, "store", "", "store driver (redis, memory)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single scrape and exit")

	rootCmd.SetVersionTemplate(`mediascraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
