// Package main is the entry point for the tabsort CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tabsort/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tabsort",
	Short: "Group browser tabs into topics",
	Long: `tabsort reads a snapshot of browser tabs, assigns each tab a topic and
prints a grouping plan for the browser to apply.

Topics come either from a local pipeline (embeddings, matching against the
groups that already exist, clustering and naming) or from one call to a
remote generative-language model, depending on the "provider" setting.

Examples:
  tabsort sort --snapshot tabs.json
  tabsort sort --snapshot tabs.json --tui
  tabsort config init`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ./tabsort.yaml or ~/.config/tabsort/config.yaml)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, or the default locations.
func loadConfig() (*config.AppConfig, string, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		return cfg, configPath, err
	}
	return config.LoadDefault()
}
