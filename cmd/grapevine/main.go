// Command grapevine runs a population of generative agents that gossip across a
// weighted social graph.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath   string
	scenarioPath string
	debugFlag    bool
)

var rootCmd = &cobra.Command{
	Use:     "grapevine",
	Short:   "Generative agents gossiping over a social graph",
	Long:    "Agents remember, reflect and talk to each other; rumours spread along who talks to whom and how they feel about it.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (yaml, json or toml); GRAPEVINE_* env vars override it")
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "Scenario file (default: the scenario key from config)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Write debug output to the debug log")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
