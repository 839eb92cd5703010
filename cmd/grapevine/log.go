package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"grapevine/internal/debug"
	"grapevine/internal/logging"
)

var (
	logLimit  int
	logCSV    bool
	logFormat string
)

func init() {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent simulation events, or export all of them as CSV",
		Args:  cobra.NoArgs,
		Run:   runLog,
	}
	cmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of recent events to show")
	cmd.Flags().BoolVar(&logCSV, "csv", false, "Export every event as CSV to stdout")
	cmd.Flags().StringVarP(&logFormat, "format", "f", "text", "Output format: json or text")

	rootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	events, err := logging.NewEventLog(cfg.EventDB, debug.NewLogger(cfg.Debug, cfg.DebugLog))
	if err != nil {
		exitErr("open event log", err)
	}
	defer events.Close()

	if logCSV {
		if err := events.ExportCSV(os.Stdout); err != nil {
			exitErr("export", err)
		}
		return
	}

	recent, err := events.Recent(logLimit)
	if err != nil {
		exitErr("recent", err)
	}
	if logFormat == "json" {
		b, _ := json.MarshalIndent(recent, "", "  ")
		fmt.Println(string(b))
		return
	}
	for i := len(recent) - 1; i >= 0; i-- {
		fmt.Printf("[%s] %s\n", recent[i].GameTime(), recent[i].Text)
	}
}
