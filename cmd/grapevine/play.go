package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grapevine/cmd/grapevine/ui"
)

func init() {
	play := &cobra.Command{
		Use:   "play",
		Short: "Open the interactive view: tick, observe and talk to agents",
		Args:  cobra.NoArgs,
		Run:   runPlay,
	}
	talk := &cobra.Command{
		Use:   "talk <agent>",
		Short: "Open the interactive view already talking to an agent",
		Args:  cobra.ExactArgs(1),
		Run:   runPlay,
	}

	rootCmd.AddCommand(play, talk)
}

func runPlay(cmd *cobra.Command, args []string) {
	a, cleanup, err := createApp(cmd.Context())
	if err != nil {
		exitErr("start", err)
	}
	defer cleanup()

	model := ui.NewModel(a.world, a.debug)
	if len(args) == 1 {
		model, err = model.WithConversation(args[0])
		if err != nil {
			exitErr("talk", err)
		}
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		exitErr("ui", err)
	}
}
