package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"grapevine/cmd/grapevine/ui"
	"grapevine/internal/grapevine"
)

var (
	runTicks    int
	runObserve  []string
	runAround   string
	runByAffect bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ticks of gossip and print what was said and the resulting graph",
		Run:   runRun,
	}
	cmd.Flags().IntVarP(&runTicks, "ticks", "n", 1, "Number of ticks to run")
	cmd.Flags().StringArrayVarP(&runObserve, "observe", "o", nil, `Seed an observation before ticking, as "Agent: text" (repeatable)`)
	cmd.Flags().StringVar(&runAround, "around", "", "Only print edges in the subgraph around this agent")
	cmd.Flags().BoolVar(&runByAffect, "by-emotion", false, "With --around, localize by emotion instead of strength")

	rootCmd.AddCommand(cmd)
}

func parseObservation(s string) (string, string, error) {
	name, text, ok := strings.Cut(s, ":")
	name, text = strings.TrimSpace(name), strings.TrimSpace(text)
	if !ok || name == "" || text == "" {
		return "", "", fmt.Errorf("observation %q is not in the form \"Agent: text\"", s)
	}
	return name, text, nil
}

func runRun(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, cleanup, err := createApp(ctx)
	if err != nil {
		exitErr("start", err)
	}
	defer cleanup()

	for _, o := range runObserve {
		name, text, err := parseObservation(o)
		if err != nil {
			exitErr("observe", err)
		}
		if err := a.world.Observe(ctx, name, text); err != nil {
			exitErr("observe", err)
		}
	}

	for i := 0; i < runTicks; i++ {
		report, err := a.world.Graph.Tick(ctx)
		if report != nil {
			printReport(report)
		}
		if err != nil {
			exitErr(fmt.Sprintf("tick %d", i+1), err)
		}
	}

	g := a.world.Graph
	if runAround != "" {
		if runByAffect {
			g, err = g.SubsetByEmotion(runAround, 0)
		} else {
			g, err = g.SubsetByStrength(runAround, 0)
		}
		if err != nil {
			exitErr("subset", err)
		}
	}
	fmt.Println(edgeTable(g.Edges()))
}

func printReport(r *grapevine.TickReport) {
	fmt.Println(ui.Heading.Render(fmt.Sprintf("Tick %d", r.Tick)) +
		ui.Dim.Render(fmt.Sprintf("  %d pairs considered, %d conversations", r.Considered, len(r.Conversations))))
	for _, c := range r.Conversations {
		fmt.Printf("  %s and %s (%d rounds)\n", c.X, c.Y, c.Rounds)
		for _, line := range c.History {
			fmt.Println("    " + strings.TrimSpace(line))
		}
		for _, in := range c.Insights {
			fmt.Println(ui.Dim.Render("    insight: " + in))
		}
	}
	fmt.Println()
}

func edgeTable(edges []grapevine.EdgeSnapshot) string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.From, e.To, fmt.Sprintf("%.2f", e.D), fmt.Sprintf("%.2f", e.E)})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(ui.Dim).
		Headers("FROM", "TO", "D", "E").
		Rows(rows...).
		String()
}
