package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vitrine/cmd/vitrine/ui"
	"vitrine/internal/cart"
	"vitrine/internal/journal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// historyCmd shows the action journal
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent cart actions from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !cfg.Journal.Enabled {
		fmt.Fprintln(out, "The journal is disabled (journal.enabled: false).")
		return nil
	}
	limit, _ := cmd.Flags().GetInt("limit")

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	ctx, cancel := commandContext()
	defer cancel()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No cart actions recorded yet.")
		return nil
	}
	stats, err := j.Stats(ctx)
	if err != nil {
		return err
	}

	s := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	fmt.Fprintln(out, renderHistory(entries, s.Bold, s.Error))
	fmt.Fprintln(out, s.Muted.Render(formatStats(stats)))
	return nil
}

// renderHistory lays entries out as a table, failed rows highlighted.
func renderHistory(entries []journal.Entry, header, failed lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "ACTION", "TARGET", "OUTCOME", "ITEMS", "MESSAGE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header.Padding(0, 1)
			case row >= 0 && row < len(entries) && entries[row].Outcome != cart.OutcomeOK:
				return failed.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, e := range entries {
		t.Row(
			e.Time.Format("2006-01-02 15:04:05"),
			string(e.Kind),
			e.Target,
			string(e.Outcome),
			strconv.Itoa(e.ItemCount),
			e.Message,
		)
	}
	return t.String()
}

func formatStats(stats map[cart.Outcome]int) string {
	outcomes := make([]string, 0, len(stats))
	for o := range stats {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	parts := make([]string, len(outcomes))
	for i, o := range outcomes {
		parts[i] = fmt.Sprintf("%s: %d", o, stats[cart.Outcome(o)])
	}
	return "Totals  " + strings.Join(parts, "  ")
}
