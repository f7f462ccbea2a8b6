package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/insights"
	"github.com/balkashynov/clockin/internal/tui"
)

// insightFlags are shared by the insights subcommands
type insightFlags struct {
	dates      dateFlags
	category   uint
	jsonOutput bool
}

func (f *insightFlags) register(cmd *cobra.Command, withCategory bool) {
	f.dates.register(cmd)
	if withCategory {
		cmd.Flags().UintVarP(&f.category, "category", "c", 0, "Only sessions in this category")
	}
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Output as JSON")
}

func (a *app) insightFilter(f *insightFlags) (insights.Filter, error) {
	from, to, err := f.dates.parse(a.now().In(a.loc))
	if err != nil {
		return insights.Filter{}, err
	}
	return insights.Filter{From: from, To: to, CategoryID: f.category}, nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func newInsightsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Reports over closed sessions",
		Long: `Read-only reports over closed sessions. Running and paused sessions never count.
All subcommands take an inclusive --from/--to date range on the start day.`,
	}
	cmd.AddCommand(newInsightsHoursCmd(a))
	cmd.AddCommand(newInsightsTagsCmd(a))
	cmd.AddCommand(newInsightsPatternsCmd(a))
	return cmd
}

func newInsightsHoursCmd(a *app) *cobra.Command {
	var f insightFlags
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Hours worked per category",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			filter, err := a.insightFilter(&f)
			if err != nil {
				return err
			}
			rows, err := a.projector.HoursByCategory(ctx, filter)
			if err != nil {
				return err
			}
			if f.jsonOutput {
				return a.writeJSON(map[string]any{"role_hours": rows})
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "No closed sessions in range.")
				return nil
			}

			top := rows[0].TotalHours
			fmt.Fprintf(a.out, "%-24s %8s\n", "CATEGORY", "HOURS")
			fmt.Fprintln(a.out, strings.Repeat("-", 60))
			for _, r := range rows {
				fmt.Fprintf(a.out, "%-24s %8.2f  %s\n", clip(r.CategoryName, 24), r.TotalHours, bar(r.TotalHours, top, 24))
			}
			return nil
		}),
	}
	f.register(cmd, false)
	return cmd
}

func newInsightsTagsCmd(a *app) *cobra.Command {
	var f insightFlags
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "How often each activity tag was used",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			filter, err := a.insightFilter(&f)
			if err != nil {
				return err
			}
			dist, err := a.projector.TagDistribution(ctx, filter)
			if err != nil {
				return err
			}
			if f.jsonOutput {
				return a.writeJSON(dist)
			}
			if dist.Total == 0 {
				fmt.Fprintln(a.out, "No closed sessions in range.")
				return nil
			}

			top := 0
			for _, t := range dist.Tags {
				top = max(top, t.SessionCount)
			}
			fmt.Fprintf(a.out, "%-24s %8s\n", "TAG", "SESSIONS")
			fmt.Fprintln(a.out, strings.Repeat("-", 60))
			for _, t := range dist.Tags {
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render("●")
				fmt.Fprintf(a.out, "%s %-22s %8d  %s\n", swatch, clip(t.Name, 22), t.SessionCount,
					bar(float64(t.SessionCount), float64(top), 24))
			}
			fmt.Fprintf(a.out, "\n%d of %d sessions had no tags\n", dist.Untagged, dist.Total)
			return nil
		}),
	}
	f.register(cmd, true)
	return cmd
}

func newInsightsPatternsCmd(a *app) *cobra.Command {
	var f insightFlags
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "When work starts, by hour of day and day of week",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			filter, err := a.insightFilter(&f)
			if err != nil {
				return err
			}
			p, err := a.projector.Patterns(ctx, filter)
			if err != nil {
				return err
			}
			if f.jsonOutput {
				return a.writeJSON(p)
			}

			maxHour := 0
			for _, h := range p.Hours {
				maxHour = max(maxHour, h.Count)
			}
			fmt.Fprintln(a.out, "Starts by hour")
			for _, h := range p.Hours {
				if h.Count == 0 {
					continue
				}
				fmt.Fprintf(a.out, "  %02d:00 %5d  %s\n", h.Hour, h.Count, bar(float64(h.Count), float64(maxHour), 30))
			}

			maxDay := 0
			for _, d := range p.Days {
				maxDay = max(maxDay, d.Count)
			}
			fmt.Fprintln(a.out, "\nStarts by day")
			for _, d := range p.Days {
				fmt.Fprintf(a.out, "  %-9s %5d  %s\n", d.Day, d.Count, bar(float64(d.Count), float64(maxDay), 30))
			}
			return nil
		}),
	}
	f.register(cmd, true)
	return cmd
}

// bar draws a proportional bar in the accent color
func bar(v, top float64, width int) string {
	if top <= 0 || v <= 0 {
		return ""
	}
	n := int(v / top * float64(width))
	if n == 0 {
		n = 1
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentBright)).Render(strings.Repeat("█", n))
}
