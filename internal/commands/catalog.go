package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newJobsCmd(a *app) *cobra.Command {
	var (
		all        bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List categories and their job codes",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			categories, err := a.store.ListCategories(ctx, all)
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.writeJSON(categories)
			}
			if len(categories) == 0 {
				fmt.Fprintln(a.out, "No job categories yet. Import some with 'clockin admin import-jobs <file.csv>'.")
				return nil
			}

			for _, c := range categories {
				fmt.Fprintf(a.out, "%-4d %s%s%s\n", c.ID, c.Name, alias(c.Alias), inactive(c.IsActive))
				for _, code := range c.JobCodes {
					fmt.Fprintf(a.out, "  %-4d %s@%s%s%s\n", code.ID, code.Name, c.Name, alias(code.Alias), inactive(code.IsActive))
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled categories and codes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Activity tags",
	}

	var (
		category   uint
		jsonOutput bool
	)
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active tags, global and per category",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			tags, err := a.store.ListTags(ctx, category)
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.writeJSON(tags)
			}
			if len(tags) == 0 {
				fmt.Fprintln(a.out, "No tags found.")
				return nil
			}

			fmt.Fprintf(a.out, "%-4s %-20s %-14s %s\n", "ID", "NAME", "SCOPE", "DESCRIPTION")
			for _, t := range tags {
				scope := "global"
				if t.Category != nil {
					scope = t.Category.Name
				}
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render("●")
				fmt.Fprintf(a.out, "%-4d %s %-18s %-14s %s\n", t.ID, swatch, clip(t.Name, 18), clip(scope, 14), t.Description)
			}
			return nil
		}),
	}
	listCmd.Flags().UintVarP(&category, "category", "c", 0, "Also show tags scoped to this category")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(listCmd)
	return cmd
}

func alias(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}

func inactive(active bool) string {
	if active {
		return ""
	}
	return " [disabled]"
}
