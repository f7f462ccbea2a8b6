package commands

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/db"
)

// requireAdmin checks --admin-token against CLOCKIN_ADMIN_TOKEN. An empty
// configured token leaves the admin commands open.
func (a *app) requireAdmin(token *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.loadConfig(); err != nil {
			return err
		}
		if a.cfg.AdminToken == "" {
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(*token), []byte(a.cfg.AdminToken)) != 1 {
			a.logger.Warn("admin command refused", "command", cmd.CommandPath())
			return fmt.Errorf("admin token missing or wrong")
		}
		return nil
	}
}

func newAdminCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:               "admin",
		Short:             "Manage jobs, tags and employees",
		PersistentPreRunE: a.requireAdmin(&token),
	}
	cmd.PersistentFlags().StringVar(&token, "admin-token", "", "Admin token (when CLOCKIN_ADMIN_TOKEN is set)")

	cmd.AddCommand(newImportJobsCmd(a))
	cmd.AddCommand(newCategoryCmd(a))
	cmd.AddCommand(newCodeCmd(a))
	cmd.AddCommand(newAdminTagCmd(a))
	cmd.AddCommand(newEmployeeCmd(a))
	return cmd
}

func newImportJobsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-jobs <file.csv>",
		Short: "Import categories and job codes from a CSV export",
		Long: `Import categories and job codes from a CSV export with the columns
JobcodeLevel_0, JobcodeLevel_0_Alias, JobcodeLevel_1, JobcodeLevel_1_Alias.
Existing records are matched by name and updated.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			result, err := a.store.ImportJobCodesCSV(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Categories: %d created, %d updated\n", result.CategoriesCreated, result.CategoriesUpdated)
			fmt.Fprintf(a.out, "✅ Job codes: %d created, %d updated\n", result.CodesCreated, result.CodesUpdated)
			return nil
		}),
	}
}

// toggleCmd builds an enable/disable subcommand over an ID
func (a *app) toggleCmd(use, what string, active bool, set func(ctx context.Context, id uint, active bool) error) *cobra.Command {
	verb := "Disabled"
	if active {
		verb = "Enabled"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("%s%s a %s", strings.ToUpper(use[:1]), use[1:], what),
		Args:  cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := set(ctx, id, active); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ %s %s #%d\n", verb, what, id)
			return nil
		}),
	}
}

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "category", Short: "Manage job categories"}

	var aliasFlag string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			c, err := a.store.CreateCategory(ctx, args[0], aliasFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ New category \"%s\" added - ID: %d\n", c.Name, c.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&aliasFlag, "alias", "", "Alternative name")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(a.toggleCmd("disable", "category", false, a.setCategoryActive))
	cmd.AddCommand(a.toggleCmd("enable", "category", true, a.setCategoryActive))
	return cmd
}

func newCodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "code", Short: "Manage job codes"}

	var (
		aliasFlag string
		category  uint
	)
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a job code in a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if category == 0 {
				return usageError("--category is required")
			}
			code, err := a.store.CreateJobCode(ctx, category, args[0], aliasFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ New job code \"%s\" added - ID: %d\n", code.Name, code.ID)
			return nil
		}),
	}
	addCmd.Flags().UintVarP(&category, "category", "c", 0, "Category ID")
	addCmd.Flags().StringVar(&aliasFlag, "alias", "", "Alternative name")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(a.toggleCmd("disable", "job code", false, a.setJobCodeActive))
	cmd.AddCommand(a.toggleCmd("enable", "job code", true, a.setJobCodeActive))
	return cmd
}

func newAdminTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "tag", Short: "Manage activity tags"}

	var (
		category    uint
		color       string
		description string
	)
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag, global unless --category is given",
		Args:  cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req := db.CreateTagRequest{Name: args[0], Description: description, Color: color}
			if category != 0 {
				req.CategoryID = &category
			}
			tag, err := a.store.CreateTag(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ New tag \"%s\" added - ID: %d\n", tag.Name, tag.ID)
			return nil
		}),
	}
	addCmd.Flags().UintVarP(&category, "category", "c", 0, "Scope the tag to a category")
	addCmd.Flags().StringVar(&color, "color", "", "Display color, e.g. #22C55E")
	addCmd.Flags().StringVarP(&description, "description", "d", "", "What the tag means")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(a.toggleCmd("disable", "tag", false, a.setTagActive))
	cmd.AddCommand(a.toggleCmd("enable", "tag", true, a.setTagActive))
	return cmd
}

func newEmployeeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "employee", Short: "Manage employees"}

	var email string
	addCmd := &cobra.Command{
		Use:   "add <first-name> [last-name]",
		Short: "Create an employee",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			last := ""
			if len(args) == 2 {
				last = args[1]
			}
			e, err := a.store.CreateEmployee(ctx, args[0], last, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ New employee \"%s\" added - ID: %d\n", e.FullName(), e.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&email, "email", "", "Email address")

	var all bool
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List employees",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			employees, err := a.store.ListEmployees(ctx, all)
			if err != nil {
				return err
			}
			if len(employees) == 0 {
				fmt.Fprintln(a.out, "No employees found.")
				return nil
			}
			fmt.Fprintf(a.out, "%-4s %-24s %-28s %s\n", "ID", "NAME", "EMAIL", "PIN")
			for _, e := range employees {
				pin := "-"
				if e.HasPin() {
					pin = "set"
				}
				fmt.Fprintf(a.out, "%-4d %-24s %-28s %s%s\n", e.ID, clip(e.FullName(), 24), clip(e.Email, 28), pin, inactive(e.IsActive))
			}
			return nil
		}),
	}
	listCmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled employees")

	setPinCmd := &cobra.Command{
		Use:   "set-pin <id> <pin>",
		Short: "Set a 4-8 digit PIN",
		Args:  cobra.ExactArgs(2),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.SetPin(ctx, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ PIN set for employee #%d\n", id)
			return nil
		}),
	}

	clearPinCmd := &cobra.Command{
		Use:   "clear-pin <id>",
		Short: "Remove an employee's PIN",
		Args:  cobra.ExactArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.ClearPin(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ PIN cleared for employee #%d\n", id)
			return nil
		}),
	}

	cmd.AddCommand(addCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(a.toggleCmd("disable", "employee", false, a.setEmployeeActive))
	cmd.AddCommand(a.toggleCmd("enable", "employee", true, a.setEmployeeActive))
	cmd.AddCommand(setPinCmd)
	cmd.AddCommand(clearPinCmd)
	return cmd
}

// The store is opened lazily, so setters are looked up at call time
func (a *app) setCategoryActive(ctx context.Context, id uint, active bool) error {
	return a.store.SetCategoryActive(ctx, id, active)
}

func (a *app) setJobCodeActive(ctx context.Context, id uint, active bool) error {
	return a.store.SetJobCodeActive(ctx, id, active)
}

func (a *app) setTagActive(ctx context.Context, id uint, active bool) error {
	return a.store.SetTagActive(ctx, id, active)
}

func (a *app) setEmployeeActive(ctx context.Context, id uint, active bool) error {
	return a.store.SetEmployeeActive(ctx, id, active)
}
