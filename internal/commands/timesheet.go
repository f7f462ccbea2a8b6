package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/db"
	"github.com/balkashynov/clockin/internal/models"
	"github.com/balkashynov/clockin/internal/parser"
)

func newTimesheetCmd(a *app) *cobra.Command {
	var (
		employee uint
		week     string
	)
	cmd := &cobra.Command{
		Use:   "timesheet",
		Short: "Weekly hours per job, by day",
		Long: `Show a weekly timesheet of closed sessions grouped by job and day.

Example output:
  Job                       Mon    Tue    Wed    Thu    Fri    Total
  Kitchen - Prep            2.0    3.5      -      -      -      5.5
  WRP - Hensley               -    1.0    2.0    4.0    1.0      8.0
  Total                     2.0    4.5    2.0    4.0    1.0     13.5`,
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			now := a.now().In(a.loc)
			day := now
			if week != "" {
				t, err := parser.ParseDate(week, now)
				if err != nil {
					return usageError("--week: %v", err)
				}
				day = t
			}
			weekStart := getWeekStart(day)

			filter := db.SessionFilter{
				EmployeeID:  employee,
				StartedFrom: weekStart,
				StartedTo:   weekStart.AddDate(0, 0, 7),
				ClosedOnly:  true,
			}
			if a.cfg.RoleMode() {
				filter.ScopeKey = models.RoleScopeKey
			}
			sessions, err := a.store.ListSessions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(a.out, "No time recorded this week.")
				return nil
			}

			displayTimesheet(a.out, buildTimesheet(sessions, a.loc), weekStart)
			return nil
		}),
	}
	cmd.Flags().UintVarP(&employee, "employee", "e", 0, "Only this employee")
	cmd.Flags().StringVar(&week, "week", "", "Any day of the week to show (default: this week)")
	return cmd
}

// timesheet holds hours per job and weekday
type timesheet struct {
	jobs  []string
	hours map[string]map[time.Weekday]float64
}

// buildTimesheet groups closed sessions by job and the local weekday they started
func buildTimesheet(sessions []models.Session, loc *time.Location) timesheet {
	ts := timesheet{hours: make(map[string]map[time.Weekday]float64)}
	for _, s := range sessions {
		if s.EndedAt == nil {
			continue
		}
		job := s.JobDisplayName()
		if ts.hours[job] == nil {
			ts.hours[job] = make(map[time.Weekday]float64)
			ts.jobs = append(ts.jobs, job)
		}
		ts.hours[job][s.StartedAt.In(loc).Weekday()] += s.Duration(*s.EndedAt).Hours()
	}
	sort.Strings(ts.jobs)
	return ts
}

// getWeekStart returns the start of the calendar week (Monday) for the given time
func getWeekStart(t time.Time) time.Time {
	daysFromMonday := (int(t.Weekday()) + 6) % 7
	weekStart := t.AddDate(0, 0, -daysFromMonday)
	return time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
}

// displayTimesheet writes the table; weekends only show when worked
func displayTimesheet(w io.Writer, ts timesheet, weekStart time.Time) {
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	var days []time.Weekday
	for i, day := range weekdays {
		worked := false
		for _, job := range ts.jobs {
			if ts.hours[job][day] > 0 {
				worked = true
				break
			}
		}
		if worked || i < 5 {
			days = append(days, day)
		}
	}

	nameWidth := 20
	for _, job := range ts.jobs {
		nameWidth = max(nameWidth, len([]rune(job)))
	}
	nameWidth = min(nameWidth, 40)

	separator := func() {
		fmt.Fprint(w, strings.Repeat("-", nameWidth))
		for range days {
			fmt.Fprint(w, "  "+strings.Repeat("-", 5))
		}
		fmt.Fprintln(w, "  "+strings.Repeat("-", 7))
	}

	fmt.Fprintf(w, "%-*s", nameWidth, "Job")
	for _, day := range days {
		fmt.Fprintf(w, "  %5s", day.String()[:3])
	}
	fmt.Fprintf(w, "  %7s\n", "Total")
	separator()

	dayTotals := make(map[time.Weekday]float64)
	grandTotal := 0.0
	for _, job := range ts.jobs {
		fmt.Fprintf(w, "%-*s", nameWidth, clip(job, nameWidth))
		jobTotal := 0.0
		for _, day := range days {
			hours := ts.hours[job][day]
			if hours > 0 {
				fmt.Fprintf(w, "  %5.1f", hours)
			} else {
				fmt.Fprintf(w, "  %5s", "-")
			}
			dayTotals[day] += hours
			jobTotal += hours
		}
		fmt.Fprintf(w, "  %7.1f\n", jobTotal)
		grandTotal += jobTotal
	}

	separator()
	fmt.Fprintf(w, "%-*s", nameWidth, "Total")
	for _, day := range days {
		fmt.Fprintf(w, "  %5.1f", dayTotals[day])
	}
	fmt.Fprintf(w, "  %7.1f\n", grandTotal)

	fmt.Fprintf(w, "\nWeek of %s to %s\n",
		weekStart.Format("Jan 2"),
		weekStart.AddDate(0, 0, 6).Format("Jan 2, 2006"))
}
