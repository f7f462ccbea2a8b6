package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/db"
	"github.com/balkashynov/clockin/internal/models"
	"github.com/balkashynov/clockin/internal/parser"
)

// dateFlags are the inclusive calendar date range shared by reports
type dateFlags struct {
	from string
	to   string
}

func (f *dateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "First day (dd/mm/yyyy, yyyy-mm-dd, today, yesterday, 7 days)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day, inclusive (same formats as --from)")
}

// parse returns the range as local midnights; nil means unbounded
func (f *dateFlags) parse(now time.Time) (from, to *time.Time, err error) {
	if f.from != "" {
		t, err := parser.ParseDate(f.from, now)
		if err != nil {
			return nil, nil, usageError("--from: %v", err)
		}
		from = &t
	}
	if f.to != "" {
		t, err := parser.ParseDate(f.to, now)
		if err != nil {
			return nil, nil, usageError("--to: %v", err)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, usageError("--to is before --from")
	}
	return from, to, nil
}

func newSessionsCmd(a *app) *cobra.Command {
	var (
		dates      dateFlags
		employee   uint
		category   uint
		closedOnly bool
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List recorded sessions",
		Long: `List sessions, oldest first, with optional employee, category and date filters.
Dates are compared against the day a session started.`,
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			from, to, err := dates.parse(a.now().In(a.loc))
			if err != nil {
				return err
			}

			filter := db.SessionFilter{
				EmployeeID: employee,
				CategoryID: category,
				ClosedOnly: closedOnly,
				Limit:      limit,
			}
			if a.cfg.RoleMode() {
				filter.ScopeKey = models.RoleScopeKey
			}
			if from != nil {
				filter.StartedFrom = *from
			}
			if to != nil {
				filter.StartedTo = to.AddDate(0, 0, 1)
			}

			sessions, err := a.store.ListSessions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			if jsonOutput {
				return a.renderSessionsJSON(sessions)
			}
			a.renderSessionsTable(sessions)
			return nil
		}),
	}

	dates.register(cmd)
	cmd.Flags().UintVarP(&employee, "employee", "e", 0, "Filter by employee ID")
	cmd.Flags().UintVarP(&category, "category", "c", 0, "Filter by category ID")
	cmd.Flags().BoolVar(&closedOnly, "closed", false, "Only sessions that have ended")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Show only the newest N sessions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// jsonSession is the listing shape, close to what the old web client consumed
type jsonSession struct {
	ID                   uint       `json:"id"`
	EmployeeID           *uint      `json:"employee_id,omitempty"`
	EmployeeName         string     `json:"employee_name,omitempty"`
	PerformerName        string     `json:"performer_name,omitempty"`
	CategoryID           uint       `json:"role_id"`
	CategoryName         string     `json:"role_name"`
	JobCodeID            *uint      `json:"job_code_id"`
	JobCodeName          string     `json:"job_code_name,omitempty"`
	StartedAt            time.Time  `json:"started_at"`
	EndedAt              *time.Time `json:"ended_at"`
	Status               string     `json:"status"`
	DurationSeconds      float64    `json:"duration_seconds"`
	InterruptedSessionID *uint      `json:"interrupted_session_id,omitempty"`
	InterruptionReason   string     `json:"interruption_reason,omitempty"`
	Description          string     `json:"description,omitempty"`
	TagIDs               []uint     `json:"activity_tag_ids"`
	Tags                 []string   `json:"tags"`
}

// renderSessionsJSON outputs sessions as JSON
func (a *app) renderSessionsJSON(sessions []models.Session) error {
	type listing struct {
		Count    int           `json:"count"`
		Sessions []jsonSession `json:"sessions"`
	}

	now := a.now()
	out := listing{Count: len(sessions), Sessions: make([]jsonSession, 0, len(sessions))}
	for _, s := range sessions {
		js := jsonSession{
			ID:                   s.ID,
			EmployeeID:           s.EmployeeID,
			PerformerName:        s.PerformerName,
			CategoryID:           s.CategoryID,
			CategoryName:         s.Category.Name,
			JobCodeID:            s.JobCodeID,
			StartedAt:            s.StartedAt.In(a.loc),
			Status:               string(s.Status),
			DurationSeconds:      s.Duration(now).Seconds(),
			InterruptedSessionID: s.InterruptedSessionID,
			InterruptionReason:   s.InterruptionReason,
			Description:          s.Description,
			TagIDs:               []uint{},
			Tags:                 []string{},
		}
		if s.Employee != nil {
			js.EmployeeName = s.Employee.FullName()
		}
		if s.JobCode != nil {
			js.JobCodeName = s.JobCode.Name
		}
		if s.EndedAt != nil {
			end := s.EndedAt.In(a.loc)
			js.EndedAt = &end
		}
		for _, tag := range s.Tags {
			js.TagIDs = append(js.TagIDs, tag.ID)
			js.Tags = append(js.Tags, tag.Name)
		}
		out.Sessions = append(out.Sessions, js)
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// renderSessionsTable outputs sessions as a formatted table
func (a *app) renderSessionsTable(sessions []models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No sessions found.")
		return
	}

	fmt.Fprintf(a.out, "%-5s %-16s %-7s %-16s %-24s %-14s %s\n", "ID", "STARTED", "LENGTH", "WHO", "JOB", "STATUS", "TAGS")
	fmt.Fprintln(a.out, strings.Repeat("-", 100))

	now := a.now()
	for _, s := range sessions {
		who := s.PerformerName
		if s.Employee != nil {
			who = s.Employee.FullName()
		}
		status := string(s.Status)
		if s.IsInterruption() {
			status += fmt.Sprintf(" ↳#%d", *s.InterruptedSessionID)
		}

		fmt.Fprintf(a.out, "%-5d %-16s %-7s %-16s %-24s %-14s %s\n",
			s.ID,
			formatDate(s.StartedAt, a.loc),
			formatLength(s.Duration(now)),
			clip(who, 16),
			clip(s.JobDisplayName(), 24),
			status,
			tagNames(s.Tags, ","))
	}
}

// formatLength renders a duration as h:mm
func formatLength(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// clip truncates long fields for the table
func clip(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
