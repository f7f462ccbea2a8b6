package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/models"
	"github.com/balkashynov/clockin/internal/tracker"
	"github.com/balkashynov/clockin/internal/tui"
)

// sessionFlags are shared by the commands that open a session
type sessionFlags struct {
	actor actorFlags
	job   jobFlags
	tags  []string
	noUI  bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	f.actor.register(cmd)
	f.job.register(cmd)
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Activity tags, by ID or name (comma-separated)")
	cmd.Flags().BoolVar(&f.noUI, "no-ui", false, "Do not open the interactive timer")
}

// startRequest splits the arguments into a job and a description with #tags
func (a *app) startRequest(ctx context.Context, f *sessionFlags, args []string) (tracker.StartRequest, error) {
	var req tracker.StartRequest
	actor, err := a.actor(ctx, &f.actor, f.noUI)
	if err != nil {
		return req, err
	}

	spec := ""
	if f.job.category == 0 && f.job.code == 0 {
		if len(args) == 0 {
			return req, usageError("a job is required: Code@Category, Category or --category/--code")
		}
		spec, args = args[0], args[1:]
	}
	job, err := a.job(ctx, &f.job, spec)
	if err != nil {
		return req, err
	}

	desc := describe(args)
	tagIDs, err := a.tagIDs(ctx, append(f.tags, desc.Tags...), a.jobCategory(ctx, job))
	if err != nil {
		return req, err
	}

	return tracker.StartRequest{
		Actor:       actor,
		Job:         job,
		Description: desc.Text,
		TagIDs:      tagIDs,
	}, nil
}

// jobCategory returns the category a job request points at, if it can tell
func (a *app) jobCategory(ctx context.Context, job models.JobRequest) uint {
	if job.CategoryID != 0 || job.CodeID == 0 {
		return job.CategoryID
	}
	code, err := a.store.ResolveCode(ctx, job.CodeID)
	if err != nil {
		return 0
	}
	return code.CategoryID
}

func newStartCmd(a *app) *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "start [Code@Category] [description #tags]",
		Short: "Clock in on a job",
		Long: `Clock in on a job. Anything still running for you is closed first.
Opens the interactive timer by default, use --no-ui for a simple start.

Examples:
  clockin start Hensley@WRP -e 3              # Job code Hensley in category WRP
  clockin start Kitchen -e 3 prep #dishes     # Category only, with a tag
  clockin start -c 2 -j 14 -e 3 --no-ui       # By IDs, no timer`,
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req, err := a.startRequest(ctx, &f, args)
			if err != nil {
				return err
			}
			handoff, err := a.machine.Start(ctx, req)
			if err != nil {
				return err
			}
			a.printHandoff(handoff, "Clocked in")
			if f.noUI {
				return nil
			}
			return a.runTimer(ctx, req.Actor, handoff.Session, nil)
		}),
	}
	f.register(cmd)
	return cmd
}

func newSwitchCmd(a *app) *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "switch [Code@Category] [description #tags]",
		Short: "Hand the shared clock to another job (role mode)",
		Long: `Close everything running on the shared clock and start a new job in one step.
Only available when CLOCKIN_MODE=role.

Example:
  clockin switch Dishes@Kitchen -P "Sam"`,
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req, err := a.startRequest(ctx, &f, args)
			if err != nil {
				return err
			}
			handoff, err := a.machine.Switch(ctx, req)
			if err != nil {
				return err
			}
			a.printHandoff(handoff, "Switched to")
			if f.noUI {
				return nil
			}
			return a.runTimer(ctx, req.Actor, handoff.Session, nil)
		}),
	}
	f.register(cmd)
	return cmd
}

func newStopCmd(a *app) *cobra.Command {
	var f actorFlags
	cmd := &cobra.Command{
		Use:   "stop [session-id]",
		Short: "Clock out",
		Long: `Clock out of the running session, or of the session with the given ID.
Interruptions end with 'clockin resume'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req := tracker.StopRequest{}
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				req.SessionID = id
			}
			actor, err := a.actor(ctx, &f, true)
			if err != nil {
				return err
			}
			req.Actor = actor

			session, err := a.machine.Stop(ctx, req)
			if err != nil {
				return err
			}
			a.printStopped(session)
			return nil
		}),
	}
	f.register(cmd)
	return cmd
}

func newInterruptCmd(a *app) *cobra.Command {
	var f sessionFlags
	var reason string
	cmd := &cobra.Command{
		Use:   "interrupt [Code@Category] [description]",
		Short: "Pause the current job for another one",
		Long: `Pause the running session and start an interruption on top of it.
'clockin resume' ends the interruption and picks the paused job back up.

Example:
  clockin interrupt Delivery@WRP -e 3 --reason "truck arrived"`,
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			req, err := a.startRequest(ctx, &f, args)
			if err != nil {
				return err
			}

			reason = strings.TrimSpace(reason)
			if reason == "" && !f.noUI {
				reason, err = tui.RunPrompt(tui.PromptOptions{
					Title:       "Why are you interrupting?",
					Placeholder: "Reason for the interruption (required)",
					Required:    true,
				})
				if isCancelled(err) {
					fmt.Fprintln(a.out, "❌ Interruption cancelled.")
					return nil
				} else if err != nil {
					return err
				}
			}

			interruption, err := a.machine.InterruptedStart(ctx, tracker.InterruptRequest{
				Actor:       req.Actor,
				Job:         req.Job,
				Reason:      reason,
				Description: req.Description,
				TagIDs:      req.TagIDs,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "⏸️  Paused session #%d\n", *interruption.InterruptedSessionID)
			fmt.Fprintf(a.out, "⏱️  Interruption #%d on %s: %s\n", interruption.ID, interruption.JobDisplayName(), interruption.InterruptionReason)
			if f.noUI {
				return nil
			}
			cur, err := a.machine.Current(ctx, req.Actor)
			if err != nil {
				return err
			}
			return a.runTimer(ctx, req.Actor, interruption, cur.Paused)
		}),
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the current job is interrupted")
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	var f actorFlags
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "End the interruption and resume the paused job",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			actor, err := a.actor(ctx, &f, true)
			if err != nil {
				return err
			}
			resumed, err := a.machine.InterruptedStop(ctx, actor)
			if err != nil {
				return err
			}
			a.printResumed(resumed)
			return nil
		}),
	}
	f.register(cmd)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var f actorFlags
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is on the clock",
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			actor, err := a.actor(ctx, &f, !watch)
			if err != nil {
				return err
			}
			cur, err := a.machine.Current(ctx, actor)
			if err != nil {
				return err
			}
			if cur.Active == nil {
				fmt.Fprintln(a.out, "Not clocked in")
				return nil
			}

			if watch {
				return a.runTimer(ctx, actor, cur.Active, cur.Paused)
			}

			s := cur.Active
			if s.IsInterruption() {
				fmt.Fprintf(a.out, "⏱️  Interrupted: #%d %s (%s)\n", s.ID, s.JobDisplayName(), s.InterruptionReason)
			} else {
				fmt.Fprintf(a.out, "⏱️  Currently on: #%d %s\n", s.ID, s.JobDisplayName())
			}
			fmt.Fprintf(a.out, "Started at: %s\n", s.StartedAt.In(a.loc).Format("15:04:05"))
			fmt.Fprintf(a.out, "Elapsed time: %s\n", tui.FormatDuration(s.Duration(a.now())))
			if len(s.Tags) > 0 {
				fmt.Fprintf(a.out, "Tags: %s\n", tagNames(s.Tags, " "))
			}
			if cur.Paused != nil {
				fmt.Fprintf(a.out, "⏸️  Paused: #%d %s since %s\n", cur.Paused.ID, cur.Paused.JobDisplayName(),
					cur.Paused.StartedAt.In(a.loc).Format("15:04:05"))
			}
			return nil
		}),
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Open the interactive timer")
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	var f actorFlags
	cmd := &cobra.Command{
		Use:   "tags <session-id> [tag...]",
		Short: "Replace the tags of a running or paused session",
		Long: `Replace the activity tags of a session that has not ended.
Tags are given by ID or name; unknown or disabled tags are skipped.
With no tags the session's tags are cleared.

Example:
  clockin tags 42 cleaning "#restock" -e 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.withApp(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			actor, err := a.actor(ctx, &f, true)
			if err != nil {
				return err
			}
			existing, err := a.store.SessionByID(ctx, id)
			if err != nil {
				return err
			}
			ids, err := a.tagIDs(ctx, args[1:], existing.CategoryID)
			if err != nil {
				return err
			}
			session, err := a.machine.UpdateTags(ctx, actor, id, ids)
			if err != nil {
				return err
			}
			if len(session.Tags) == 0 {
				fmt.Fprintf(a.out, "🏷️  Session #%d has no tags\n", session.ID)
				return nil
			}
			fmt.Fprintf(a.out, "🏷️  Session #%d tagged %s\n", session.ID, tagNames(session.Tags, " "))
			return nil
		}),
	}
	f.register(cmd)
	return cmd
}

// runTimer shows the live timer and carries out what the user picked
func (a *app) runTimer(ctx context.Context, actor tracker.Actor, session, paused *models.Session) error {
	action, err := tui.RunTimerTUI(session, paused)
	if err != nil {
		return err
	}

	switch action {
	case tui.ActionStop:
		stopped, err := a.machine.Stop(ctx, tracker.StopRequest{Actor: actor, SessionID: session.ID})
		if err != nil {
			return err
		}
		a.printStopped(stopped)
	case tui.ActionResume:
		resumed, err := a.machine.InterruptedStop(ctx, actor)
		if err != nil {
			return err
		}
		a.printResumed(resumed)
	default:
		fmt.Fprintf(a.out, "\n💡 Still on the clock: #%d %s\n", session.ID, session.JobDisplayName())
		fmt.Fprintln(a.out, "   Use 'clockin status' to check it or 'clockin stop' to clock out.")
	}
	return nil
}

func (a *app) printHandoff(h *tracker.Handoff, verb string) {
	for _, s := range h.Closed {
		fmt.Fprintf(a.out, "⏹️  Closed #%d %s after %s\n", s.ID, s.JobDisplayName(), tui.FormatDuration(s.Duration(a.now())))
	}
	s := h.Session
	fmt.Fprintf(a.out, "⏱️  %s: #%d %s\n", verb, s.ID, s.JobDisplayName())
	fmt.Fprintf(a.out, "Started at: %s\n", s.StartedAt.In(a.loc).Format("15:04:05"))
	if len(s.Tags) > 0 {
		fmt.Fprintf(a.out, "Tags: %s\n", tagNames(s.Tags, " "))
	}
}

func (a *app) printStopped(s *models.Session) {
	fmt.Fprintf(a.out, "⏹️  Clocked out of #%d %s\n", s.ID, s.JobDisplayName())
	fmt.Fprintf(a.out, "Session duration: %s\n", tui.FormatDuration(s.Duration(a.now())))
}

func (a *app) printResumed(r *tracker.Resumed) {
	fmt.Fprintf(a.out, "⏹️  Interruption #%d ended after %s\n", r.Interruption.ID,
		tui.FormatDuration(r.Interruption.Duration(a.now())))
	if r.Parent != nil {
		fmt.Fprintf(a.out, "▶️  Resumed #%d %s\n", r.Parent.ID, r.Parent.JobDisplayName())
	}
}

func tagNames(tags []models.ActivityTag, sep string) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, "#"+tag.Name)
	}
	return strings.Join(names, sep)
}

func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}
