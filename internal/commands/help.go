package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHelpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Show comprehensive help for clockin",
		Long:  `Display detailed help for all clockin commands and flags.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				if target, _, err := cmd.Root().Find(args); err == nil && target != cmd.Root() {
					_ = target.Help()
					return
				}
			}
			fmt.Fprint(a.out, customHelp)
		},
	}
}

const customHelp = `
clockin - CLI time clock for shift work

WHO (every session command):
  -e, --employee <id>       Employee ID (CLOCKIN_MODE=employee, the default)
      --pin <pin>           Employee PIN, prompted for when set and not given
  -P, --performer <name>    Who is working (CLOCKIN_MODE=role)

JOBS:
  Code@Category             Job code in a category, e.g. Hensley@WRP
  Category                  A whole category, e.g. Kitchen
  -c, --category <id>       Category by ID
  -j, --code <id>           Job code by ID

COMMANDS:

  start <job> [notes]       Clock in; anything running is closed first
    -t, --tag               Tags by ID or name (comma-separated)
    --no-ui                 Skip the interactive timer

    Notes may carry #tags:
      clockin start Prep@Kitchen -e 3 "mise en place #prep,morning"

  stop [session-id]         Clock out
  interrupt <job> [notes]   Pause the current job for another one
    -r, --reason            Why (prompted for when missing)
  resume                    End the interruption, resume the paused job
  switch <job> [notes]      Hand the shared clock to another job (role mode)
  status                    Show what is on the clock
    -w, --watch             Open the interactive timer
  tags <id> [tag...]        Replace the tags of a running or paused session

  Timer keys:
      s             Stop the session
      r             Resume the paused job (during an interruption)
      esc/q         Leave, the clock keeps running

  sessions                  List sessions
    --from, --to            Date range (dd/mm/yyyy, yyyy-mm-dd, today, 7 days)
    -e, --employee          Filter by employee
    -c, --category          Filter by category
    --closed                Only ended sessions
    --json                  JSON output

  insights hours            Hours per category
  insights tags             Tag usage and untagged sessions
  insights patterns         Starts by hour of day and day of week
    --from, --to, -c, --json

  timesheet                 Weekly hours per job and day
    --week                  Any day of the week to show

  jobs                      List categories and job codes
  tag list                  List active tags

  admin ...                 Jobs, tags and employees (--admin-token when configured)
    import-jobs <file.csv>
    category add|disable|enable
    code add|disable|enable
    tag add|disable|enable
    employee add|list|disable|enable|set-pin|clear-pin

  version                   Show version
  help                      Show this help

ENVIRONMENT:
  CLOCKIN_DB_PATH           Database file (default ~/.clockin/clockin.db)
  CLOCKIN_MODE              employee | role
  CLOCKIN_TIMEZONE          Zone for dates and reports (default Local)
  CLOCKIN_LOG_LEVEL         debug | info | warn | error
  CLOCKIN_LOG_FORMAT        text | json
  CLOCKIN_ADMIN_TOKEN       Required by admin commands when set

`
