package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/clockin/internal/models"
	"github.com/balkashynov/clockin/internal/parser"
	"github.com/balkashynov/clockin/internal/tracker"
	"github.com/balkashynov/clockin/internal/tui"
)

// actorFlags identify who a session command acts for
type actorFlags struct {
	employee  uint
	pin       string
	performer string
}

func (f *actorFlags) register(cmd *cobra.Command) {
	cmd.Flags().UintVarP(&f.employee, "employee", "e", 0, "Employee ID (employee mode)")
	cmd.Flags().StringVar(&f.pin, "pin", "", "Employee PIN, prompted for when required and not given")
	cmd.Flags().StringVarP(&f.performer, "performer", "P", "", "Name of who is working (role mode)")
}

// actor builds the tracker actor and checks the employee PIN if one is set
func (a *app) actor(ctx context.Context, f *actorFlags, noUI bool) (tracker.Actor, error) {
	if a.cfg.RoleMode() {
		return tracker.Actor{PerformerName: strings.TrimSpace(f.performer)}, nil
	}
	if f.employee == 0 {
		return tracker.Actor{}, usageError("--employee is required")
	}

	employee, err := a.store.GetEmployee(ctx, f.employee)
	if err != nil {
		return tracker.Actor{}, err
	}
	if employee.HasPin() {
		pin := f.pin
		if pin == "" {
			if noUI {
				return tracker.Actor{}, usageError("--pin is required for employee #%d", employee.ID)
			}
			pin, err = tui.RunPrompt(tui.PromptOptions{
				Title:     fmt.Sprintf("PIN for %s", employee.FullName()),
				CharLimit: 8,
				Required:  true,
				Secret:    true,
			})
			if err != nil {
				return tracker.Actor{}, err
			}
		}
		ok, err := a.store.VerifyPin(ctx, employee.ID, pin)
		if err != nil {
			return tracker.Actor{}, err
		}
		if !ok {
			a.logger.Warn("PIN rejected", "employee_id", employee.ID)
			return tracker.Actor{}, fmt.Errorf("%w: wrong PIN", tracker.ErrValidation)
		}
	}
	return tracker.Actor{EmployeeID: employee.ID}, nil
}

// jobFlags select a job by id or by name
type jobFlags struct {
	category uint
	code     uint
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().UintVarP(&f.category, "category", "c", 0, "Category (role) ID")
	cmd.Flags().UintVarP(&f.code, "code", "j", 0, "Job code ID")
}

// job returns the requested job from the ids or a "Code@Category" argument
func (a *app) job(ctx context.Context, f *jobFlags, spec string) (models.JobRequest, error) {
	if spec == "" {
		return models.JobRequest{CategoryID: f.category, CodeID: f.code}, nil
	}
	if f.category != 0 || f.code != 0 {
		return models.JobRequest{}, usageError("use either a job name or --category/--code, not both")
	}

	parsed, err := parser.ParseJobSpec(spec, false)
	if err != nil {
		return models.JobRequest{}, usageError("%v", err)
	}
	return a.store.FindJobByNames(ctx, parsed.Code, parsed.Category)
}

// tagIDs resolves --tag values, given as ids or names, plus #tags from text.
// Unknown names are skipped the same way unknown ids are.
func (a *app) tagIDs(ctx context.Context, values []string, categoryID uint) ([]uint, error) {
	var ids []uint
	var names []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "#"))
			if part == "" {
				continue
			}
			if id, err := strconv.ParseUint(part, 10, 32); err == nil {
				ids = append(ids, uint(id))
			} else {
				names = append(names, part)
			}
		}
	}
	if len(names) > 0 {
		found, err := a.store.FindTagIDsByName(ctx, names, categoryID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

// describe splits free text into a description and #tag names
func describe(args []string) parser.ParsedDescription {
	return parser.ParseDescription(strings.Join(args, " "))
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, usageError("invalid ID '%s'", s)
	}
	return uint(id), nil
}

func isCancelled(err error) bool {
	return errors.Is(err, tui.ErrPromptCancelled)
}
