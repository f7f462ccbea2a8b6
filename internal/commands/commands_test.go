package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/balkashynov/clockin/internal/models"
	"github.com/balkashynov/clockin/internal/tracker"
)

// setupEnv points the CLI at a fresh database
func setupEnv(t *testing.T, mode string) {
	t.Helper()
	t.Setenv("CLOCKIN_DB_PATH", filepath.Join(t.TempDir(), "clockin.db"))
	t.Setenv("CLOCKIN_MODE", mode)
	t.Setenv("CLOCKIN_LOG_LEVEL", "error")
	t.Setenv("CLOCKIN_TIMEZONE", "UTC")
	t.Setenv("CLOCKIN_ADMIN_TOKEN", "")
	t.Setenv("CLOCKIN_PIN_COST", "4")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("clockin %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func expectOutput(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("output missing %q:\n%s", w, out)
		}
	}
}

func seedJobs(t *testing.T) {
	t.Helper()
	mustRun(t, "admin", "category", "add", "WRP")
	mustRun(t, "admin", "category", "add", "Kitchen")
	mustRun(t, "admin", "code", "add", "Hensley", "-c", "1")
}

func TestEmployeeClockFlow(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "tag", "add", "plumbing")
	expectOutput(t, mustRun(t, "admin", "employee", "add", "Dana", "Reyes"), "ID: 1")

	out := mustRun(t, "start", "Hensley@WRP", "-e", "1", "--no-ui", "fix sink #plumbing")
	expectOutput(t, out, "Clocked in: #1 WRP - Hensley", "#plumbing")

	out = mustRun(t, "interrupt", "Kitchen", "-e", "1", "--reason", "delivery", "--no-ui")
	expectOutput(t, out, "Paused session #1", "Interruption #2 on Kitchen: delivery")

	out = mustRun(t, "status", "-e", "1")
	expectOutput(t, out, "Interrupted: #2 Kitchen (delivery)", "Paused: #1 WRP - Hensley")

	out = mustRun(t, "resume", "-e", "1")
	expectOutput(t, out, "Interruption #2 ended", "Resumed #1 WRP - Hensley")

	out = mustRun(t, "stop", "-e", "1")
	expectOutput(t, out, "Clocked out of #1 WRP - Hensley")

	_, err := runCLI(t, "stop", "-e", "1")
	if !errors.Is(err, tracker.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	out = mustRun(t, "sessions", "--json")
	var listing struct {
		Count    int           `json:"count"`
		Sessions []jsonSession `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, out)
	}
	if listing.Count != 2 {
		t.Fatalf("expected 2 sessions, got %d", listing.Count)
	}
	first := listing.Sessions[0]
	if first.Status != string(models.StatusClosed) || first.Description != "fix sink" || len(first.Tags) != 1 {
		t.Fatalf("unexpected first session %+v", first)
	}
	if second := listing.Sessions[1]; second.InterruptedSessionID == nil || *second.InterruptedSessionID != first.ID {
		t.Fatalf("interruption not linked: %+v", second)
	}
}

func TestStartAutoClosesPrevious(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")

	mustRun(t, "start", "WRP", "-e", "1", "--no-ui")
	out := mustRun(t, "start", "Kitchen", "-e", "1", "--no-ui")
	expectOutput(t, out, "Closed #1 WRP", "Clocked in: #2 Kitchen")
}

func TestStartValidation(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")

	if _, err := runCLI(t, "start", "WRP", "--no-ui"); !errors.Is(err, errUsage) {
		t.Fatalf("missing employee should be a usage error, got %v", err)
	}
	if _, err := runCLI(t, "start", "-e", "1", "--no-ui"); !errors.Is(err, errUsage) {
		t.Fatalf("missing job should be a usage error, got %v", err)
	}
	if _, err := runCLI(t, "start", "Nope", "-e", "1", "--no-ui"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("unknown category should be not found, got %v", err)
	}
	if _, err := runCLI(t, "start", "-e", "1", "-c", "2", "-j", "1", "--no-ui"); !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("code outside category should be invalid, got %v", err)
	}

	mustRun(t, "admin", "category", "disable", "1")
	if _, err := runCLI(t, "start", "WRP", "-e", "1", "--no-ui"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("disabled category should be not found, got %v", err)
	}
}

func TestInterruptNeedsReasonWithoutUI(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")
	mustRun(t, "start", "WRP", "-e", "1", "--no-ui")

	if _, err := runCLI(t, "interrupt", "Kitchen", "-e", "1", "--no-ui"); !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEmployeePin(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")
	mustRun(t, "admin", "employee", "set-pin", "1", "4821")

	if _, err := runCLI(t, "start", "WRP", "-e", "1", "--no-ui"); !errors.Is(err, errUsage) {
		t.Fatalf("missing PIN should be a usage error, got %v", err)
	}
	if _, err := runCLI(t, "start", "WRP", "-e", "1", "--pin", "0000", "--no-ui"); !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("wrong PIN should be rejected, got %v", err)
	}
	mustRun(t, "start", "WRP", "-e", "1", "--pin", "4821", "--no-ui")

	mustRun(t, "admin", "employee", "clear-pin", "1")
	mustRun(t, "stop", "-e", "1")
}

func TestAdminToken(t *testing.T) {
	setupEnv(t, "employee")
	t.Setenv("CLOCKIN_ADMIN_TOKEN", "s3cret")

	if _, err := runCLI(t, "admin", "category", "add", "WRP"); err == nil {
		t.Fatal("admin command without token should fail")
	}
	if _, err := runCLI(t, "admin", "category", "add", "WRP", "--admin-token", "wrong"); err == nil {
		t.Fatal("admin command with wrong token should fail")
	}
	mustRun(t, "admin", "category", "add", "WRP", "--admin-token", "s3cret")

	expectOutput(t, mustRun(t, "jobs"), "WRP")
}

func TestRoleModeSwitch(t *testing.T) {
	setupEnv(t, "role")
	seedJobs(t)

	out := mustRun(t, "start", "Kitchen", "-P", "Sam", "--no-ui")
	expectOutput(t, out, "Clocked in: #1 Kitchen")

	out = mustRun(t, "switch", "Hensley@WRP", "-P", "Alex", "--no-ui")
	expectOutput(t, out, "Closed #1 Kitchen", "Switched to: #2 WRP - Hensley")

	out = mustRun(t, "status")
	expectOutput(t, out, "Currently on: #2 WRP - Hensley")

	out = mustRun(t, "sessions", "--json")
	if !strings.Contains(out, `"performer_name": "Alex"`) {
		t.Fatalf("performer not recorded:\n%s", out)
	}
}

func TestSwitchRequiresRoleMode(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")

	if _, err := runCLI(t, "switch", "WRP", "-e", "1", "--no-ui"); !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTagsCommand(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")
	mustRun(t, "admin", "tag", "add", "cleaning")
	mustRun(t, "admin", "tag", "add", "restock", "-c", "1")
	mustRun(t, "start", "WRP", "-e", "1", "--no-ui")

	if _, err := runCLI(t, "tags", "1", "cleaning"); !errors.Is(err, errUsage) {
		t.Fatalf("tags without --employee should be a usage error, got %v", err)
	}

	out := mustRun(t, "tags", "1", "cleaning", "#restock", "unknown", "-e", "1")
	expectOutput(t, out, "#cleaning", "#restock")

	out = mustRun(t, "tags", "1", "-e", "1")
	expectOutput(t, out, "has no tags")

	out = mustRun(t, "interrupt", "Kitchen", "-e", "1", "-r", "spill", "-t", "cleaning", "--no-ui")
	expectOutput(t, out, "Interruption #2 on Kitchen: spill")
	expectOutput(t, mustRun(t, "status", "-e", "1"), "Tags: #cleaning")

	mustRun(t, "resume", "-e", "1")
	mustRun(t, "stop", "-e", "1")
	if _, err := runCLI(t, "tags", "1", "cleaning", "-e", "1"); !errors.Is(err, tracker.ErrInvalidTransition) {
		t.Fatalf("closed session tags should be final, got %v", err)
	}
}

func TestTagsRequiresSessionOwner(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")
	mustRun(t, "admin", "employee", "add", "Lee")
	mustRun(t, "admin", "tag", "add", "cleaning")
	mustRun(t, "admin", "employee", "set-pin", "1", "4821")
	mustRun(t, "start", "WRP", "-e", "1", "--pin", "4821", "--no-ui")

	if _, err := runCLI(t, "tags", "1", "cleaning", "-e", "1"); !errors.Is(err, errUsage) {
		t.Fatalf("retagging without the PIN should be a usage error, got %v", err)
	}
	if _, err := runCLI(t, "tags", "1", "cleaning", "-e", "1", "--pin", "0000"); !errors.Is(err, tracker.ErrValidation) {
		t.Fatalf("retagging with a wrong PIN should be rejected, got %v", err)
	}
	if _, err := runCLI(t, "tags", "1", "cleaning", "-e", "2"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("another employee should not see the session, got %v", err)
	}

	out := mustRun(t, "status", "-e", "1", "--pin", "4821")
	if strings.Contains(out, "Tags:") {
		t.Fatalf("session was retagged without the PIN: %q", out)
	}

	out = mustRun(t, "tags", "1", "cleaning", "-e", "1", "--pin", "4821")
	expectOutput(t, out, "Session #1 tagged #cleaning")
}

func TestImportJobsAndList(t *testing.T) {
	setupEnv(t, "employee")
	csvPath := filepath.Join(t.TempDir(), "jobs.csv")
	csv := "JobcodeLevel_0,JobcodeLevel_0_Alias,JobcodeLevel_1,JobcodeLevel_1_Alias\n" +
		"WRP,Water,Hensley,H1\n" +
		"WRP,Water,Daly,\n" +
		"Events,,,\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, "admin", "import-jobs", csvPath)
	expectOutput(t, out, "Categories: 2 created", "Job codes: 2 created")

	out = mustRun(t, "jobs")
	expectOutput(t, out, "Events", "WRP (Water)", "Hensley@WRP (H1)", "Daly@WRP")
}

func TestInsightsCommands(t *testing.T) {
	setupEnv(t, "employee")
	seedJobs(t)
	mustRun(t, "admin", "employee", "add", "Dana")
	mustRun(t, "admin", "tag", "add", "prep")
	mustRun(t, "start", "Kitchen", "-e", "1", "-t", "prep", "--no-ui")
	mustRun(t, "stop", "-e", "1")
	mustRun(t, "start", "WRP", "-e", "1", "--no-ui")

	out := mustRun(t, "insights", "hours", "--json", "--from", "today")
	var hours struct {
		RoleHours []struct {
			Name string `json:"role_name"`
		} `json:"role_hours"`
	}
	if err := json.Unmarshal([]byte(out), &hours); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, out)
	}
	if len(hours.RoleHours) != 1 || hours.RoleHours[0].Name != "Kitchen" {
		t.Fatalf("only the closed Kitchen session should count: %+v", hours.RoleHours)
	}

	out = mustRun(t, "insights", "tags", "--json")
	expectOutput(t, out, `"sessions_without_tags": 0`, `"total_sessions": 1`, `"name": "prep"`)

	out = mustRun(t, "insights", "patterns")
	expectOutput(t, out, "Starts by hour", time.Now().UTC().Weekday().String())

	if _, err := runCLI(t, "insights", "hours", "--from", "today", "--to", "yesterday"); !errors.Is(err, errUsage) {
		t.Fatalf("inverted range should be a usage error, got %v", err)
	}
}

func TestBuildTimesheet(t *testing.T) {
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(day, hours int) models.Session {
		start := monday.AddDate(0, 0, day)
		end := start.Add(time.Duration(hours) * time.Hour)
		return models.Session{
			StartedAt:  start,
			EndedAt:    &end,
			Status:     models.StatusClosed,
			CategoryID: 1,
			Category:   models.Category{ID: 1, Name: "WRP"},
		}
	}
	open := at(1, 0)
	open.EndedAt = nil

	ts := buildTimesheet([]models.Session{at(0, 2), at(0, 1), at(2, 4), open}, time.UTC)
	if len(ts.jobs) != 1 || ts.jobs[0] != "WRP" {
		t.Fatalf("unexpected jobs %v", ts.jobs)
	}
	if ts.hours["WRP"][time.Monday] != 3 || ts.hours["WRP"][time.Wednesday] != 4 || ts.hours["WRP"][time.Tuesday] != 0 {
		t.Fatalf("unexpected hours %v", ts.hours["WRP"])
	}

	var buf bytes.Buffer
	displayTimesheet(&buf, ts, monday)
	expectOutput(t, buf.String(), "Mon", "Fri", "7.0", "Week of Mar 2 to Mar 8, 2026")
	if strings.Contains(buf.String(), "Sat") {
		t.Fatal("weekend without work should be hidden")
	}
}

func TestGetWeekStart(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 18, 0, 0, 0, time.UTC)
	if got := getWeekStart(sunday); !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", got)
	}
	monday := time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
	if got := getWeekStart(monday); !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", got)
	}
}

func TestVersionAndHelp(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	expectOutput(t, mustRun(t, "version"), "clockin 1.2.3")
	expectOutput(t, mustRun(t, "help"), "CLOCKIN_MODE", "interrupt")
}
