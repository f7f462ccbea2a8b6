package parser

import (
	"testing"
	"time"
)

func TestParseJobSpec(t *testing.T) {
	tests := []struct {
		in      string
		asCode  bool
		want    JobSpec
		wantErr bool
	}{
		{"Hensley@WRP", false, JobSpec{Code: "Hensley", Category: "WRP"}, false},
		{" Hensley @ WRP ", false, JobSpec{Code: "Hensley", Category: "WRP"}, false},
		{"@Kitchen", false, JobSpec{Category: "Kitchen"}, false},
		{"Kitchen", false, JobSpec{Category: "Kitchen"}, false},
		{"Hensley", true, JobSpec{Code: "Hensley"}, false},
		{"Hensley@", false, JobSpec{}, true},
		{"a@b@c", false, JobSpec{}, true},
		{"", false, JobSpec{}, true},
	}
	for _, tt := range tests {
		got, err := ParseJobSpec(tt.in, tt.asCode)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: got %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseDescription(t *testing.T) {
	got := ParseDescription("Fixing the  sink #plumbing,urgent and more #Urgent #leak")
	if got.Text != "Fixing the sink and more" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if len(got.Tags) != 3 || got.Tags[0] != "plumbing" || got.Tags[1] != "urgent" || got.Tags[2] != "leak" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}

	plain := ParseDescription("no tags here")
	if plain.Text != "no tags here" || len(plain.Tags) != 0 {
		t.Fatalf("unexpected parse %+v", plain)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in   string
		want time.Time
	}{
		{"today", day(2026, 3, 10)},
		{"Yesterday", day(2026, 3, 9)},
		{"15/12/2025", day(2025, 12, 15)},
		{"2026-02-28", day(2026, 2, 28)},
		{"7 days", day(2026, 3, 3)},
		{"2 weeks ago", day(2026, 2, 24)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "31/02/2026", "13/13/2026", "soon", "2026-1-1"} {
		if _, err := ParseDate(bad, now); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
