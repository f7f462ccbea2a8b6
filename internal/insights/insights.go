// Package insights aggregates closed sessions into read-only reports.
// Nothing here writes; open and paused sessions never count.
package insights

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/balkashynov/clockin/internal/db"
	"github.com/balkashynov/clockin/internal/models"
)

// SessionReader loads sessions for aggregation
type SessionReader interface {
	ListSessions(ctx context.Context, f db.SessionFilter) ([]models.Session, error)
}

// Filter limits which closed sessions are aggregated. From and To are
// calendar dates, inclusive, compared against the session's start date.
type Filter struct {
	From       *time.Time
	To         *time.Time
	CategoryID uint // honoured by TagDistribution and Patterns
}

// CategoryHours is the total closed time recorded against one category
type CategoryHours struct {
	CategoryID   uint    `json:"role_id"`
	CategoryName string  `json:"role_name"`
	TotalSeconds float64 `json:"total_seconds"`
	TotalHours   float64 `json:"total_hours"`
}

// TagCount is how many sessions carried a tag
type TagCount struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	SessionCount int    `json:"session_count"`
}

// TagDistribution counts sessions per tag
type TagDistribution struct {
	Tags     []TagCount `json:"tag_distribution"`
	Untagged int        `json:"sessions_without_tags"`
	Total    int        `json:"total_sessions"`
}

// HourCount buckets sessions by the hour they started
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount buckets sessions by the weekday they started; 1 is Sunday
type DayCount struct {
	Day       string `json:"day"`
	DayNumber int    `json:"day_number"`
	Count     int    `json:"count"`
}

// Patterns shows when work starts
type Patterns struct {
	Hours []HourCount `json:"hour_distribution"`
	Days  []DayCount  `json:"day_distribution"`
}

// Projector runs the aggregations
type Projector struct {
	reader SessionReader
	loc    *time.Location
}

// New creates a projector that interprets dates and hours in loc
func New(reader SessionReader, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.Local
	}
	return &Projector{reader: reader, loc: loc}
}

// HoursByCategory totals closed time per category, largest first
func (p *Projector) HoursByCategory(ctx context.Context, f Filter) ([]CategoryHours, error) {
	f.CategoryID = 0
	sessions, err := p.load(ctx, f)
	if err != nil {
		return nil, err
	}
	return SumByCategory(sessions), nil
}

// TagDistribution counts closed sessions per tag
func (p *Projector) TagDistribution(ctx context.Context, f Filter) (*TagDistribution, error) {
	sessions, err := p.load(ctx, f)
	if err != nil {
		return nil, err
	}
	return CountTags(sessions), nil
}

// Patterns buckets closed sessions by start hour and weekday
func (p *Projector) Patterns(ctx context.Context, f Filter) (*Patterns, error) {
	sessions, err := p.load(ctx, f)
	if err != nil {
		return nil, err
	}
	return BucketStarts(sessions, p.loc), nil
}

func (p *Projector) load(ctx context.Context, f Filter) ([]models.Session, error) {
	q := db.SessionFilter{ClosedOnly: true, CategoryID: f.CategoryID}
	if f.From != nil {
		q.StartedFrom = startOfDay(*f.From, p.loc)
	}
	if f.To != nil {
		q.StartedTo = startOfDay(*f.To, p.loc).AddDate(0, 0, 1)
	}
	return p.reader.ListSessions(ctx, q)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SumByCategory totals the durations of closed sessions per category
func SumByCategory(sessions []models.Session) []CategoryHours {
	byID := make(map[uint]*CategoryHours)
	for _, s := range sessions {
		if s.Status != models.StatusClosed || s.EndedAt == nil {
			continue
		}
		row, ok := byID[s.CategoryID]
		if !ok {
			row = &CategoryHours{CategoryID: s.CategoryID, CategoryName: s.Category.Name}
			byID[s.CategoryID] = row
		}
		row.TotalSeconds += s.EndedAt.Sub(s.StartedAt).Seconds()
	}

	out := make([]CategoryHours, 0, len(byID))
	for _, row := range byID {
		row.TotalHours = roundTo(row.TotalSeconds/3600, 2)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeconds != out[j].TotalSeconds {
			return out[i].TotalSeconds > out[j].TotalSeconds
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// CountTags counts closed sessions per attached tag, plus the untagged ones
func CountTags(sessions []models.Session) *TagDistribution {
	dist := &TagDistribution{Tags: []TagCount{}}
	byID := make(map[uint]*TagCount)

	for _, s := range sessions {
		if s.Status != models.StatusClosed || s.EndedAt == nil {
			continue
		}
		dist.Total++
		if len(s.Tags) == 0 {
			dist.Untagged++
			continue
		}
		for _, tag := range s.Tags {
			row, ok := byID[tag.ID]
			if !ok {
				row = &TagCount{ID: tag.ID, Name: tag.Name, Color: tag.Color}
				byID[tag.ID] = row
			}
			row.SessionCount++
		}
	}

	for _, row := range byID {
		dist.Tags = append(dist.Tags, *row)
	}
	sort.Slice(dist.Tags, func(i, j int) bool {
		if dist.Tags[i].SessionCount != dist.Tags[j].SessionCount {
			return dist.Tags[i].SessionCount > dist.Tags[j].SessionCount
		}
		return dist.Tags[i].Name < dist.Tags[j].Name
	})
	return dist
}

// BucketStarts counts closed sessions by start hour (0-23) and weekday
// (1 = Sunday ... 7 = Saturday) in loc. Every bucket is present.
func BucketStarts(sessions []models.Session, loc *time.Location) *Patterns {
	p := &Patterns{
		Hours: make([]HourCount, 24),
		Days:  make([]DayCount, 7),
	}
	for h := range p.Hours {
		p.Hours[h].Hour = h
	}
	for d := range p.Days {
		p.Days[d] = DayCount{Day: time.Weekday(d).String(), DayNumber: d + 1}
	}

	for _, s := range sessions {
		if s.Status != models.StatusClosed || s.EndedAt == nil {
			continue
		}
		start := s.StartedAt.In(loc)
		p.Hours[start.Hour()].Count++
		p.Days[int(start.Weekday())].Count++
	}
	return p
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
