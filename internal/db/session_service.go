package db

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/balkashynov/clockin/internal/models"
)

// SessionFilter narrows ListSessions. Zero values mean "no filter".
type SessionFilter struct {
	ScopeKey    string
	EmployeeID  uint
	CategoryID  uint
	StartedFrom time.Time // inclusive
	StartedTo   time.Time // exclusive
	ClosedOnly  bool
	Limit       int
}

// SessionByID returns a session with all display relations loaded
func (d *DB) SessionByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := withSessionRelations(d.gorm.WithContext(ctx)).First(&session, id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &session, nil
}

// ScopeOfSession returns the scope a session was recorded in
func (d *DB) ScopeOfSession(ctx context.Context, id uint) (models.Scope, error) {
	var session models.Session
	if err := d.gorm.WithContext(ctx).Select("id", "scope_key", "employee_id").First(&session, id).Error; err != nil {
		return models.Scope{}, notFound(err, "session", id)
	}
	if session.ScopeKey == models.RoleScopeKey || session.EmployeeID == nil {
		return models.RoleScope(), nil
	}
	return models.EmployeeScope(*session.EmployeeID), nil
}

// OpenSessions returns a scope's open and paused sessions, newest first.
// It reads outside any transition; use InScope for read-modify-write.
func (d *DB) OpenSessions(ctx context.Context, scope models.Scope) ([]models.Session, error) {
	var sessions []models.Session
	err := withSessionRelations(d.gorm.WithContext(ctx)).
		Where("scope_key = ? AND status <> ?", scope.Key(), models.StatusClosed).
		Order("started_at DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load open sessions: %w", err)
	}
	return sessions, nil
}

// ListSessions returns sessions matching the filter, oldest first. With a
// Limit only the newest Limit sessions are kept.
func (d *DB) ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, error) {
	q := withSessionRelations(d.gorm.WithContext(ctx))

	if f.ScopeKey != "" {
		q = q.Where("scope_key = ?", f.ScopeKey)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if !f.StartedFrom.IsZero() {
		q = q.Where("started_at >= ?", f.StartedFrom.UTC())
	}
	if !f.StartedTo.IsZero() {
		q = q.Where("started_at < ?", f.StartedTo.UTC())
	}
	if f.ClosedOnly {
		q = q.Where("status = ? AND ended_at IS NOT NULL", models.StatusClosed)
	}
	if f.Limit > 0 {
		q = q.Order("started_at DESC, id DESC").Limit(f.Limit)
	} else {
		q = q.Order("started_at ASC, id ASC")
	}

	var sessions []models.Session
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if f.Limit > 0 {
		slices.Reverse(sessions)
	}
	return sessions, nil
}
