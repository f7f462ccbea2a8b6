package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/balkashynov/clockin/internal/models"
)

// SessionTx is the view of the session table a transition gets while it
// holds its scope. Every call runs inside one database transaction.
type SessionTx interface {
	LoadOpenSessions() ([]models.Session, error)
	Get(id uint) (*models.Session, error)
	Create(session *models.Session) error
	Update(session *models.Session) error
	ReplaceTags(session *models.Session, tags []models.ActivityTag) error
}

// InScope runs fn as a single atomic unit for scope: the scope lock is held
// and a transaction is open for the whole call. fn's writes commit together
// or not at all. Lock conflicts reported by SQLite retry the whole unit.
func (d *DB) InScope(ctx context.Context, scope models.Scope, fn func(tx SessionTx) error) error {
	unlock, err := d.locks.lock(ctx, scope.Key())
	if err != nil {
		return fmt.Errorf("failed to acquire scope %s: %w", scope, err)
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		err = d.gorm.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(&sessionTx{db: gtx, scope: scope})
		})
		if err == nil || !isLockConflict(err) || attempt >= d.retries {
			return err
		}

		d.logger.Warn("session transaction conflict, retrying",
			"scope", scope.Key(), "attempt", attempt+1, "error", err)

		select {
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// isLockConflict recognises SQLITE_BUSY / SQLITE_LOCKED from the driver
func isLockConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

type sessionTx struct {
	db    *gorm.DB
	scope models.Scope
}

// LoadOpenSessions returns the scope's open and paused sessions, newest first
func (t *sessionTx) LoadOpenSessions() ([]models.Session, error) {
	var sessions []models.Session
	err := withSessionRelations(t.db).
		Where("scope_key = ? AND status <> ?", t.scope.Key(), models.StatusClosed).
		Order("started_at DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load open sessions: %w", err)
	}
	return sessions, nil
}

// Get loads one session of this scope by id
func (t *sessionTx) Get(id uint) (*models.Session, error) {
	var session models.Session
	err := withSessionRelations(t.db).
		Where("scope_key = ?", t.scope.Key()).
		First(&session, id).Error
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return &session, nil
}

// Create inserts a session into this scope and reloads it with relations
func (t *sessionTx) Create(session *models.Session) error {
	session.ScopeKey = t.scope.Key()
	if session.Status == "" {
		session.Status = models.StatusOpen
	}
	tags := session.Tags
	session.Tags = nil

	if err := t.db.Omit(clause.Associations).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if len(tags) > 0 {
		if err := t.db.Model(session).Association("Tags").Append(tags); err != nil {
			return fmt.Errorf("failed to attach tags: %w", err)
		}
	}

	fresh, err := t.Get(session.ID)
	if err != nil {
		return err
	}
	*session = *fresh
	return nil
}

// Update writes the mutable columns of an open session. Rows that are
// already closed are never touched, so an end time once set stays set.
func (t *sessionTx) Update(session *models.Session) error {
	if session.Status == models.StatusClosed && session.EndedAt == nil {
		return fmt.Errorf("session #%d: closed without an end time", session.ID)
	}
	if session.Status != models.StatusClosed && session.EndedAt != nil {
		return fmt.Errorf("session #%d: end time set on an open session", session.ID)
	}

	res := t.db.Model(&models.Session{}).
		Where("id = ? AND scope_key = ? AND status <> ?", session.ID, t.scope.Key(), models.StatusClosed).
		Updates(map[string]any{
			"status":      session.Status,
			"ended_at":    session.EndedAt,
			"description": session.Description,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update session #%d: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: #%d", ErrSessionClosed, session.ID)
	}
	return nil
}

// ReplaceTags swaps the session's tag set wholesale
func (t *sessionTx) ReplaceTags(session *models.Session, tags []models.ActivityTag) error {
	assoc := t.db.Model(session).Association("Tags")
	var err error
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return fmt.Errorf("failed to replace tags on session #%d: %w", session.ID, err)
	}
	session.Tags = tags
	return nil
}

// withSessionRelations preloads everything a session is displayed with
func withSessionRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Category").
		Preload("JobCode").
		Preload("Employee").
		Preload("Tags").
		Preload("InterruptedSession").
		Preload("InterruptedSession.Category").
		Preload("InterruptedSession.JobCode")
}
