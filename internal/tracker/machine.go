package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/balkashynov/clockin/internal/db"
	"github.com/balkashynov/clockin/internal/models"
)

// Store is the session persistence the machine drives. InScope is the
// per-scope atomicity boundary; the read methods never take it.
type Store interface {
	InScope(ctx context.Context, scope models.Scope, fn func(tx db.SessionTx) error) error
	OpenSessions(ctx context.Context, scope models.Scope) ([]models.Session, error)
	ScopeOfSession(ctx context.Context, id uint) (models.Scope, error)
}

// Taxonomy resolves job references; inactive records count as missing
type Taxonomy interface {
	ResolveCategory(ctx context.Context, id uint) (*models.Category, error)
	ResolveCode(ctx context.Context, id uint) (*models.JobCode, error)
}

// TagResolver returns the active subset of the requested tags
type TagResolver interface {
	ResolveTags(ctx context.Context, ids []uint) ([]models.ActivityTag, error)
}

// Directory looks up employees
type Directory interface {
	GetEmployee(ctx context.Context, id uint) (*models.Employee, error)
	ActiveEmployee(ctx context.Context, id uint) (*models.Employee, error)
}

// Mode selects the identity model of a deployment
type Mode int

const (
	EmployeeMode Mode = iota // one scope per employee
	RoleMode                 // one shared scope, free-text performers
)

func (m Mode) String() string {
	if m == RoleMode {
		return "role"
	}
	return "employee"
}

// Actor identifies who a request acts for
type Actor struct {
	EmployeeID    uint   // employee mode
	PerformerName string // role mode, optional
}

// StartRequest opens a new session
type StartRequest struct {
	Actor       Actor
	Job         models.JobRequest
	Description string
	TagIDs      []uint
}

// StopRequest closes the running session, or the given one
type StopRequest struct {
	Actor     Actor
	SessionID uint
}

// InterruptRequest pauses the running session and opens an interruption
type InterruptRequest struct {
	Actor       Actor
	Job         models.JobRequest
	Reason      string
	Description string
	TagIDs      []uint
}

// Handoff is the outcome of Start and Switch
type Handoff struct {
	Closed  []models.Session // sessions closed to make room
	Session *models.Session  // the new running session
}

// Resumed is the outcome of InterruptedStop
type Resumed struct {
	Interruption *models.Session // now closed
	Parent       *models.Session // running again; nil if it no longer exists
}

// Current describes what a scope is doing right now
type Current struct {
	Active *models.Session // running session, possibly an interruption
	Paused *models.Session // session under the running interruption
}

// Machine owns every session transition
type Machine struct {
	store     Store
	taxonomy  Taxonomy
	tags      TagResolver
	employees Directory
	mode      Mode
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Machine
type Option func(*Machine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger sets the logger transitions are reported to
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// New creates a state machine over the given collaborators
func New(store Store, taxonomy Taxonomy, tags TagResolver, employees Directory, mode Mode, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		taxonomy:  taxonomy,
		tags:      tags,
		employees: employees,
		mode:      mode,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start closes whatever is running in the actor's scope and opens a new
// session. Stale sessions are closed rather than rejected so a crashed
// client can always clock in again.
func (m *Machine) Start(ctx context.Context, req StartRequest) (*Handoff, error) {
	scope, err := m.scopeFor(ctx, req.Actor, true)
	if err != nil {
		return nil, err
	}
	job, err := m.resolveJob(ctx, req.Job)
	if err != nil {
		return nil, err
	}
	tags, err := m.resolveTags(ctx, req.TagIDs)
	if err != nil {
		return nil, err
	}

	var out *Handoff
	err = m.store.InScope(ctx, scope, func(tx db.SessionTx) error {
		out = &Handoff{}
		open, err := tx.LoadOpenSessions()
		if err != nil {
			return err
		}
		now := m.clock()

		out.Closed, err = closeRunning(tx, open, now)
		if err != nil {
			return err
		}

		session := m.newSession(req.Actor, job, now, req.Description)
		session.Tags = tags
		if err := tx.Create(session); err != nil {
			return err
		}
		out.Session = session

		return verify(tx)
	})
	if err != nil {
		return nil, err
	}

	for _, s := range out.Closed {
		m.logger.Warn("auto-closed open session on start",
			"scope", scope.Key(), "session_id", s.ID, "started_at", s.StartedAt)
	}
	m.logger.Info("session started",
		"scope", scope.Key(), "session_id", out.Session.ID, "job", job.String())
	return out, nil
}

// Stop closes the running session of the actor's scope, or the session
// named by SessionID. Interruptions must be ended with InterruptedStop.
func (m *Machine) Stop(ctx context.Context, req StopRequest) (*models.Session, error) {
	scope, err := m.scopeFor(ctx, req.Actor, false)
	if err != nil {
		return nil, err
	}

	var stopped *models.Session
	err = m.store.InScope(ctx, scope, func(tx db.SessionTx) error {
		var target *models.Session
		if req.SessionID != 0 {
			s, err := tx.Get(req.SessionID)
			if err != nil {
				return err
			}
			if !s.IsActive() {
				return fmt.Errorf("%w: session #%d is not running", ErrNoActiveSession, s.ID)
			}
			target = s
		} else {
			open, err := tx.LoadOpenSessions()
			if err != nil {
				return err
			}
			target = running(open)
			if target == nil {
				return fmt.Errorf("%w: nothing is running for %s", ErrNoActiveSession, scope)
			}
		}

		if target.IsInterruption() {
			return fmt.Errorf("%w: session #%d is an interruption, use interrupted stop (resume) to end it",
				ErrInvalidTransition, target.ID)
		}

		target.Close(clamp(m.clock(), target.StartedAt))
		if err := tx.Update(target); err != nil {
			return err
		}
		stopped = target
		return verify(tx)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session stopped", "scope", scope.Key(), "session_id", stopped.ID)
	return stopped, nil
}

// InterruptedStart pauses the running session and opens an interruption
// on top of it. Interruptions do not nest.
func (m *Machine) InterruptedStart(ctx context.Context, req InterruptRequest) (*models.Session, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: an interruption needs a reason", ErrValidation)
	}
	scope, err := m.scopeFor(ctx, req.Actor, true)
	if err != nil {
		return nil, err
	}
	job, err := m.resolveJob(ctx, req.Job)
	if err != nil {
		return nil, err
	}
	tags, err := m.resolveTags(ctx, req.TagIDs)
	if err != nil {
		return nil, err
	}

	var interruption *models.Session
	err = m.store.InScope(ctx, scope, func(tx db.SessionTx) error {
		open, err := tx.LoadOpenSessions()
		if err != nil {
			return err
		}
		current := running(open)
		if current == nil {
			return fmt.Errorf("%w: nothing to interrupt for %s", ErrNoActiveSession, scope)
		}
		if current.IsInterruption() {
			return fmt.Errorf("%w: session #%d is already an interruption, resume first",
				ErrInvalidTransition, current.ID)
		}

		current.Status = models.StatusPaused
		if err := tx.Update(current); err != nil {
			return err
		}

		session := m.newSession(req.Actor, job, clamp(m.clock(), current.StartedAt), req.Description)
		parentID := current.ID
		session.InterruptedSessionID = &parentID
		session.InterruptionReason = reason
		session.Tags = tags
		if err := tx.Create(session); err != nil {
			return err
		}
		interruption = session
		return verify(tx)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("interruption started",
		"scope", scope.Key(), "session_id", interruption.ID,
		"paused_session_id", *interruption.InterruptedSessionID, "reason", reason)
	return interruption, nil
}

// InterruptedStop closes the running interruption and resumes the session
// it paused
func (m *Machine) InterruptedStop(ctx context.Context, actor Actor) (*Resumed, error) {
	scope, err := m.scopeFor(ctx, actor, false)
	if err != nil {
		return nil, err
	}

	var out *Resumed
	err = m.store.InScope(ctx, scope, func(tx db.SessionTx) error {
		out = &Resumed{}
		open, err := tx.LoadOpenSessions()
		if err != nil {
			return err
		}

		var interruption *models.Session
		for i := range open {
			if open[i].IsActive() && open[i].IsInterruption() {
				interruption = &open[i]
				break
			}
		}
		if interruption == nil {
			return fmt.Errorf("%w: nothing to resume for %s", ErrNoActiveInterruption, scope)
		}

		interruption.Close(clamp(m.clock(), interruption.StartedAt))
		if err := tx.Update(interruption); err != nil {
			return err
		}
		out.Interruption = interruption

		parent, err := tx.Get(*interruption.InterruptedSessionID)
		if err != nil {
			if isNotFound(err) {
				return verify(tx)
			}
			return err
		}
		if parent.Status == models.StatusPaused {
			parent.Status = models.StatusOpen
			if err := tx.Update(parent); err != nil {
				return err
			}
		}
		out.Parent = parent
		return verify(tx)
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{"scope", scope.Key(), "session_id", out.Interruption.ID}
	if out.Parent != nil {
		attrs = append(attrs, "resumed_session_id", out.Parent.ID)
	}
	m.logger.Info("interruption stopped", attrs...)
	return out, nil
}

// Switch hands the shared role scope straight to a new job: everything
// running is closed and a new session starts. Role mode only.
func (m *Machine) Switch(ctx context.Context, req StartRequest) (*Handoff, error) {
	if m.mode != RoleMode {
		return nil, fmt.Errorf("%w: switch is only available in role mode", ErrValidation)
	}
	return m.Start(ctx, req)
}

// UpdateTags replaces the tag set of an open session in the actor's scope.
// Unknown and inactive tag ids are dropped.
func (m *Machine) UpdateTags(ctx context.Context, actor Actor, sessionID uint, tagIDs []uint) (*models.Session, error) {
	scope, err := m.scopeFor(ctx, actor, false)
	if err != nil {
		return nil, err
	}
	owner, err := m.store.ScopeOfSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if owner.Key() != scope.Key() {
		return nil, fmt.Errorf("%w: session #%d is not in %s", ErrNotFound, sessionID, scope)
	}
	tags, err := m.resolveTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	var session *models.Session
	err = m.store.InScope(ctx, scope, func(tx db.SessionTx) error {
		s, err := tx.Get(sessionID)
		if err != nil {
			return err
		}
		if !s.IsOpen() {
			return fmt.Errorf("%w: session #%d has ended, its tags are final", ErrInvalidTransition, s.ID)
		}
		if err := tx.ReplaceTags(s, tags); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session tags updated", "scope", scope.Key(), "session_id", session.ID, "tags", len(tags))
	return session, nil
}

// GetActive returns the running session of the actor's scope, or nil
func (m *Machine) GetActive(ctx context.Context, actor Actor) (*models.Session, error) {
	scope, err := m.scopeFor(ctx, actor, false)
	if err != nil {
		return nil, err
	}
	open, err := m.store.OpenSessions(ctx, scope)
	if err != nil {
		return nil, err
	}
	return running(open), nil
}

// Current returns the running session and, during an interruption, the
// session it paused
func (m *Machine) Current(ctx context.Context, actor Actor) (*Current, error) {
	scope, err := m.scopeFor(ctx, actor, false)
	if err != nil {
		return nil, err
	}
	open, err := m.store.OpenSessions(ctx, scope)
	if err != nil {
		return nil, err
	}

	cur := &Current{Active: running(open)}
	if cur.Active != nil && cur.Active.IsInterruption() {
		for i := range open {
			if open[i].ID == *cur.Active.InterruptedSessionID {
				cur.Paused = &open[i]
				break
			}
		}
	}
	return cur, nil
}

// scopeFor validates the actor for the deployment mode and returns its scope
func (m *Machine) scopeFor(ctx context.Context, actor Actor, mustBeActive bool) (models.Scope, error) {
	if m.mode == RoleMode {
		return models.RoleScope(), nil
	}
	if actor.EmployeeID == 0 {
		return models.Scope{}, fmt.Errorf("%w: an employee id is required", ErrValidation)
	}

	var err error
	if mustBeActive {
		_, err = m.employees.ActiveEmployee(ctx, actor.EmployeeID)
	} else {
		_, err = m.employees.GetEmployee(ctx, actor.EmployeeID)
	}
	if err != nil {
		return models.Scope{}, err
	}
	return models.EmployeeScope(actor.EmployeeID), nil
}

// resolveJob turns loose input into a JobRef. A code decides the category;
// an explicit category must agree with it.
func (m *Machine) resolveJob(ctx context.Context, req models.JobRequest) (models.JobRef, error) {
	if req.IsEmpty() {
		return models.JobRef{}, fmt.Errorf("%w: must provide a category or a job code", ErrValidation)
	}

	if req.CodeID != 0 {
		code, err := m.taxonomy.ResolveCode(ctx, req.CodeID)
		if err != nil {
			return models.JobRef{}, err
		}
		if req.CategoryID != 0 && req.CategoryID != code.CategoryID {
			return models.JobRef{}, fmt.Errorf("%w: job code #%d belongs to category #%d, not #%d",
				ErrValidation, code.ID, code.CategoryID, req.CategoryID)
		}
		return models.CodeRef(code.CategoryID, code.ID), nil
	}

	category, err := m.taxonomy.ResolveCategory(ctx, req.CategoryID)
	if err != nil {
		return models.JobRef{}, err
	}
	return models.CategoryRef(category.ID), nil
}

func (m *Machine) resolveTags(ctx context.Context, ids []uint) ([]models.ActivityTag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return m.tags.ResolveTags(ctx, ids)
}

func (m *Machine) newSession(actor Actor, job models.JobRef, now time.Time, description string) *models.Session {
	s := &models.Session{
		CategoryID:  job.CategoryID,
		JobCodeID:   job.CodeIDPtr(),
		StartedAt:   now,
		Status:      models.StatusOpen,
		Description: description,
	}
	if m.mode == RoleMode {
		s.PerformerName = strings.TrimSpace(actor.PerformerName)
	} else {
		id := actor.EmployeeID
		s.EmployeeID = &id
	}
	return s
}

// closeRunning closes every running session in open. Closing an
// interruption also closes the session it paused, and paused sessions left
// without a running interruption are closed too, so no paused session
// outlives its interruption.
func closeRunning(tx db.SessionTx, open []models.Session, now time.Time) ([]models.Session, error) {
	closing := make(map[uint]bool)
	for _, s := range open {
		if s.Status != models.StatusOpen {
			continue
		}
		closing[s.ID] = true
		if s.IsInterruption() {
			closing[*s.InterruptedSessionID] = true
		}
	}
	for _, s := range open {
		if s.Status == models.StatusPaused && !hasRunningInterruption(open, s.ID) {
			closing[s.ID] = true
		}
	}

	var closed []models.Session
	for i := range open {
		s := &open[i]
		if !closing[s.ID] {
			continue
		}
		s.Close(clamp(now, s.StartedAt))
		if err := tx.Update(s); err != nil {
			return nil, err
		}
		closed = append(closed, *s)
	}
	return closed, nil
}

func hasRunningInterruption(open []models.Session, parentID uint) bool {
	for _, s := range open {
		if s.Status == models.StatusOpen && s.InterruptedSessionID != nil && *s.InterruptedSessionID == parentID {
			return true
		}
	}
	return false
}

// running returns the newest running session. open is already ordered
// newest first; more than one running session should not happen.
func running(open []models.Session) *models.Session {
	for i := range open {
		if open[i].IsActive() {
			return &open[i]
		}
	}
	return nil
}

// verify re-reads the scope inside the transaction and refuses to commit
// an illegal state
func verify(tx db.SessionTx) error {
	open, err := tx.LoadOpenSessions()
	if err != nil {
		return err
	}
	return checkTransitions(open)
}

// clock returns the current time in UTC so stored timestamps compare as text
func (m *Machine) clock() time.Time {
	return m.now().UTC()
}

// clamp keeps an end time from landing before its start
func clamp(now, start time.Time) time.Time {
	if now.Before(start) {
		return start
	}
	return now
}
