package models

import "time"

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	StatusOpen   SessionStatus = "open"   // running, the active session of its scope
	StatusPaused SessionStatus = "paused" // open but pre-empted by an interruption
	StatusClosed SessionStatus = "closed" // terminal, EndedAt is set
)

// Session represents one continuous interval of recorded work
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Who
	ScopeKey      string `gorm:"not null;index:idx_sessions_scope_status,priority:1" json:"scope"`
	EmployeeID    *uint  `json:"employee_id"`
	PerformerName string `json:"performer_name,omitempty"`

	// What
	CategoryID uint  `gorm:"not null" json:"category_id"`
	JobCodeID  *uint `json:"job_code_id"`

	// When
	StartedAt time.Time     `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at"`
	Status    SessionStatus `gorm:"not null;default:open;index:idx_sessions_scope_status,priority:2" json:"status"`

	// Interruption link; non-nil only for sessions created as interruptions
	InterruptedSessionID *uint  `gorm:"index" json:"interrupted_session_id"`
	InterruptionReason   string `json:"interruption_reason,omitempty"`

	Description string `json:"description"`

	// Relationships
	Employee           *Employee     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"employee,omitempty"`
	Category           Category      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	JobCode            *JobCode      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"job_code,omitempty"`
	InterruptedSession *Session      `gorm:"foreignKey:InterruptedSessionID" json:"interrupted_session,omitempty"`
	Tags               []ActivityTag `gorm:"many2many:session_tags;" json:"tags"`
}

// IsInterruption reports whether the session was created to pre-empt another one
func (s *Session) IsInterruption() bool {
	return s.InterruptedSessionID != nil
}

// IsOpen reports whether the session has no end time yet (open or paused)
func (s *Session) IsOpen() bool {
	return s.Status != StatusClosed
}

// IsActive reports whether the session is the running one of its scope
func (s *Session) IsActive() bool {
	return s.Status == StatusOpen
}

// Duration returns the closed length of the session, or now minus start while it is open
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Job returns the job reference the session was recorded against
func (s *Session) Job() JobRef {
	if s.JobCodeID != nil {
		return CodeRef(s.CategoryID, *s.JobCodeID)
	}
	return CategoryRef(s.CategoryID)
}

// JobDisplayName renders "Category - Code" or just the category name.
// Relations must be preloaded for names to show.
func (s *Session) JobDisplayName() string {
	if s.JobCode != nil && s.JobCode.ID != 0 {
		return s.Category.Name + " - " + s.JobCode.Name
	}
	if s.Category.Name != "" {
		return s.Category.Name
	}
	return s.Job().String()
}

// Close marks the session closed at t. Closing is terminal.
func (s *Session) Close(t time.Time) {
	if s.EndedAt != nil {
		return
	}
	end := t
	s.EndedAt = &end
	s.Status = StatusClosed
}

// SessionTag is the join table between sessions and activity tags
type SessionTag struct {
	SessionID     uint `gorm:"primaryKey"`
	ActivityTagID uint `gorm:"primaryKey"`
}
