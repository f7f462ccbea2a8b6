package models

import "time"

// ActivityTag is a descriptive label attachable to a session.
// A nil CategoryID makes the tag global.
type ActivityTag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name        string `gorm:"not null;uniqueIndex:idx_tags_name_category" json:"name"`
	Description string `json:"description"`
	CategoryID  *uint  `gorm:"uniqueIndex:idx_tags_name_category" json:"category_id"`
	Color       string `gorm:"default:#6B7280" json:"color"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category,omitempty"`
	Sessions []Session `gorm:"many2many:session_tags;" json:"-"`
}

// IsGlobal reports whether the tag applies to every category
func (t *ActivityTag) IsGlobal() bool {
	return t.CategoryID == nil
}
