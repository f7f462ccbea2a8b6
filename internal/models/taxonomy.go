package models

import (
	"fmt"
	"time"
)

// Category is a top-level job classification (a role): WRP, Events, Kitchen...
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name     string `gorm:"unique;not null" json:"name"`
	Alias    string `json:"alias"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	JobCodes []JobCode `gorm:"foreignKey:CategoryID" json:"job_codes"`
}

// JobCode is a sub-classification scoped to one category
type JobCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CategoryID uint   `gorm:"not null;uniqueIndex:idx_job_codes_category_name" json:"category_id"`
	Name       string `gorm:"not null;uniqueIndex:idx_job_codes_category_name" json:"name"`
	Alias      string `json:"alias"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Category *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category,omitempty"`
}

// JobKind tells which shape a JobRef has
type JobKind int

const (
	CategoryOnly JobKind = iota + 1
	CategoryAndCode
)

// JobRef is a resolved job reference: a category, optionally refined by one of its codes
type JobRef struct {
	Kind       JobKind `json:"kind"`
	CategoryID uint    `json:"category_id"`
	CodeID     uint    `json:"code_id,omitempty"`
}

// CategoryRef references a whole category
func CategoryRef(categoryID uint) JobRef {
	return JobRef{Kind: CategoryOnly, CategoryID: categoryID}
}

// CodeRef references a job code inside its owning category
func CodeRef(categoryID, codeID uint) JobRef {
	return JobRef{Kind: CategoryAndCode, CategoryID: categoryID, CodeID: codeID}
}

// CodeIDPtr returns the code id as a nullable column value
func (r JobRef) CodeIDPtr() *uint {
	if r.Kind != CategoryAndCode {
		return nil
	}
	id := r.CodeID
	return &id
}

func (r JobRef) String() string {
	if r.Kind == CategoryAndCode {
		return fmt.Sprintf("category #%d / code #%d", r.CategoryID, r.CodeID)
	}
	return fmt.Sprintf("category #%d", r.CategoryID)
}

// JobRequest is unvalidated job input; zero ids mean "not given"
type JobRequest struct {
	CategoryID uint
	CodeID     uint
}

// IsEmpty reports whether neither a category nor a code was given
func (r JobRequest) IsEmpty() bool {
	return r.CategoryID == 0 && r.CodeID == 0
}
