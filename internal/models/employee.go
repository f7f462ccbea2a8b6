package models

import "time"

// Employee is a named worker who clocks in under their own scope
type Employee struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`
	Email     string `json:"email"`
	PinHash   string `json:"-"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
}

// FullName joins first and last name
func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// HasPin reports whether the employee must present a PIN
func (e *Employee) HasPin() bool {
	return e.PinHash != ""
}
