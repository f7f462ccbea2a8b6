package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/balkashynov/clockin/internal/models"
)

// CreateEmployee adds an active employee
func (d *DB) CreateEmployee(ctx context.Context, firstName, lastName, email string) (*models.Employee, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	employee := models.Employee{
		FirstName: firstName,
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		IsActive:  true,
	}
	if err := d.gorm.WithContext(ctx).Create(&employee).Error; err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	return &employee, nil
}

// GetEmployee loads an employee whether or not they are active
func (d *DB) GetEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	if err := d.gorm.WithContext(ctx).First(&employee, id).Error; err != nil {
		return nil, notFound(err, "employee", id)
	}
	return &employee, nil
}

// ActiveEmployee loads an employee allowed to start new sessions
func (d *DB) ActiveEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	if err := d.gorm.WithContext(ctx).Where("is_active = ?", true).First(&employee, id).Error; err != nil {
		return nil, notFound(err, "employee", id)
	}
	return &employee, nil
}

// ListEmployees returns employees ordered by name
func (d *DB) ListEmployees(ctx context.Context, includeInactive bool) ([]models.Employee, error) {
	q := d.gorm.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var employees []models.Employee
	if err := q.Order("first_name, last_name").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// SetEmployeeActive enables or disables an employee
func (d *DB) SetEmployeeActive(ctx context.Context, id uint, active bool) error {
	res := d.gorm.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: employee #%d", ErrNotFound, id)
	}
	return nil
}

// SetPin hashes and stores a 4-8 digit PIN
func (d *DB) SetPin(ctx context.Context, id uint, pin string) error {
	if !validPin(pin) {
		return ErrInvalidPin
	}
	if _, err := d.GetEmployee(ctx, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), d.pinCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	return d.gorm.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Update("pin_hash", string(hash)).Error
}

// ClearPin removes an employee's PIN
func (d *DB) ClearPin(ctx context.Context, id uint) error {
	if _, err := d.GetEmployee(ctx, id); err != nil {
		return err
	}
	return d.gorm.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Update("pin_hash", "").Error
}

// VerifyPin checks pin against the stored hash. Employees without a PIN
// always verify.
func (d *DB) VerifyPin(ctx context.Context, id uint, pin string) (bool, error) {
	employee, err := d.ActiveEmployee(ctx, id)
	if err != nil {
		return false, err
	}
	if !employee.HasPin() {
		return true, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(employee.PinHash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check PIN: %w", err)
	}
	return true, nil
}

func validPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
