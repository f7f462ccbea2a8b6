package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/clockin/internal/models"
)

// CreateCategory adds a new active category
func (d *DB) CreateCategory(ctx context.Context, name, alias string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	category := models.Category{Name: name, Alias: strings.TrimSpace(alias), IsActive: true}
	if err := d.gorm.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return &category, nil
}

// CreateJobCode adds a new active job code under a category
func (d *DB) CreateJobCode(ctx context.Context, categoryID uint, name, alias string) (*models.JobCode, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("job code name is required")
	}
	if _, err := d.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	code := models.JobCode{CategoryID: categoryID, Name: name, Alias: strings.TrimSpace(alias), IsActive: true}
	if err := d.gorm.WithContext(ctx).Create(&code).Error; err != nil {
		return nil, fmt.Errorf("failed to create job code %q: %w", name, err)
	}
	return &code, nil
}

// SetCategoryActive enables or disables a category
func (d *DB) SetCategoryActive(ctx context.Context, id uint, active bool) error {
	res := d.gorm.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: category #%d", ErrNotFound, id)
	}
	return nil
}

// SetJobCodeActive enables or disables a job code
func (d *DB) SetJobCodeActive(ctx context.Context, id uint, active bool) error {
	res := d.gorm.WithContext(ctx).Model(&models.JobCode{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: job code #%d", ErrNotFound, id)
	}
	return nil
}

// GetCategory loads a category whether or not it is active
func (d *DB) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := d.gorm.WithContext(ctx).Preload("JobCodes").First(&category, id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &category, nil
}

// ResolveCategory returns an active category usable for new sessions
func (d *DB) ResolveCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := d.gorm.WithContext(ctx).Where("is_active = ?", true).First(&category, id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &category, nil
}

// ResolveCode returns an active job code whose category is active too
func (d *DB) ResolveCode(ctx context.Context, id uint) (*models.JobCode, error) {
	var code models.JobCode
	err := d.gorm.WithContext(ctx).
		Joins("Category").
		Where("job_codes.is_active = ? AND Category.is_active = ?", true, true).
		First(&code, "job_codes.id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "job code", id)
	}
	return &code, nil
}

// FindJobByNames looks up "code@category" style names (or aliases), case-insensitively.
// An empty code name selects the category alone.
func (d *DB) FindJobByNames(ctx context.Context, codeName, categoryName string) (models.JobRequest, error) {
	tx := d.gorm.WithContext(ctx)
	var req models.JobRequest

	if categoryName != "" {
		var category models.Category
		err := tx.Where("LOWER(name) = LOWER(?) OR LOWER(alias) = LOWER(?)", categoryName, categoryName).
			First(&category).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return req, fmt.Errorf("%w: category %q", ErrNotFound, categoryName)
		} else if err != nil {
			return req, err
		}
		req.CategoryID = category.ID
	}

	if codeName != "" {
		q := tx.Where("LOWER(name) = LOWER(?) OR LOWER(alias) = LOWER(?)", codeName, codeName)
		if req.CategoryID != 0 {
			q = q.Where("category_id = ?", req.CategoryID)
		}
		var codes []models.JobCode
		if err := q.Limit(2).Find(&codes).Error; err != nil {
			return req, err
		}
		switch len(codes) {
		case 0:
			return req, fmt.Errorf("%w: job code %q", ErrNotFound, codeName)
		case 1:
			req.CodeID = codes[0].ID
		default:
			return req, fmt.Errorf("job code %q exists in several categories, use Code@Category", codeName)
		}
	}

	return req, nil
}

// ListCategories returns categories with their codes, by name
func (d *DB) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	q := d.gorm.WithContext(ctx)
	if includeInactive {
		q = q.Preload("JobCodes", func(db *gorm.DB) *gorm.DB { return db.Order("name") })
	} else {
		q = q.Where("is_active = ?", true).
			Preload("JobCodes", func(db *gorm.DB) *gorm.DB { return db.Where("is_active = ?", true).Order("name") })
	}

	var categories []models.Category
	if err := q.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ImportResult counts what ImportJobCodesCSV did
type ImportResult struct {
	CategoriesCreated int
	CategoriesUpdated int
	CodesCreated      int
	CodesUpdated      int
}

// Column names of the job code export
const (
	colCategory      = "JobcodeLevel_0"
	colCategoryAlias = "JobcodeLevel_0_Alias"
	colCode          = "JobcodeLevel_1"
	colCodeAlias     = "JobcodeLevel_1_Alias"
)

// ImportJobCodesCSV upserts categories and codes by name from a CSV export.
// The whole import is one transaction.
func (d *DB) ImportJobCodesCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := cols[colCategory]; !ok {
		return nil, fmt.Errorf("CSV is missing the %s column", colCategory)
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := &ImportResult{}
	err = d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read CSV: %w", err)
			}

			categoryName := field(row, colCategory)
			if categoryName == "" {
				continue
			}

			var category models.Category
			err = tx.Where("name = ?", categoryName).First(&category).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				category = models.Category{Name: categoryName, Alias: field(row, colCategoryAlias), IsActive: true}
				if err := tx.Create(&category).Error; err != nil {
					return err
				}
				result.CategoriesCreated++
				d.logger.Info("created category", "name", categoryName)
			case err != nil:
				return err
			default:
				if err := tx.Model(&category).Update("alias", field(row, colCategoryAlias)).Error; err != nil {
					return err
				}
				result.CategoriesUpdated++
			}

			codeName := field(row, colCode)
			if codeName == "" {
				continue
			}

			var code models.JobCode
			err = tx.Where("category_id = ? AND name = ?", category.ID, codeName).First(&code).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				code = models.JobCode{CategoryID: category.ID, Name: codeName, Alias: field(row, colCodeAlias), IsActive: true}
				if err := tx.Create(&code).Error; err != nil {
					return err
				}
				result.CodesCreated++
				d.logger.Info("created job code", "category", categoryName, "name", codeName)
			case err != nil:
				return err
			default:
				if err := tx.Model(&code).Update("alias", field(row, colCodeAlias)).Error; err != nil {
					return err
				}
				result.CodesUpdated++
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
