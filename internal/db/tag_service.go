package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/balkashynov/clockin/internal/models"
)

// CreateTagRequest holds the data needed to create an activity tag
type CreateTagRequest struct {
	Name        string
	Description string
	CategoryID  *uint // nil for a global tag
	Color       string
}

// CreateTag creates a new active tag
func (d *DB) CreateTag(ctx context.Context, req CreateTagRequest) (*models.ActivityTag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}
	if req.CategoryID != nil {
		if _, err := d.GetCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	tag := models.ActivityTag{
		Name:        name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Color:       req.Color,
		IsActive:    true,
	}
	if err := d.gorm.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return &tag, nil
}

// SetTagActive enables or disables a tag
func (d *DB) SetTagActive(ctx context.Context, id uint, active bool) error {
	res := d.gorm.WithContext(ctx).Model(&models.ActivityTag{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: tag #%d", ErrNotFound, id)
	}
	return nil
}

// ListTags returns active global tags plus, when categoryID is set, the
// tags scoped to that category
func (d *DB) ListTags(ctx context.Context, categoryID uint) ([]models.ActivityTag, error) {
	q := d.gorm.WithContext(ctx).Preload("Category").Where("is_active = ?", true)
	if categoryID != 0 {
		q = q.Where("category_id IS NULL OR category_id = ?", categoryID)
	}

	var tags []models.ActivityTag
	if err := q.Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// ResolveTags returns the active tags among ids. Unknown and inactive ids
// are dropped rather than failing the request.
func (d *DB) ResolveTags(ctx context.Context, ids []uint) ([]models.ActivityTag, error) {
	if len(ids) == 0 {
		return []models.ActivityTag{}, nil
	}

	var tags []models.ActivityTag
	err := d.gorm.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("id").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	return tags, nil
}

// FindTagIDsByName maps tag names to ids, preferring a tag scoped to
// categoryID over a global one with the same name. Unknown names are skipped.
func (d *DB) FindTagIDsByName(ctx context.Context, names []string, categoryID uint) ([]uint, error) {
	var ids []uint
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var tags []models.ActivityTag
		q := d.gorm.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name)
		if categoryID != 0 {
			q = q.Where("category_id IS NULL OR category_id = ?", categoryID)
		} else {
			q = q.Where("category_id IS NULL")
		}
		if err := q.Order("category_id DESC").Find(&tags).Error; err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			ids = append(ids, tags[0].ID)
		}
	}
	return ids, nil
}
