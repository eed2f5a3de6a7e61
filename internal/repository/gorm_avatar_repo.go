package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/pkg/log"
)

// GormAvatarRepository implements AvatarRepository using GORM.
type GormAvatarRepository struct {
	db *gorm.DB
}

// NewGormAvatarRepository creates a new GORM-based avatar repository.
func NewGormAvatarRepository(db *gorm.DB) *GormAvatarRepository {
	return &GormAvatarRepository{db: db}
}

// EnsureSchema auto-migrates the avatars table.
func (r *GormAvatarRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domain.AvatarModel{})
}

// Create creates a new avatar.
func (r *GormAvatarRepository) Create(ctx context.Context, avatar *domain.Avatar) error {
	l := log.Ctx(ctx)

	avatar.ID = NewID()

	model := domain.AvatarToModel(avatar)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create avatar in db")
		return fmt.Errorf("create avatar: %w", err)
	}

	avatar.CreatedAt = model.CreatedAt
	avatar.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldAvatarID, avatar.ID).Msg("avatar created in db")
	return nil
}

// List retrieves available avatars with pagination.
func (r *GormAvatarRepository) List(ctx context.Context, page, limit int) ([]domain.Avatar, int, error) {
	l := log.Ctx(ctx)

	query := r.db.WithContext(ctx).Model(&domain.AvatarModel{}).Where("is_available = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count avatars")
		return nil, 0, fmt.Errorf("count avatars: %w", err)
	}

	var models []domain.AvatarModel
	if err := query.Order("id ASC").Offset(Offset(page, limit)).Limit(limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list avatars from db")
		return nil, 0, fmt.Errorf("list avatars: %w", err)
	}

	avatars := make([]domain.Avatar, len(models))
	for i := range models {
		avatars[i] = *models[i].ToDomain()
	}

	return avatars, int(total), nil
}

// GetByID retrieves an avatar by ID.
func (r *GormAvatarRepository) GetByID(ctx context.Context, id string) (*domain.Avatar, error) {
	var model domain.AvatarModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAvatarNotFound
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, id).Msg("failed to get avatar by id")
		return nil, fmt.Errorf("get avatar: %w", err)
	}
	return model.ToDomain(), nil
}

// Update updates the descriptive fields of an avatar.
func (r *GormAvatarRepository) Update(ctx context.Context, avatar *domain.Avatar) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&domain.AvatarModel{}).
		Where("id = ?", avatar.ID).
		Updates(map[string]interface{}{
			"name":         avatar.Name,
			"gender":       avatar.Gender,
			"description":  avatar.Description,
			"height_in_cm": avatar.HeightInCM,
			"updated_at":   now,
		})
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldAvatarID, avatar.ID).Msg("failed to update avatar")
		return fmt.Errorf("update avatar: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAvatarNotFound
	}

	avatar.UpdatedAt = now
	return nil
}

// UpdateImage replaces the image reference of an avatar.
func (r *GormAvatarRepository) UpdateImage(ctx context.Context, id string, image domain.Image) (*domain.Avatar, error) {
	result := r.db.WithContext(ctx).Model(&domain.AvatarModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_ref":  image.ImageRef,
			"image_url":  image.URL,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldAvatarID, id).Msg("failed to update avatar image")
		return nil, fmt.Errorf("update avatar image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAvatarNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes an avatar and returns the removed record.
func (r *GormAvatarRepository) Delete(ctx context.Context, id string) (*domain.Avatar, error) {
	var model domain.AvatarModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAvatarNotFound
			}
			return err
		}

		result := tx.Delete(&domain.AvatarModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAvatarNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAvatarNotFound) {
			return nil, err
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldAvatarID, id).Msg("failed to delete avatar")
		return nil, fmt.Errorf("delete avatar: %w", err)
	}

	return model.ToDomain(), nil
}
