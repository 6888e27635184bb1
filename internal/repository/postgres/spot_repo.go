package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// SpotRepo implements repository.SpotRepository.
type SpotRepo struct {
	db *gorm.DB
}

// NewSpotRepo creates a spot repository.
func NewSpotRepo(db *gorm.DB) *SpotRepo {
	return &SpotRepo{db: db}
}

// Create inserts a new spot.
func (r *SpotRepo) Create(ctx context.Context, spot *entity.Spot) error {
	return r.db.WithContext(ctx).Create(spot).Error
}

// UpdateOwned replaces every field of an existing spot owned by spot.Creator and
// returns the previous version.
func (r *SpotRepo) UpdateOwned(ctx context.Context, spot *entity.Spot) (*entity.Spot, error) {
	var previous entity.Spot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND creator = ?", spot.ID, spot.Creator).First(&previous).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.ErrNotFound, "no spot with this id belongs to you")
			}
			return err
		}
		spot.CreatedAt = previous.CreatedAt
		return tx.Save(spot).Error
	})
	if err != nil {
		return nil, err
	}
	return &previous, nil
}

// List returns all spots, newest first.
func (r *SpotRepo) List(ctx context.Context) ([]entity.Spot, error) {
	var spots []entity.Spot
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&spots).Error
	return spots, err
}

// ListByCreator returns the spots created by one account.
func (r *SpotRepo) ListByCreator(ctx context.Context, creator string) ([]entity.Spot, error) {
	var spots []entity.Spot
	err := r.db.WithContext(ctx).
		Where("creator = ?", creator).
		Order("created_at DESC").
		Find(&spots).Error
	return spots, err
}

// ListPopular returns the newest spots, ties broken by view count.
func (r *SpotRepo) ListPopular(ctx context.Context, limit int) ([]entity.Spot, error) {
	var spots []entity.Spot
	err := r.db.WithContext(ctx).
		Order("created_at DESC, views_count DESC").
		Limit(limit).
		Find(&spots).Error
	return spots, err
}

// FindOwned returns the spots among ids that belong to creator.
func (r *SpotRepo) FindOwned(ctx context.Context, ids []string, creator string) ([]entity.Spot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spots []entity.Spot
	err := r.db.WithContext(ctx).
		Where("id IN ? AND creator = ?", ids, creator).
		Find(&spots).Error
	return spots, err
}

// DeleteOwned removes the spots among ids that belong to creator.
func (r *SpotRepo) DeleteOwned(ctx context.Context, ids []string, creator string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ? AND creator = ?", ids, creator).
		Delete(&entity.Spot{})
	return result.RowsAffected, result.Error
}
