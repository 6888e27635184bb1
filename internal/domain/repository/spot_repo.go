package repository

import (
	"context"

	"github.com/spotsapp/spots-api/internal/domain/entity"
)

// SpotRepository persists spots.
type SpotRepository interface {
	Create(ctx context.Context, spot *entity.Spot) error
	// UpdateOwned replaces the spot only when it belongs to spot.Creator, else
	// ErrNotFound. It returns the row as it was before the update.
	UpdateOwned(ctx context.Context, spot *entity.Spot) (*entity.Spot, error)
	List(ctx context.Context) ([]entity.Spot, error)
	ListByCreator(ctx context.Context, creator string) ([]entity.Spot, error)
	ListPopular(ctx context.Context, limit int) ([]entity.Spot, error)
	// FindOwned returns the spots among ids that belong to creator.
	FindOwned(ctx context.Context, ids []string, creator string) ([]entity.Spot, error)
	DeleteOwned(ctx context.Context, ids []string, creator string) (int64, error)
}
