package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staybook/settlement-backend/internal/models"
)

// CatalogRepo reads room types and meal plans
type CatalogRepo struct {
	db sqlx.ExtContext
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db sqlx.ExtContext) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// GetRoomType returns an active room type
func (r *CatalogRepo) GetRoomType(ctx context.Context, id uuid.UUID) (*models.RoomType, error) {
	query := `
		SELECT id, hotel_id, name, price, total_rooms, cancellation_policy, is_active, created_at, updated_at
		FROM room_types
		WHERE id = $1 AND is_active = true`

	var rt models.RoomType
	err := sqlx.GetContext(ctx, r.db, &rt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("room type")
	}
	if err != nil {
		return nil, translateError(err, "failed to get room type")
	}
	return &rt, nil
}

// GetMealPlan returns a meal plan
func (r *CatalogRepo) GetMealPlan(ctx context.Context, id uuid.UUID) (*models.MealPlan, error) {
	query := `SELECT id, room_type_id, name, price_delta, created_at FROM meal_plans WHERE id = $1`

	var mp models.MealPlan
	err := sqlx.GetContext(ctx, r.db, &mp, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("meal plan")
	}
	if err != nil {
		return nil, translateError(err, "failed to get meal plan")
	}
	return &mp, nil
}
