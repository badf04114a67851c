package repository

import (
	"context"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"

	"gorm.io/gorm"
)

// DiscountStore holds the discount events written by the tab service.
type DiscountStore interface {
	AppendDiscount(ctx context.Context, d *model.DiscountEvent) error
	// DiscountsBetween returns events with from <= created_at <= to.
	DiscountsBetween(ctx context.Context, from, to time.Time) ([]model.DiscountEvent, error)
}

type discountRepo struct{ db *gorm.DB }

func NewDiscountRepository(db *gorm.DB) DiscountStore { return &discountRepo{db: db} }

func (r *discountRepo) AppendDiscount(ctx context.Context, d *model.DiscountEvent) error {
	return conn(ctx, r.db).Create(d).Error
}

func (r *discountRepo) DiscountsBetween(ctx context.Context, from, to time.Time) ([]model.DiscountEvent, error) {
	var events []model.DiscountEvent
	err := conn(ctx, r.db).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
