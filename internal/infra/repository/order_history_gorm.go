package repository

import (
	"context"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type orderHistoryGormRepository struct {
	db *gorm.DB
}

func NewOrderHistoryGormRepository(db *gorm.DB) repo.OrderHistoryRepository {
	return &orderHistoryGormRepository{db: db}
}

func (r *orderHistoryGormRepository) Create(ctx context.Context, h model.OrderHistory) error {
	if err := r.db.WithContext(ctx).Create(&h).Error; err != nil {
		return err
	}
	return nil
}

func (r *orderHistoryGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderHistory, error) {
	var hs []model.OrderHistory

	//新しい順
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").
		Find(&hs).Error
	if err != nil {
		return nil, err
	}
	return hs, nil
}
