package repository

import (
	"context"
	"errors"

	"checkout-service/models"

	"gorm.io/gorm"
)

type SubscriberRepository interface {
	Create(ctx context.Context, subscriber *models.Subscriber) error
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
}

type gormSubscriberRepo struct {
	db *gorm.DB
}

func NewGormSubscriberRepo(db *gorm.DB) SubscriberRepository {
	return &gormSubscriberRepo{db: db}
}

func (r *gormSubscriberRepo) Create(ctx context.Context, subscriber *models.Subscriber) error {
	return r.db.WithContext(ctx).Create(subscriber).Error
}

// FindByEmail returns (nil, nil) when no subscriber has that address.
func (r *gormSubscriberRepo) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&subscriber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}
