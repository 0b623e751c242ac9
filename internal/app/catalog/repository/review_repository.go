package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productcatalog/internal/app/catalog/entity"

	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// notDeleted ограничивает запрос не удаленными отзывами
// Мягко удаленные отзывы исключаются из всех выборок по умолчанию
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// Create создает новый отзыв
// Частичный уникальный индекс (product_id, user_uid) WHERE deleted_at IS NULL
// гарантирует один активный отзыв на товар от пользователя
func (r *reviewRepository) Create(ctx context.Context, review *entity.ProductReview) error {
	result := r.db.WithContext(ctx).Create(review)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateReview
		}
		if isForeignKeyViolation(result.Error) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", result.Error)
	}
	return nil
}

// GetByID получает отзыв по ID, не удаленный
func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*entity.ProductReview, error) {
	var review entity.ProductReview
	result := r.db.WithContext(ctx).Scopes(notDeleted).First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review by id: %w", result.Error)
	}

	return &review, nil
}

// List получает отзывы с фильтрами, новые первыми
func (r *reviewRepository) List(ctx context.Context, filter entity.ReviewListFilter) ([]entity.ProductReview, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductReview{}).Scopes(notDeleted)

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.UserUID != nil {
		query = query.Where("user_uid = ?", *filter.UserUID)
	}
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	if filter.MinRating != nil {
		query = query.Where("rating >= ?", *filter.MinRating)
	}

	var reviews []entity.ProductReview
	result := query.Order("created_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&reviews)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", result.Error)
	}

	return reviews, nil
}

// Update применяет частичное обновление отзыва
func (r *reviewRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.ProductReview{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update review: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// SoftDelete помечает отзыв удаленным через deleted_at
func (r *reviewRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entity.ProductReview{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to soft delete review: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// CountByRating агрегирует одобренные не удаленные отзывы товара по оценке
// Статистика считается заново на каждый вызов, без кеширования
func (r *reviewRepository) CountByRating(ctx context.Context, productID uint) ([]RatingCount, error) {
	var counts []RatingCount
	result := r.db.WithContext(ctx).Model(&entity.ProductReview{}).
		Select("rating, COUNT(*) as count").
		Where("product_id = ? AND is_approved = ? AND deleted_at IS NULL", productID, true).
		Group("rating").
		Scan(&counts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", result.Error)
	}

	return counts, nil
}
