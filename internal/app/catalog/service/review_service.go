package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/internal/app/catalog/repository"
	"productcatalog/pkg/metrics"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("user has already reviewed this product")
)

// ReviewService обрабатывает бизнес-логику отзывов на товары
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
}

// NewReviewService создает новый сервис отзывов
func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
	}
}

// CreateReview создает отзыв на товар
// Отзыв на несуществующий товар отклоняется. Повторный отзыв того же
// пользователя на тот же товар отклоняется уникальным индексом БД.
// order_id в запросе помечает отзыв как verified purchase; сам заказ
// не проверяется - это внешний идентификатор из сервиса заказов.
func (s *ReviewService) CreateReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.ProductReview, error) {
	exists, err := s.productRepo.Exists(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	review := &entity.ProductReview{
		ProductID:          req.ProductID,
		UserUID:            req.UserUID,
		OrderID:            req.OrderID,
		Rating:             req.Rating,
		Title:              req.Title,
		Comment:            req.Comment,
		IsVerifiedPurchase: req.OrderID != nil,
		IsApproved:         false,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			return nil, ErrDuplicateReview
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.RecordReviewCreated(review.Rating)

	return review, nil
}

// GetReview получает отзыв по ID
func (s *ReviewService) GetReview(ctx context.Context, id uint) (*entity.ProductReview, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// ListReviews получает отзывы с фильтрами, новые первыми
func (s *ReviewService) ListReviews(ctx context.Context, filter entity.ReviewListFilter) ([]entity.ProductReview, error) {
	reviews, err := s.reviewRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return reviews, nil
}

// UpdateReview применяет частичное обновление отзыва
// is_approved меняется тем же endpoint: отдельного маршрута модерации нет
func (s *ReviewService) UpdateReview(ctx context.Context, id uint, req *entity.UpdateReviewRequest) (*entity.ProductReview, error) {
	fields := map[string]interface{}{}
	if req.Rating != nil {
		fields["rating"] = *req.Rating
	}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Comment != nil {
		fields["comment"] = *req.Comment
	}
	if req.IsApproved != nil {
		fields["is_approved"] = *req.IsApproved
	}

	if err := s.reviewRepo.Update(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload review: %w", err)
	}

	return review, nil
}

// DeleteReview мягко удаляет отзыв
// Строка остается в БД с заполненным deleted_at и выпадает из всех
// выборок и статистики
func (s *ReviewService) DeleteReview(ctx context.Context, id uint) error {
	if err := s.reviewRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}

// GetReviewStats считает статистику отзывов товара
// Учитываются только одобренные не удаленные отзывы. Средняя оценка
// округляется до двух знаков, у товара без отзывов средняя 0.
// Распределение всегда содержит ключи "1".."5".
func (s *ReviewService) GetReviewStats(ctx context.Context, productID uint) (*entity.ReviewStats, error) {
	exists, err := s.productRepo.Exists(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	counts, err := s.reviewRepo.CountByRating(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats: %w", err)
	}

	stats := &entity.ReviewStats{
		ProductID:          productID,
		RatingDistribution: map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}

	var sum int64
	for _, rc := range counts {
		if rc.Rating < 1 || rc.Rating > 5 {
			continue
		}
		stats.RatingDistribution[strconv.Itoa(rc.Rating)] = rc.Count
		stats.TotalReviews += rc.Count
		sum += int64(rc.Rating) * rc.Count
	}

	if stats.TotalReviews > 0 {
		avg := float64(sum) / float64(stats.TotalReviews)
		stats.AverageRating = math.Round(avg*100) / 100
	}

	return stats, nil
}
