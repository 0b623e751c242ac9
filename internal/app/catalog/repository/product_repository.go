package repository

import (
	"context"
	"errors"
	"fmt"

	"productcatalog/internal/app/catalog/entity"

	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает новый товар
// Уникальность sku и slug проверяется через UNIQUE constraint
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	result := r.db.WithContext(ctx).Create(product)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateProduct
		}
		if isForeignKeyViolation(result.Error) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", result.Error)
	}
	return nil
}

// GetByID получает товар по ID вместе с категорией
func (r *productRepository) GetByID(ctx context.Context, id uint) (*entity.Product, error) {
	var product entity.Product
	result := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by id: %w", result.Error)
	}

	return &product, nil
}

// List получает страницу товаров с фильтрами по категории и активности
func (r *productRepository) List(ctx context.Context, filter entity.ProductListFilter) ([]entity.Product, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	offset := (filter.Page - 1) * filter.PageSize

	var products []entity.Product
	result := query.Order("created_at DESC").Offset(offset).Limit(filter.PageSize).Find(&products)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list products: %w", result.Error)
	}

	return products, nil
}

// Update применяет частичное обновление: меняются только переданные поля
func (r *productRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateProduct
		}
		if isForeignKeyViolation(result.Error) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete удаляет товар вместе с его отзывами
// Отзывы удаляются жестко и синхронно в одной транзакции с товаром
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&entity.ProductReview{}).Error; err != nil {
			return fmt.Errorf("failed to delete product reviews: %w", err)
		}

		result := tx.Delete(&entity.Product{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}

		return nil
	})
}

// Exists проверяет существование товара без загрузки строки
func (r *productRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check product existence: %w", result.Error)
	}
	return count > 0, nil
}

// CountByCategory считает товары в категории
// Используется при удалении категории: непустая категория не удаляется
func (r *productRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&entity.Product{}).Where("category_id = ?", categoryID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count products in category: %w", result.Error)
	}
	return count, nil
}
