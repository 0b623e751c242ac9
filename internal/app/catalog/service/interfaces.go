package service

import (
	"context"

	"productcatalog/internal/app/catalog/entity"
)

// ProductIndex - поисковый индекс товаров
// Upsert и Remove не возвращают ошибку: синхронизация индекса best-effort,
// сбой не должен отменять уже закоммиченную запись в PostgreSQL.
// Search и Suggest при сбое возвращают пустой результат.
type ProductIndex interface {
	Upsert(ctx context.Context, doc entity.ProductDocument)
	Remove(ctx context.Context, id uint)
	Search(ctx context.Context, params entity.SearchParams) entity.SearchResult
	Suggest(ctx context.Context, prefix string, size int) []string
}

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id uint) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id uint, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id uint) error

	CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, id uint) (*entity.Product, error)
	ListProducts(ctx context.Context, filter entity.ProductListFilter) ([]entity.Product, error)
	UpdateProduct(ctx context.Context, id uint, req *entity.UpdateProductRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	ProductExists(ctx context.Context, id uint) (bool, error)
	GetProductStock(ctx context.Context, id uint) (int, error)
	ValidateProducts(ctx context.Context, req *entity.ValidateProductsRequest) (*entity.ValidateProductsResponse, error)

	SearchProducts(ctx context.Context, params entity.SearchParams) entity.SearchResult
	SuggestProducts(ctx context.Context, prefix string, size int) []string
}

type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.ProductReview, error)
	GetReview(ctx context.Context, id uint) (*entity.ProductReview, error)
	ListReviews(ctx context.Context, filter entity.ReviewListFilter) ([]entity.ProductReview, error)
	UpdateReview(ctx context.Context, id uint, req *entity.UpdateReviewRequest) (*entity.ProductReview, error)
	DeleteReview(ctx context.Context, id uint) error
	GetReviewStats(ctx context.Context, productID uint) (*entity.ReviewStats, error)
}
