package repository

import (
	"context"
	"errors"

	"productcatalog/internal/app/catalog/entity"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// Стандартные ошибки репозиториев для обработки в service layer
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrDuplicateProduct    = errors.New("product with this sku or slug already exists")
	ErrDuplicateCategory   = errors.New("category with this name or slug already exists")
	ErrDuplicateReview     = errors.New("user has already reviewed this product")
	ErrCategoryHasProducts = errors.New("cannot delete category with existing products")
)

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uint) (*entity.Product, error)
	List(ctx context.Context, filter entity.ProductListFilter) ([]entity.Product, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	Exists(ctx context.Context, id uint) (bool, error)
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uint) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

// RatingCount - строка агрегации отзывов по оценке
type RatingCount struct {
	Rating int
	Count  int64
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.ProductReview) error
	GetByID(ctx context.Context, id uint) (*entity.ProductReview, error)
	List(ctx context.Context, filter entity.ReviewListFilter) ([]entity.ProductReview, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uint) error
	CountByRating(ctx context.Context, productID uint) ([]RatingCount, error)
}

// Коды ошибок PostgreSQL
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation проверяет нарушение unique constraint
// Уникальность sku/slug/name и "один отзыв на товар от пользователя"
// обеспечивается ограничениями БД, а не предварительной проверкой -
// это закрывает гонку check-then-insert
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// isForeignKeyViolation проверяет нарушение foreign key constraint
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
