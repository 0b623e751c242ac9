package entity

import "time"

// === PRODUCTS ===

type CreateProductRequest struct {
	Name              string                 `json:"name" validate:"required,min=2,max=200"`
	Slug              string                 `json:"slug" validate:"required,min=1,max=200"`
	SKU               string                 `json:"sku" validate:"required,min=1,max=100"`
	Description       string                 `json:"description" validate:"omitempty,max=10000"`
	ShortDescription  string                 `json:"short_description" validate:"omitempty,max=500"`
	CategoryID        uint                   `json:"category_id" validate:"required"`
	Price             float64                `json:"price" validate:"required,gt=0"`
	CompareAtPrice    *float64               `json:"compare_at_price" validate:"omitempty,gt=0"`
	CostPerItem       *float64               `json:"cost_per_item" validate:"omitempty,gte=0"`
	StockQuantity     int                    `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold *int                   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Brand             string                 `json:"brand" validate:"omitempty,max=100"`
	Weight            *float64               `json:"weight" validate:"omitempty,gt=0"`
	Dimensions        map[string]float64     `json:"dimensions"`
	Images            []string               `json:"images" validate:"omitempty,dive,url"`
	Thumbnail         string                 `json:"thumbnail" validate:"omitempty,max=500"`
	IsActive          *bool                  `json:"is_active"`
	IsFeatured        *bool                  `json:"is_featured"`
	MetaTitle         string                 `json:"meta_title" validate:"omitempty,max=200"`
	MetaDescription   string                 `json:"meta_description"`
	MetaKeywords      string                 `json:"meta_keywords" validate:"omitempty,max=500"`
	Attributes        map[string]interface{} `json:"attributes"`
}

// UpdateProductRequest - частичное обновление товара
// nil означает "поле не передано, оставить прежнее значение" (PATCH семантика,
// даже на PUT маршруте)
type UpdateProductRequest struct {
	Name              *string                 `json:"name" validate:"omitempty,min=2,max=200"`
	Slug              *string                 `json:"slug" validate:"omitempty,min=1,max=200"`
	SKU               *string                 `json:"sku" validate:"omitempty,min=1,max=100"`
	Description       *string                 `json:"description"`
	ShortDescription  *string                 `json:"short_description" validate:"omitempty,max=500"`
	CategoryID        *uint                   `json:"category_id"`
	Price             *float64                `json:"price" validate:"omitempty,gt=0"`
	CompareAtPrice    *float64                `json:"compare_at_price" validate:"omitempty,gt=0"`
	CostPerItem       *float64                `json:"cost_per_item" validate:"omitempty,gte=0"`
	StockQuantity     *int                    `json:"stock_quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int                    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Brand             *string                 `json:"brand" validate:"omitempty,max=100"`
	Weight            *float64                `json:"weight" validate:"omitempty,gt=0"`
	Dimensions        *map[string]float64     `json:"dimensions"`
	Images            *[]string               `json:"images" validate:"omitempty,dive,url"`
	Thumbnail         *string                 `json:"thumbnail" validate:"omitempty,max=500"`
	IsActive          *bool                   `json:"is_active"`
	IsFeatured        *bool                   `json:"is_featured"`
	MetaTitle         *string                 `json:"meta_title" validate:"omitempty,max=200"`
	MetaDescription   *string                 `json:"meta_description"`
	MetaKeywords      *string                 `json:"meta_keywords" validate:"omitempty,max=500"`
	Attributes        *map[string]interface{} `json:"attributes"`
}

// ProductResponse - товар с вычисляемыми полями
// in_stock, is_low_stock и discount_percentage вычисляются при чтении и не хранятся
type ProductResponse struct {
	Product
	InStock            bool    `json:"in_stock"`
	IsLowStock         bool    `json:"is_low_stock"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// NewProductResponse строит ответ с вычисляемыми полями
func NewProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		Product:            *p,
		InStock:            p.InStock(),
		IsLowStock:         p.IsLowStock(),
		DiscountPercentage: p.DiscountPercentage(),
	}
}

// ProductListFilter - фильтры списка товаров
type ProductListFilter struct {
	CategoryID *uint
	IsActive   *bool
	Page       int
	PageSize   int
}

// === CATEGORIES ===

type CreateCategoryRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	Slug            string `json:"slug" validate:"required,min=1,max=100"`
	Description     string `json:"description"`
	ParentID        *uint  `json:"parent_id"`
	IsActive        *bool  `json:"is_active"`
	MetaTitle       string `json:"meta_title" validate:"omitempty,max=200"`
	MetaDescription string `json:"meta_description"`
}

// UpdateCategoryRequest - частичное обновление категории (PATCH семантика)
type UpdateCategoryRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug            *string `json:"slug" validate:"omitempty,min=1,max=100"`
	Description     *string `json:"description"`
	ParentID        *uint   `json:"parent_id"`
	IsActive        *bool   `json:"is_active"`
	MetaTitle       *string `json:"meta_title" validate:"omitempty,max=200"`
	MetaDescription *string `json:"meta_description"`
}

// === REVIEWS ===

type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	UserUID   string `json:"user_uid" validate:"required,max=255,user_uid"`
	OrderID   *uint  `json:"order_id"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Title     string `json:"title" validate:"omitempty,max=200"`
	Comment   string `json:"comment"`
}

// UpdateReviewRequest - частичное обновление отзыва
// is_approved меняется только через этот общий endpoint, отдельного
// маршрута модерации нет
type UpdateReviewRequest struct {
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title      *string `json:"title" validate:"omitempty,max=200"`
	Comment    *string `json:"comment"`
	IsApproved *bool   `json:"is_approved"`
}

// ReviewListFilter - фильтры списка отзывов
type ReviewListFilter struct {
	ProductID  *uint
	UserUID    *string
	IsApproved *bool
	MinRating  *int
	Offset     int
	Limit      int
}

// ReviewStats - агрегированная статистика отзывов товара
// Считается только по одобренным и не удаленным отзывам
type ReviewStats struct {
	ProductID          uint             `json:"product_id"`
	TotalReviews       int64            `json:"total_reviews"`
	AverageRating      float64          `json:"average_rating"`
	RatingDistribution map[string]int64 `json:"rating_distribution"`
}

// === SEARCH ===

// SearchParams - параметры поискового запроса
type SearchParams struct {
	Query      string
	CategoryID *uint
	Brand      string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	Page       int
	PageSize   int
}

// SearchResult - страница результатов поиска
// Пустой результат не отличим от недоступного индекса - это принятая
// неоднозначность контракта
type SearchResult struct {
	Products   []ProductDocument `json:"products"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int64             `json:"total_pages"`
}

// === BULK VALIDATE ===

type ValidateItem struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

type ValidateProductsRequest struct {
	Items []ValidateItem `json:"items" validate:"required,min=1,dive"`
}

// ValidateProductsResponse собирает все ошибки проверки, а не первую
type ValidateProductsResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// === COMMON ===

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type StockResponse struct {
	ProductID     uint `json:"product_id"`
	StockQuantity int  `json:"stock_quantity"`
}

// HealthResponse для /health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}
