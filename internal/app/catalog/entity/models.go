package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"time"
)

// JSONMap хранит произвольный JSON объект в колонке jsonb
// Используется для dimensions и attributes товара
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("jsonmap: unsupported scan type")
	}
	return json.Unmarshal(b, m)
}

// StringList хранит упорядоченный список строк в колонке jsonb
// Используется для списка URL изображений товара
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("stringlist: unsupported scan type")
	}
	return json.Unmarshal(b, l)
}

// Category представляет категорию товаров
// parent_id позволяет строить дерево категорий, циклы и глубина не проверяются
type Category struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Slug            string    `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description     string    `json:"description" gorm:"type:text"`
	ParentID        *uint     `json:"parent_id" gorm:"index"`
	IsActive        bool      `json:"is_active" gorm:"not null;default:true"`
	MetaTitle       string    `json:"meta_title" gorm:"size:200"`
	MetaDescription string    `json:"meta_description" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Product представляет товар в каталоге
type Product struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"size:200;not null;index"`
	Slug             string     `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	SKU              string     `json:"sku" gorm:"column:sku;size:100;uniqueIndex;not null"`
	Description      string     `json:"description" gorm:"type:text"`
	ShortDescription string     `json:"short_description" gorm:"size:500"`
	CategoryID       uint       `json:"category_id" gorm:"not null;index"`
	Price            float64    `json:"price" gorm:"not null"`
	CompareAtPrice   *float64   `json:"compare_at_price"`
	CostPerItem      *float64   `json:"cost_per_item"`
	StockQuantity    int        `json:"stock_quantity" gorm:"not null;default:0"`
	LowStockThreshold int       `json:"low_stock_threshold" gorm:"not null;default:10"`
	Brand            string     `json:"brand" gorm:"size:100;index"`
	Weight           *float64   `json:"weight"` // в килограммах
	Dimensions       JSONMap    `json:"dimensions" gorm:"type:jsonb"`
	Images           StringList `json:"images" gorm:"type:jsonb"`
	Thumbnail        string     `json:"thumbnail" gorm:"size:500"`
	IsActive         bool       `json:"is_active" gorm:"not null;default:true"`
	IsFeatured       bool       `json:"is_featured" gorm:"not null;default:false"`
	MetaTitle        string     `json:"meta_title" gorm:"size:200"`
	MetaDescription  string     `json:"meta_description" gorm:"type:text"`
	MetaKeywords     string     `json:"meta_keywords" gorm:"size:500"`
	Attributes       JSONMap    `json:"attributes" gorm:"type:jsonb"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// InStock проверяет наличие товара на складе
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// IsLowStock проверяет что остаток ниже порога
func (p *Product) IsLowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= p.LowStockThreshold
}

// DiscountPercentage вычисляет процент скидки от compare_at_price
// Возвращает 0 если старая цена не задана или не выше текущей
func (p *Product) DiscountPercentage() float64 {
	if p.CompareAtPrice == nil || *p.CompareAtPrice <= p.Price {
		return 0
	}
	pct := (*p.CompareAtPrice - p.Price) / *p.CompareAtPrice * 100
	return math.Round(pct*100) / 100
}

// ProductReview представляет отзыв на товар
// user_uid - внешний идентификатор пользователя (Firebase UID), не foreign key
// order_id - ссылка на заказ из Orders Service, не foreign key
type ProductReview struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	ProductID          uint       `json:"product_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	UserUID            string     `json:"user_uid" gorm:"column:user_uid;size:255;not null;index"`
	OrderID            *uint      `json:"order_id"`
	Rating             int        `json:"rating" gorm:"not null"`
	Title              string     `json:"title" gorm:"size:200"`
	Comment            string     `json:"comment" gorm:"type:text"`
	IsVerifiedPurchase bool       `json:"is_verified_purchase" gorm:"not null;default:false"`
	IsApproved         bool       `json:"is_approved" gorm:"not null;default:false"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at" gorm:"index"`

	Product *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// IsDeleted проверяет мягкое удаление отзыва
func (r *ProductReview) IsDeleted() bool {
	return r.DeletedAt != nil
}

// ProductDocument - денормализованная проекция товара для поискового индекса
// Индекс никогда не является источником правды и может отставать от PostgreSQL
type ProductDocument struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	SKU              string    `json:"sku"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	CategoryID       uint      `json:"category_id"`
	CategoryName     string    `json:"category_name"`
	Price            float64   `json:"price"`
	Brand            string    `json:"brand"`
	StockQuantity    int       `json:"stock_quantity"`
	IsActive         bool      `json:"is_active"`
	IsFeatured       bool      `json:"is_featured"`
	Images           []string  `json:"images"`
	Thumbnail        string    `json:"thumbnail"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewProductDocument строит поисковый документ из товара
// В проекцию входит фиксированный набор полей: SEO поля и attributes не индексируются
func NewProductDocument(p *Product, categoryName string) ProductDocument {
	return ProductDocument{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		SKU:              p.SKU,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		CategoryID:       p.CategoryID,
		CategoryName:     categoryName,
		Price:            p.Price,
		Brand:            p.Brand,
		StockQuantity:    p.StockQuantity,
		IsActive:         p.IsActive,
		IsFeatured:       p.IsFeatured,
		Images:           p.Images,
		Thumbnail:        p.Thumbnail,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ProductEvent представляет событие изменения товара для Kafka
type ProductEvent struct {
	EventType string    `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
	ProductID uint      `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
