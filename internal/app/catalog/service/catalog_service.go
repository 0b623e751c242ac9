package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/internal/app/catalog/repository"
	"productcatalog/internal/app/catalog/util"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrCategoryNotFound    = errors.New("category not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrDuplicateProduct    = errors.New("product with this sku or slug already exists")
	ErrDuplicateCategory   = errors.New("category with this name or slug already exists")
	ErrCategoryHasProducts = errors.New("cannot delete category with existing products")
)

const categoriesCacheTTL = time.Hour

// CatalogService обрабатывает бизнес-логику каталога товаров
// Координирует репозитории, поисковый индекс, Redis кеш и Kafka producer.
// PostgreSQL - источник правды; индекс, кеш и события - best-effort:
// их сбои логируются и не прерывают операцию.
type CatalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	index        ProductIndex
	cache        util.CategoryCache
	producer     util.MessagePublisher
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	index ProductIndex,
	cache util.CategoryCache,
	producer util.MessagePublisher,
) *CatalogService {
	return &CatalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		index:        index,
		cache:        cache,
		producer:     producer,
	}
}

// === CATEGORIES ===

// CreateCategory создает новую категорию и инвалидирует кеш
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	category := &entity.Category{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		ParentID:        req.ParentID,
		IsActive:        true,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateCategory) {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	return category, nil
}

// GetCategory получает категорию по ID из PostgreSQL
// Кеш не используется: кешируется только полный список
func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetAllCategories получает все категории с кешированием в Redis
// Сбой кеша на чтении трактуется как промах
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	cached, err := s.cache.GetCategories(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read categories cache")
	}
	if cached != nil {
		return cached, nil
	}

	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.cache.SetCategories(ctx, categories, categoriesCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache categories")
	}

	return categories, nil
}

// UpdateCategory применяет частичное обновление и инвалидирует кеш
func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Slug != nil {
		fields["slug"] = *req.Slug
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.ParentID != nil {
		fields["parent_id"] = *req.ParentID
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.MetaTitle != nil {
		fields["meta_title"] = *req.MetaTitle
	}
	if req.MetaDescription != nil {
		fields["meta_description"] = *req.MetaDescription
	}

	if err := s.categoryRepo.Update(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repository.ErrDuplicateCategory):
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload category: %w", err)
	}

	return category, nil
}

// DeleteCategory удаляет категорию и инвалидирует кеш
// Категория с товарами не удаляется
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryHasProducts):
			return ErrCategoryHasProducts
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	return nil
}

func (s *CatalogService) invalidateCategoriesCache(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate categories cache")
	}
}

// === PRODUCTS ===

// CreateProduct создает новый товар
// После коммита в PostgreSQL товар индексируется и событие уходит в Kafka,
// оба шага best-effort
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error) {
	product := &entity.Product{
		Name:             req.Name,
		Slug:             req.Slug,
		SKU:              req.SKU,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		CategoryID:       req.CategoryID,
		Price:            req.Price,
		CompareAtPrice:   req.CompareAtPrice,
		CostPerItem:      req.CostPerItem,
		StockQuantity:    req.StockQuantity,
		LowStockThreshold: 10,
		Brand:            req.Brand,
		Weight:           req.Weight,
		Dimensions:       toJSONMap(req.Dimensions),
		Images:           entity.StringList(req.Images),
		Thumbnail:        req.Thumbnail,
		IsActive:         true,
		IsFeatured:       false,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
		MetaKeywords:     req.MetaKeywords,
		Attributes:       entity.JSONMap(req.Attributes),
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateProduct):
			return nil, ErrDuplicateProduct
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	metrics.RecordProductCreated()

	s.syncProductToIndex(ctx, product)
	s.publishProductEvent(ctx, "PRODUCT_CREATED", product)

	return product, nil
}

// GetProduct получает товар по ID вместе с категорией
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// ListProducts получает страницу товаров с фильтрами
func (s *CatalogService) ListProducts(ctx context.Context, filter entity.ProductListFilter) ([]entity.Product, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// UpdateProduct применяет частичное обновление товара
// Меняются только переданные поля, после обновления товар переиндексируется
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req *entity.UpdateProductRequest) (*entity.Product, error) {
	fields := buildProductUpdateFields(req)

	if err := s.productRepo.Update(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicateProduct):
			return nil, ErrDuplicateProduct
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	if len(fields) > 0 {
		s.syncProductToIndex(ctx, product)
		s.publishProductEvent(ctx, "PRODUCT_UPDATED", product)
	}

	return product, nil
}

// DeleteProduct удаляет товар вместе с отзывами
// Из индекса документ убирается best-effort после удаления из PostgreSQL
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.index.Remove(ctx, id)
	s.publishProductEvent(ctx, "PRODUCT_DELETED", product)

	return nil
}

// ProductExists проверяет существование товара
func (s *CatalogService) ProductExists(ctx context.Context, id uint) (bool, error) {
	exists, err := s.productRepo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

// GetProductStock возвращает остаток товара на складе
func (s *CatalogService) GetProductStock(ctx context.Context, id uint) (int, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to get product: %w", err)
	}

	return product.StockQuantity, nil
}

// ValidateProducts проверяет список позиций перед оформлением заказа
// Собирает все ошибки, а не останавливается на первой: клиент получает
// полную картину проблем корзины за один запрос
func (s *CatalogService) ValidateProducts(ctx context.Context, req *entity.ValidateProductsRequest) (*entity.ValidateProductsResponse, error) {
	resp := &entity.ValidateProductsResponse{
		Valid:  true,
		Errors: []string{},
	}

	for _, item := range req.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				resp.Valid = false
				resp.Errors = append(resp.Errors, fmt.Sprintf("product %d not found", item.ProductID))
				continue
			}
			return nil, fmt.Errorf("failed to validate product %d: %w", item.ProductID, err)
		}

		if !product.IsActive {
			resp.Valid = false
			resp.Errors = append(resp.Errors, fmt.Sprintf("product %d is not active", item.ProductID))
			continue
		}

		if product.StockQuantity < item.Quantity {
			resp.Valid = false
			resp.Errors = append(resp.Errors, fmt.Sprintf(
				"insufficient stock for product %d: requested %d, available %d",
				item.ProductID, item.Quantity, product.StockQuantity,
			))
		}
	}

	return resp, nil
}

// === SEARCH ===

// SearchProducts выполняет поиск через Elasticsearch
func (s *CatalogService) SearchProducts(ctx context.Context, params entity.SearchParams) entity.SearchResult {
	return s.index.Search(ctx, params)
}

// SuggestProducts возвращает автодополнения названий товаров
func (s *CatalogService) SuggestProducts(ctx context.Context, prefix string, size int) []string {
	return s.index.Suggest(ctx, prefix, size)
}

// syncProductToIndex индексирует товар best-effort
// Имя категории берется из preload, при его отсутствии документ
// индексируется с пустым category_name
func (s *CatalogService) syncProductToIndex(ctx context.Context, product *entity.Product) {
	categoryName := ""
	if product.Category != nil {
		categoryName = product.Category.Name
	} else if category, err := s.categoryRepo.GetByID(ctx, product.CategoryID); err == nil {
		categoryName = category.Name
	}

	s.index.Upsert(ctx, entity.NewProductDocument(product, categoryName))
}

// publishProductEvent отправляет событие о товаре в Kafka, best-effort
// Ключ сообщения - id товара для сохранения порядка событий одного товара
func (s *CatalogService) publishProductEvent(ctx context.Context, eventType string, product *entity.Product) {
	event := entity.ProductEvent{
		EventType: eventType,
		ProductID: product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Price:     product.Price,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to marshal product event")
		return
	}

	if err := s.producer.PublishMessage(ctx, strconv.FormatUint(uint64(product.ID), 10), data); err != nil {
		logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Uint("product_id", product.ID).
			Msg("Failed to publish product event")
	}
}

// buildProductUpdateFields переводит PATCH запрос в карту полей для gorm
// nil в запросе означает "не трогать поле"
func buildProductUpdateFields(req *entity.UpdateProductRequest) map[string]interface{} {
	fields := map[string]interface{}{}

	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Slug != nil {
		fields["slug"] = *req.Slug
	}
	if req.SKU != nil {
		fields["sku"] = *req.SKU
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.ShortDescription != nil {
		fields["short_description"] = *req.ShortDescription
	}
	if req.CategoryID != nil {
		fields["category_id"] = *req.CategoryID
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.CompareAtPrice != nil {
		fields["compare_at_price"] = *req.CompareAtPrice
	}
	if req.CostPerItem != nil {
		fields["cost_per_item"] = *req.CostPerItem
	}
	if req.StockQuantity != nil {
		fields["stock_quantity"] = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		fields["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.Brand != nil {
		fields["brand"] = *req.Brand
	}
	if req.Weight != nil {
		fields["weight"] = *req.Weight
	}
	if req.Dimensions != nil {
		fields["dimensions"] = toJSONMap(*req.Dimensions)
	}
	if req.Images != nil {
		fields["images"] = entity.StringList(*req.Images)
	}
	if req.Thumbnail != nil {
		fields["thumbnail"] = *req.Thumbnail
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		fields["is_featured"] = *req.IsFeatured
	}
	if req.MetaTitle != nil {
		fields["meta_title"] = *req.MetaTitle
	}
	if req.MetaDescription != nil {
		fields["meta_description"] = *req.MetaDescription
	}
	if req.MetaKeywords != nil {
		fields["meta_keywords"] = *req.MetaKeywords
	}
	if req.Attributes != nil {
		fields["attributes"] = entity.JSONMap(*req.Attributes)
	}

	return fields
}

func toJSONMap(dims map[string]float64) entity.JSONMap {
	if dims == nil {
		return nil
	}
	m := make(entity.JSONMap, len(dims))
	for k, v := range dims {
		m[k] = v
	}
	return m
}
