package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/internal/app/catalog/repository"
	"productcatalog/internal/app/catalog/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Хелперы для создания тестового окружения

func setupCatalogService() (*CatalogService, *mocks.MockProductRepository, *mocks.MockCategoryRepository, *mocks.MockProductIndex, *mocks.MockCategoryCache, *mocks.MockMessagePublisher) {
	productRepo := new(mocks.MockProductRepository)
	categoryRepo := new(mocks.MockCategoryRepository)
	index := new(mocks.MockProductIndex)
	cache := new(mocks.MockCategoryCache)
	producer := new(mocks.MockMessagePublisher)

	svc := NewCatalogService(productRepo, categoryRepo, index, cache, producer)

	return svc, productRepo, categoryRepo, index, cache, producer
}

func newTestCategory() *entity.Category {
	return &entity.Category{
		ID:        7,
		Name:      "Electronics",
		Slug:      "electronics",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func newTestProduct() *entity.Product {
	return &entity.Product{
		ID:            42,
		Name:          "Laptop",
		Slug:          "laptop",
		SKU:           "SKU-42",
		CategoryID:    7,
		Price:         999.99,
		StockQuantity: 3,
		IsActive:      true,
		Category:      newTestCategory(),
		CreatedAt:     time.Now(),
	}
}

// ==================== Product Tests ====================

func TestCatalogService_CreateProduct_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc, productRepo, categoryRepo, index, _, producer := setupCatalogService()

	productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Product).ID = 42
		}).
		Return(nil)
	index.On("Upsert", ctx, mock.AnythingOfType("entity.ProductDocument")).Return()
	producer.On("PublishMessage", ctx, "42", mock.Anything).Return(nil)

	// Категория подгружается для category_name в поисковом документе
	categoryRepo.On("GetByID", ctx, uint(7)).Return(newTestCategory(), nil)

	req := &entity.CreateProductRequest{
		Name:       "Laptop",
		Slug:       "laptop",
		SKU:        "SKU-42",
		CategoryID: 7,
		Price:      999.99,
	}

	// Act
	product, err := svc.CreateProduct(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), product.ID)
	assert.True(t, product.IsActive)
	assert.Equal(t, 10, product.LowStockThreshold)

	productRepo.AssertExpectations(t)
	index.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestCatalogService_CreateProduct_IndexDown(t *testing.T) {
	// Индекс и Kafka недоступны - создание все равно успешно
	ctx := context.Background()
	svc, productRepo, categoryRepo, index, _, producer := setupCatalogService()

	productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).Return(nil)
	categoryRepo.On("GetByID", ctx, mock.Anything).Return(nil, repository.ErrCategoryNotFound)
	index.On("Upsert", ctx, mock.AnythingOfType("entity.ProductDocument")).Return()
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	req := &entity.CreateProductRequest{Name: "Laptop", Slug: "laptop", SKU: "SKU-42", CategoryID: 7, Price: 10}

	product, err := svc.CreateProduct(ctx, req)

	require.NoError(t, err)
	assert.NotNil(t, product)
}

func TestCatalogService_CreateProduct_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, _, _, _ := setupCatalogService()

	productRepo.On("Create", ctx, mock.AnythingOfType("*entity.Product")).
		Return(repository.ErrDuplicateProduct)

	req := &entity.CreateProductRequest{Name: "Laptop", Slug: "laptop", SKU: "SKU-42", CategoryID: 7, Price: 10}

	product, err := svc.CreateProduct(ctx, req)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrDuplicateProduct)
}

func TestCatalogService_UpdateProduct_PartialFields(t *testing.T) {
	// Переданные поля попадают в карту обновления, остальные нет
	ctx := context.Background()
	svc, productRepo, _, index, _, producer := setupCatalogService()

	price := 899.99
	req := &entity.UpdateProductRequest{Price: &price}

	productRepo.On("Update", ctx, uint(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		_, hasName := fields["name"]
		return len(fields) == 1 && fields["price"] == 899.99 && !hasName
	})).Return(nil)
	productRepo.On("GetByID", ctx, uint(42)).Return(newTestProduct(), nil)
	index.On("Upsert", ctx, mock.AnythingOfType("entity.ProductDocument")).Return()
	producer.On("PublishMessage", ctx, "42", mock.Anything).Return(nil)

	product, err := svc.UpdateProduct(ctx, 42, req)

	require.NoError(t, err)
	assert.NotNil(t, product)
	productRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct_NoFields(t *testing.T) {
	// Пустой PATCH не переиндексирует и не шлет событие
	ctx := context.Background()
	svc, productRepo, _, index, _, producer := setupCatalogService()

	productRepo.On("Update", ctx, uint(42), map[string]interface{}{}).Return(nil)
	productRepo.On("GetByID", ctx, uint(42)).Return(newTestProduct(), nil)

	product, err := svc.UpdateProduct(ctx, 42, &entity.UpdateProductRequest{})

	require.NoError(t, err)
	assert.NotNil(t, product)
	index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	producer.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_UpdateProduct_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, _, _, _ := setupCatalogService()

	productRepo.On("Update", ctx, uint(42), mock.Anything).Return(repository.ErrProductNotFound)

	product, err := svc.UpdateProduct(ctx, 42, &entity.UpdateProductRequest{})

	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_DeleteProduct_RemovesFromIndex(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, index, _, producer := setupCatalogService()

	productRepo.On("GetByID", ctx, uint(42)).Return(newTestProduct(), nil)
	productRepo.On("Delete", ctx, uint(42)).Return(nil)
	index.On("Remove", ctx, uint(42)).Return()
	producer.On("PublishMessage", ctx, "42", mock.Anything).Return(nil)

	err := svc.DeleteProduct(ctx, 42)

	require.NoError(t, err)
	index.AssertExpectations(t)
}

func TestCatalogService_DeleteProduct_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, index, _, _ := setupCatalogService()

	productRepo.On("GetByID", ctx, uint(42)).Return(nil, repository.ErrProductNotFound)

	err := svc.DeleteProduct(ctx, 42)

	assert.ErrorIs(t, err, ErrProductNotFound)
	index.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestCatalogService_ValidateProducts_CollectsAllErrors(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, _, _, _ := setupCatalogService()

	inactive := newTestProduct()
	inactive.ID = 2
	inactive.IsActive = false

	lowStock := newTestProduct()
	lowStock.ID = 3
	lowStock.StockQuantity = 1

	productRepo.On("GetByID", ctx, uint(1)).Return(nil, repository.ErrProductNotFound)
	productRepo.On("GetByID", ctx, uint(2)).Return(inactive, nil)
	productRepo.On("GetByID", ctx, uint(3)).Return(lowStock, nil)

	req := &entity.ValidateProductsRequest{Items: []entity.ValidateItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 5},
	}}

	resp, err := svc.ValidateProducts(ctx, req)

	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Errors, 3)
	assert.Contains(t, resp.Errors[0], "not found")
	assert.Contains(t, resp.Errors[1], "not active")
	assert.Contains(t, resp.Errors[2], "insufficient stock")
}

func TestCatalogService_ValidateProducts_AllValid(t *testing.T) {
	ctx := context.Background()
	svc, productRepo, _, _, _, _ := setupCatalogService()

	productRepo.On("GetByID", ctx, uint(42)).Return(newTestProduct(), nil)

	req := &entity.ValidateProductsRequest{Items: []entity.ValidateItem{
		{ProductID: 42, Quantity: 2},
	}}

	resp, err := svc.ValidateProducts(ctx, req)

	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Errors)
}

// ==================== Category Tests ====================

func TestCatalogService_GetAllCategories_CacheHit(t *testing.T) {
	ctx := context.Background()
	svc, _, categoryRepo, _, cache, _ := setupCatalogService()

	cached := []entity.Category{*newTestCategory()}
	cache.On("GetCategories", ctx).Return(cached, nil)

	categories, err := svc.GetAllCategories(ctx)

	require.NoError(t, err)
	assert.Equal(t, cached, categories)
	categoryRepo.AssertNotCalled(t, "GetAll", mock.Anything)
}

func TestCatalogService_GetAllCategories_CacheMiss(t *testing.T) {
	ctx := context.Background()
	svc, _, categoryRepo, _, cache, _ := setupCatalogService()

	fromDB := []entity.Category{*newTestCategory()}
	cache.On("GetCategories", ctx).Return(nil, nil)
	categoryRepo.On("GetAll", ctx).Return(fromDB, nil)
	cache.On("SetCategories", ctx, fromDB, time.Hour).Return(nil)

	categories, err := svc.GetAllCategories(ctx)

	require.NoError(t, err)
	assert.Equal(t, fromDB, categories)
	cache.AssertExpectations(t)
}

func TestCatalogService_GetAllCategories_CacheErrorFallsThrough(t *testing.T) {
	// Сбой Redis трактуется как промах, данные идут из БД
	ctx := context.Background()
	svc, _, categoryRepo, _, cache, _ := setupCatalogService()

	fromDB := []entity.Category{*newTestCategory()}
	cache.On("GetCategories", ctx).Return(nil, errors.New("redis down"))
	categoryRepo.On("GetAll", ctx).Return(fromDB, nil)
	cache.On("SetCategories", ctx, fromDB, time.Hour).Return(errors.New("redis down"))

	categories, err := svc.GetAllCategories(ctx)

	require.NoError(t, err)
	assert.Equal(t, fromDB, categories)
}

func TestCatalogService_CreateCategory_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, _, categoryRepo, _, cache, _ := setupCatalogService()

	categoryRepo.On("Create", ctx, mock.AnythingOfType("*entity.Category")).Return(nil)
	cache.On("DeleteCategories", ctx).Return(nil)

	category, err := svc.CreateCategory(ctx, &entity.CreateCategoryRequest{Name: "Books", Slug: "books"})

	require.NoError(t, err)
	assert.Equal(t, "Books", category.Name)
	assert.True(t, category.IsActive)
	cache.AssertExpectations(t)
}

func TestCatalogService_DeleteCategory_HasProducts(t *testing.T) {
	ctx := context.Background()
	svc, _, categoryRepo, _, cache, _ := setupCatalogService()

	categoryRepo.On("Delete", ctx, uint(7)).Return(repository.ErrCategoryHasProducts)

	err := svc.DeleteCategory(ctx, 7)

	assert.ErrorIs(t, err, ErrCategoryHasProducts)
	cache.AssertNotCalled(t, "DeleteCategories", mock.Anything)
}

// ==================== Search Tests ====================

func TestCatalogService_SearchProducts_Delegates(t *testing.T) {
	ctx := context.Background()
	svc, _, _, index, _, _ := setupCatalogService()

	params := entity.SearchParams{Query: "laptop", Page: 1, PageSize: 20}
	expected := entity.SearchResult{
		Products: []entity.ProductDocument{{ID: 42, Name: "Laptop"}},
		Total:    1, Page: 1, PageSize: 20, TotalPages: 1,
	}
	index.On("Search", ctx, params).Return(expected)

	result := svc.SearchProducts(ctx, params)

	assert.Equal(t, expected, result)
}

func TestCatalogService_SuggestProducts_Delegates(t *testing.T) {
	ctx := context.Background()
	svc, _, _, index, _, _ := setupCatalogService()

	index.On("Suggest", ctx, "lap", 5).Return([]string{"Laptop", "Laptop Stand"})

	suggestions := svc.SuggestProducts(ctx, "lap", 5)

	assert.Equal(t, []string{"Laptop", "Laptop Stand"}, suggestions)
}
