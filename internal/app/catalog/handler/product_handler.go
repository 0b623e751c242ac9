package handler

import (
	"errors"
	"net/http"
	"strconv"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ProductHandler обрабатывает HTTP запросы к товарам, категориям и поиску
type ProductHandler struct {
	catalogService service.CatalogServiceInterface
	validator      *validator.Validate
}

func NewProductHandler(catalogService service.CatalogServiceInterface) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		validator:      newValidator(),
	}
}

// CreateProduct обрабатывает POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req entity.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateProduct):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Category does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to create product"})
		}
		return
	}

	c.JSON(http.StatusCreated, entity.NewProductResponse(product))
}

// GetProduct обрабатывает GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get product"})
		return
	}

	c.JSON(http.StatusOK, entity.NewProductResponse(product))
}

// ListProducts обрабатывает GET /products
// Фильтры: category_id, is_active; пагинация: page, page_size
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := entity.ProductListFilter{}
	filter.Page, filter.PageSize = parsePagination(c)

	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category_id parameter"})
			return
		}
		id := uint(categoryID)
		filter.CategoryID = &id
	}

	if raw := c.Query("is_active"); raw != "" {
		isActive, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_active parameter"})
			return
		}
		filter.IsActive = &isActive
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to list products"})
		return
	}

	responses := make([]entity.ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, entity.NewProductResponse(&products[i]))
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateProduct обрабатывает PUT /products/:id
// Семантика частичная: меняются только переданные поля
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
		case errors.Is(err, service.ErrDuplicateProduct):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Category does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to update product"})
		}
		return
	}

	c.JSON(http.StatusOK, entity.NewProductResponse(product))
}

// DeleteProduct обрабатывает DELETE /products/:id
// Отзывы товара удаляются вместе с ним
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Product deleted successfully"})
}

// ProductExists обрабатывает GET /products/:id/exists
// Используется другими сервисами для быстрой проверки перед оформлением заказа
func (h *ProductHandler) ProductExists(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	exists, err := h.catalogService.ProductExists(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to check product"})
		return
	}

	c.JSON(http.StatusOK, entity.ExistsResponse{Exists: exists})
}

// GetProductStock обрабатывает GET /products/:id/stock
func (h *ProductHandler) GetProductStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stock, err := h.catalogService.GetProductStock(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get stock"})
		return
	}

	c.JSON(http.StatusOK, entity.StockResponse{ProductID: id, StockQuantity: stock})
}

// ValidateProducts обрабатывает POST /products/validate
// Проверяет корзину целиком и возвращает все найденные проблемы
func (h *ProductHandler) ValidateProducts(c *gin.Context) {
	var req entity.ValidateProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondValidationError(c, err)
		return
	}

	resp, err := h.catalogService.ValidateProducts(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to validate products"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchProducts обрабатывает GET /products/search
// Маршрут регистрируется до /products/:id, иначе gin сочтет "search" за id
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	params := entity.SearchParams{
		Query: c.Query("q"),
		Brand: c.Query("brand"),
	}
	params.Page, params.PageSize = parsePagination(c)

	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category_id parameter"})
			return
		}
		id := uint(categoryID)
		params.CategoryID = &id
	}

	if raw := c.Query("min_price"); raw != "" {
		minPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid min_price parameter"})
			return
		}
		params.MinPrice = &minPrice
	}

	if raw := c.Query("max_price"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid max_price parameter"})
			return
		}
		params.MaxPrice = &maxPrice
	}

	if raw := c.Query("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid in_stock parameter"})
			return
		}
		params.InStock = inStock
	}

	result := h.catalogService.SearchProducts(c.Request.Context(), params)
	c.JSON(http.StatusOK, result)
}

// SuggestProducts обрабатывает GET /products/suggest
func (h *ProductHandler) SuggestProducts(c *gin.Context) {
	prefix := c.Query("q")

	size := 5
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid size parameter"})
			return
		}
		size = parsed
	}

	suggestions := h.catalogService.SuggestProducts(c.Request.Context(), prefix, size)
	c.JSON(http.StatusOK, entity.SuggestResponse{Suggestions: suggestions})
}
