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

// ReviewHandler обрабатывает HTTP запросы к отзывам
type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
	validator     *validator.Validate
}

func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     newValidator(),
	}
}

// CreateReview обрабатывает POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondValidationError(c, err)
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
		case errors.Is(err, service.ErrDuplicateReview):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to create review"})
		}
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetReview обрабатывает GET /reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get review"})
		return
	}

	c.JSON(http.StatusOK, review)
}

// ListReviews обрабатывает GET /reviews
// Фильтры: product_id, user_uid, is_approved, min_rating
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	filter := entity.ReviewListFilter{}

	page, pageSize := parsePagination(c)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	if raw := c.Query("product_id"); raw != "" {
		productID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product_id parameter"})
			return
		}
		id := uint(productID)
		filter.ProductID = &id
	}

	if raw := c.Query("user_uid"); raw != "" {
		filter.UserUID = &raw
	}

	if raw := c.Query("is_approved"); raw != "" {
		isApproved, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_approved parameter"})
			return
		}
		filter.IsApproved = &isApproved
	}

	if raw := c.Query("min_rating"); raw != "" {
		minRating, err := strconv.Atoi(raw)
		if err != nil || minRating < 1 || minRating > 5 {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid min_rating parameter"})
			return
		}
		filter.MinRating = &minRating
	}

	reviews, err := h.reviewService.ListReviews(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to list reviews"})
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// UpdateReview обрабатывает PUT /reviews/:id
// Модерация (is_approved) идет через этот же endpoint
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondValidationError(c, err)
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to update review"})
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview обрабатывает DELETE /reviews/:id
// Удаление мягкое: отзыв исчезает из выборок, строка остается в БД
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to delete review"})
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Review deleted successfully"})
}

// GetReviewStats обрабатывает GET /reviews/stats/:product_id
func (h *ReviewHandler) GetReviewStats(c *gin.Context) {
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	stats, err := h.reviewService.GetReviewStats(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get review stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
