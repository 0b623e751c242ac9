// Package handler содержит HTTP слой каталога на gin.
package handler

import (
	"net/http"
	"regexp"
	"strconv"

	"productcatalog/internal/app/catalog/entity"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// userUIDPattern ограничивает внешний идентификатор пользователя
// буквами, цифрами, подчеркиванием и дефисом
var userUIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// newValidator создает валидатор с доменными правилами
func newValidator() *validator.Validate {
	v := validator.New()
	// Ошибка регистрации возможна только при пустом имени тега
	_ = v.RegisterValidation("user_uid", func(fl validator.FieldLevel) bool {
		return userUIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// formatValidationErrors переводит ошибки валидатора в список для details
func formatValidationErrors(err error) []string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			details = append(details, fieldError.Field()+" failed on "+fieldError.Tag())
		}
		return details
	}
	return []string{"validation failed"}
}

// respondValidationError отвечает 422 со списком нарушенных правил
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, entity.ErrorResponse{
		Error:   "Validation failed",
		Details: formatValidationErrors(err),
	})
}

// parseIDParam разбирает path параметр с числовым ID
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}

// parsePagination читает page и page_size из query с дефолтами
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return page, pageSize
}
