package handler

import (
	"net/http"
	"time"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "catalog"

// SetupRoutes настраивает все маршруты сервиса каталога
// Статические маршруты /products/search, /suggest и /validate
// регистрируются в той же группе что и /:id - gin разрешает такие
// конфликты в пользу статических сегментов
func SetupRoutes(
	productHandler *ProductHandler,
	categoryHandler *CategoryHandler,
	reviewHandler *ReviewHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, entity.HealthResponse{
			Status:    "ok",
			Service:   serviceName,
			Timestamp: time.Now(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := router.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.POST("", productHandler.CreateProduct)
		products.GET("/search", productHandler.SearchProducts)
		products.GET("/suggest", productHandler.SuggestProducts)
		products.POST("/validate", productHandler.ValidateProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.PUT("/:id", productHandler.UpdateProduct)
		products.DELETE("/:id", productHandler.DeleteProduct)
		products.GET("/:id/exists", productHandler.ProductExists)
		products.GET("/:id/stock", productHandler.GetProductStock)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", categoryHandler.GetAllCategories)
		categories.POST("", categoryHandler.CreateCategory)
		categories.GET("/:id", categoryHandler.GetCategory)
		categories.PUT("/:id", categoryHandler.UpdateCategory)
		categories.DELETE("/:id", categoryHandler.DeleteCategory)
	}

	reviews := router.Group("/reviews")
	{
		reviews.GET("", reviewHandler.ListReviews)
		reviews.POST("", reviewHandler.CreateReview)
		reviews.GET("/stats/:product_id", reviewHandler.GetReviewStats)
		reviews.GET("/:id", reviewHandler.GetReview)
		reviews.PUT("/:id", reviewHandler.UpdateReview)
		reviews.DELETE("/:id", reviewHandler.DeleteReview)
	}

	return router
}
