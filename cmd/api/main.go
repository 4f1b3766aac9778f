package main

import (
	"context"
	"net/http"

	"gazetteer-api/internal/cache"
	"gazetteer-api/internal/config"
	"gazetteer-api/internal/handler"
	"gazetteer-api/internal/repository"
	"gazetteer-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title        Gazetteer API
// @version      1.0
// @description  Text and geospatial lookup over an ingested gazetteer.
func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	// Database connection
	conn, err := pgxpool.New(context.Background(), config.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	// Optional search cache
	var searchCache *cache.SearchCache
	if config.UseCache && config.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddress,
			Password: config.RedisPassword,
		})
		searchCache = cache.New(rdb, config.CacheTTL)
	}

	// Initialize layers
	repo := repository.NewRepository(conn)

	searchService := service.NewSearchService(repo, searchCache, config.StoreTimeout)
	verifyService := service.NewVerifyService(repo, config.StoreTimeout)

	searchHandler := handler.NewSearchHandler(searchService)
	verifyHandler := handler.NewVerifyHandler(verifyService)
	metricsHandler := handler.NewMetricsHandler(searchCache)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", metricsHandler.Metrics)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api", handler.TokenAuth(config.APIToken))
	api.GET("/search", searchHandler.Search)
	api.GET("/verify", verifyHandler.Verify)

	r.Run(config.ServerAddress)
}
