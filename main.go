package main

import (
	"os"
	"strings"

	"mangaforge_back/cache"
	"mangaforge_back/forum"
	"mangaforge_back/generation"
	"mangaforge_back/library"
	"mangaforge_back/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func configureLogging() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func main() {
	mustLoadEnv()
	configureLogging()

	log.Info().Msg("starting mangaforge backend...")

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "x-gemini-api-key")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "message": "Manga Generator Backend is running"})
	})

	db, err := library.OpenDatabaseFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	if _, err := library.RegisterRoutes(r, db); err != nil {
		log.Fatal().Err(err).Msg("register library routes")
	}
	if _, err := forum.RegisterRoutes(r, db); err != nil {
		log.Fatal().Err(err).Msg("register forum routes")
	}

	panelStore, err := storage.NewPanelStoreFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("init panel image store")
	}
	if panelStore.ServesLocal() {
		r.Static("/static/images", panelStore.LocalDir())
	}

	var redisClient *redis.Client
	if client, err := cache.Client(); err != nil {
		log.Info().Err(err).Msg("redis unavailable, validation cache disabled")
	} else {
		redisClient = client
	}

	generation.RegisterRoutes(r, panelStore, redisClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("start server")
	}
}
