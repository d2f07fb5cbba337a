package main

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/handlers"
	"ktp-deploy/internal/pkg/logger"
	"ktp-deploy/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded, using environment as-is")
	}

	cfg := config.LoadRelay()

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if cfg.AuthKey == "" {
		log.Fatal("KTP_RELAY_AUTH_KEY must be set")
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "X-Auth-Key"},
	}))

	relay := handlers.NewRelayHandler(cfg, log)
	router.RegisterRoutes(r, relay)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("Relay listening",
		zap.String("address", addr),
		zap.String("pipe_dir", cfg.PipeDir),
		zap.Int("min_port", cfg.MinInstancePort),
		zap.Int("max_port", cfg.MaxInstancePort))
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start relay", zap.Error(err))
	}
}
