// @title NMT Prep API
// @version 1.0
// @description Backend for the Ukrainian history NMT preparation platform.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"nmt_prep_backend/internal/app"
	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/pkg/configwatcher"
	"nmt_prep_backend/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	configDir := flag.String("config", "configs", "config directory")
	flag.Parse()

	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	go configwatcher.WatchConfig(*configDir+"/config.yaml", cfg, func(updated interface{}) {
		logger.Log.Info("configuration reloaded")
	})

	application.Run()
}
