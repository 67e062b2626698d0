// @title EduLearn Backend API
// @version 1.0
// @description E-learning platform backend: courses, assessments, grading and subscriptions.

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"edulearn_backend/internal/app"
	"edulearn_backend/internal/config"
	"edulearn_backend/pkg/configwatcher"
	"edulearn_backend/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "force database migrations on startup, even in release mode")
	watch := flag.Bool("watch-config", false, "reload configuration when the config file changes")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration completed, exiting")
		return
	}

	if *watch {
		go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
			if c, ok := newCfg.(*config.Config); ok {
				application.ApplyConfig(c)
			}
		})
	}

	application.Run()
}
