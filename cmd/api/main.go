// server/cmd/api/main.go
package main

import (
	"context"

	"rl-express-api-server/config"
	"rl-express-api-server/internal/api/routes"
	"rl-express-api-server/internal/cep"
	"rl-express-api-server/internal/database"
	"rl-express-api-server/internal/intake"
	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/ocr"
	"rl-express-api-server/internal/s3"
	"rl-express-api-server/internal/socket"
	"rl-express-api-server/internal/store"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	kvStore := kv.NewMongoStore(db, "app_records")

	ctx := context.Background()

	deliveryStore := store.New(kvStore, log)
	if err := deliveryStore.Load(ctx); err != nil {
		// A corrupt record means the courier's history is at risk; refuse
		// to start rather than silently dropping it.
		log.WithError(err).Fatal("Failed to load delivery records")
	}

	uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize S3 uploader")
	}

	hub := socket.NewHub(log)

	ocrClient := ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.Model, cfg.OCR.APIKey)
	cepClient := cep.NewClient(cfg.CEP.BaseURL)

	intakeCfg := intake.DefaultConfig()
	if cfg.Intake.InterCallDelay > 0 {
		intakeCfg.InterCallDelay = cfg.Intake.InterCallDelay
	}
	if cfg.Intake.MaxRetries > 0 {
		intakeCfg.MaxRetries = cfg.Intake.MaxRetries
	}

	manager := intake.NewManager(intakeCfg, kvStore, ocrClient, cepClient, deliveryStore, hub, log)
	if err := manager.LoadDraft(ctx); err != nil {
		log.WithError(err).Fatal("Failed to load intake draft")
	}
	manager.Start(ctx)

	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Store:    deliveryStore,
		Intake:   manager,
		Uploader: uploader,
		Hub:      hub,
		Log:      log,
	})

	log.WithField("port", cfg.Server.Port).Info("Starting server")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
