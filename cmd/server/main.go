package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrostream/studio-api/adapters/aicontent"
	"github.com/agrostream/studio-api/adapters/event"
	httpAdapter "github.com/agrostream/studio-api/adapters/http"
	"github.com/agrostream/studio-api/adapters/media_storage"
	"github.com/agrostream/studio-api/adapters/persistence"
	"github.com/agrostream/studio-api/adapters/transcription"
	"github.com/agrostream/studio-api/adapters/videohost"
	authUC "github.com/agrostream/studio-api/internal/application/usecase/auth"
	galleryUC "github.com/agrostream/studio-api/internal/application/usecase/gallery"
	mediaUC "github.com/agrostream/studio-api/internal/application/usecase/media"
	workflowUC "github.com/agrostream/studio-api/internal/application/usecase/workflow"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/auth"
	"github.com/agrostream/studio-api/pkg/logger"
	"github.com/agrostream/studio-api/pkg/tracing"
)

func main() {
	fmt.Println("Start Studio API Server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)

	if cfg.Tracing.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(cfg, appLogger, "studio-api-server")
		if err != nil {
			appLogger.Fatal("cannot init tracing", err)
		}
		defer tp.Shutdown(context.Background())
	}

	// Initialize dependencies
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	redisClient, err := persistence.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	kafkaClient, err := event.NewKafkaProducerClient(cfg)
	if err != nil {
		appLogger.Fatal("cannot init Kafka", err)
	}
	defer kafkaClient.Close()

	// Repositories
	userRepo := persistence.NewPostgresUserRepo(dbPool, appLogger)
	mediaRepo := persistence.NewPostgresMediaRepo(dbPool, appLogger)
	galleryRepo := persistence.NewPostgresGalleryRepo(dbPool, appLogger)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	videoHost, err := videohost.NewMuxClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize video host client", err)
	}
	transcriber, err := transcription.NewWhisperAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize transcriber", err)
	}
	generator, err := aicontent.NewOpenAIAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize AI generator", err)
	}
	imageUploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize image uploader", err)
	}

	// Use Cases
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger)

	workflowCfg := workflowUC.Config{
		PollInterval:   cfg.Workflow.PollInterval,
		UploadAttempts: cfg.Workflow.UploadAttempts,
		ReadyAttempts:  cfg.Workflow.ReadyAttempts,
	}
	createUploadUseCase := workflowUC.NewCreateUploadUseCase(videoHost, appLogger)
	processUploadUseCase := workflowUC.NewProcessUploadUseCase(videoHost, transcriber, generator, mediaRepo, kafkaClient, workflowCfg, appLogger)
	requestWorkflowUseCase := workflowUC.NewRequestWorkflowUseCase(kafkaClient, appLogger)

	listMediaUseCase := mediaUC.NewListMediaUseCase(mediaRepo)
	getMediaUseCase := mediaUC.NewGetMediaUseCase(mediaRepo)
	updateMediaUseCase := mediaUC.NewUpdateMediaUseCase(mediaRepo)
	deleteMediaUseCase := mediaUC.NewDeleteMediaUseCase(mediaRepo, kafkaClient, appLogger)
	regenerateFieldUseCase := mediaUC.NewRegenerateFieldUseCase(mediaRepo, generator, appLogger)
	signPlaybackUseCase := mediaUC.NewSignPlaybackUseCase(mediaRepo, videoHost, redisClient, cfg.Workflow.PlaybackTokenTTL, appLogger)

	uploadImageUseCase := galleryUC.NewUploadImageUseCase(galleryRepo, imageUploader, appLogger)
	listImagesUseCase := galleryUC.NewListImagesUseCase(galleryRepo)
	deleteImageUseCase := galleryUC.NewDeleteImageUseCase(galleryRepo, imageUploader, appLogger)

	// HTTP Handlers
	authHandler := httpAdapter.NewAuthHandler(loginUseCase)
	workflowHandler := httpAdapter.NewWorkflowHandler(createUploadUseCase, processUploadUseCase, requestWorkflowUseCase, appLogger)
	mediaHandler := httpAdapter.NewMediaHandler(
		listMediaUseCase,
		getMediaUseCase,
		updateMediaUseCase,
		deleteMediaUseCase,
		regenerateFieldUseCase,
		signPlaybackUseCase,
		appLogger,
	)
	galleryHandler := httpAdapter.NewGalleryHandler(uploadImageUseCase, listImagesUseCase, deleteImageUseCase)

	// Middleware
	authMiddleware := httpAdapter.AuthMiddleware(jwtSvc)
	errorMiddleware := httpAdapter.ErrorMiddleware(appLogger)

	// Setup Gin router
	router := gin.Default()
	router.Use(errorMiddleware)

	api := router.Group("/api")
	{

		admin := api.Group("/admin")
		{

			adminAuth := admin.Group("/auth")
			adminAuth.POST("/login", authHandler.Login)

			adminPrivate := admin.Group("/")
			adminPrivate.Use(authMiddleware)
			{

				uploads := adminPrivate.Group("/uploads")
				{
					uploads.POST("", workflowHandler.CreateUpload)
					uploads.POST("/process", workflowHandler.ProcessUpload)
					uploads.POST("/enqueue", workflowHandler.RequestProcessing)
				}

				media := adminPrivate.Group("/media")
				{
					media.GET("", mediaHandler.ListMedia)
					media.GET("/:id", mediaHandler.GetMedia)
					media.PUT("/:id", mediaHandler.UpdateMedia)
					media.DELETE("/:id", mediaHandler.DeleteMedia)
					media.POST("/:id/regenerate", mediaHandler.RegenerateField)
					media.GET("/:id/playback-token", mediaHandler.SignPlayback)
				}

				gallery := adminPrivate.Group("/gallery")
				{
					gallery.POST("", galleryHandler.UploadImage)
					gallery.GET("", galleryHandler.ListImages)
					gallery.DELETE("/:id", galleryHandler.DeleteImage)
				}
			}
		}

		public := api.Group("/")
		{
			public.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		}
	}

	log.Printf("Server running on port %s", cfg.App.Port)
	if err := router.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("Cannot run server: %v", err)
	}
}
