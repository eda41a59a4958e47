// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/admarket/admarket-backend/internal/config"
	"github.com/admarket/admarket-backend/internal/handlers"
	"github.com/admarket/admarket-backend/internal/middleware"
	"github.com/admarket/admarket-backend/internal/services"
	"github.com/admarket/admarket-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	ledgerService := services.NewLedgerService(cfg.Ledger)
	contentService := services.NewContentService(cfg.ContentStore)
	accountingService := services.NewAccountingService(db, cfg.Rewards)
	videoService := services.NewVideoService(db, contentService, ledgerService)
	authService := services.NewAuthService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(videoService)
	campaignHandler := handlers.NewCampaignHandler(accountingService, contentService, ledgerService)
	dashboardHandler := handlers.NewDashboardHandler(accountingService, videoService)
	creatorHandler := handlers.NewCreatorHandler(ledgerService, ledgerService)
	attesterHandler := handlers.NewAttesterHandler(ledgerService)
	rolesHandler := handlers.NewRolesHandler(ledgerService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		// Authentication routes
		auth := api.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Video routes
		video := api.Group("/video")
		{
			video.POST("/upload-video", middleware.UploadRateLimit(), videoHandler.UploadVideo)
			video.GET("/list", videoHandler.ListVideos)
			video.GET("/:id", videoHandler.GetVideo)
		}

		// Campaign routes
		campaign := api.Group("/campaign")
		{
			campaign.POST("/create", middleware.AuthRequired(), middleware.UploadRateLimit(), campaignHandler.CreateCampaign)
			campaign.POST("/track-view", middleware.OptionalAuth(), campaignHandler.TrackView)
			campaign.GET("/list", campaignHandler.ListCampaigns)
			campaign.GET("/:videoId", campaignHandler.GetCampaignForVideo)
			campaign.GET("/:videoId/views", middleware.AuthRequired(), campaignHandler.ListViews)
			campaign.POST("/recount/:id", middleware.AuthRequired(), campaignHandler.RecountCampaign)
		}

		// Attester routes
		attester := api.Group("/attester")
		attester.Use(middleware.AuthRequired(), middleware.AttesterRequired())
		{
			attester.POST("/record", attesterHandler.RecordWatchTime)
		}

		// Creator routes (ledger-facing)
		creator := api.Group("/creator")
		{
			creator.POST("/withdraw", middleware.AuthRequired(), creatorHandler.Withdraw)
			creator.GET("/balance/:addr", creatorHandler.OnChainBalance)
		}

		// On-chain role registration passthroughs
		roles := api.Group("/roles")
		{
			roles.POST("/register_creator", rolesHandler.RegisterCreator)
			roles.POST("/register_advertiser", rolesHandler.RegisterAdvertiser)
			roles.POST("/add_attester", rolesHandler.AddAttester)
		}

		// Dashboard routes
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/creator/:address", dashboardHandler.GetCreatorDashboard)
			dashboard.GET("/stats", dashboardHandler.GetPlatformStats)
		}
	}

	return r
}
