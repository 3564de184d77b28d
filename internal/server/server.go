package server

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/edushare/edushare-backend/internal/config"
	"github.com/edushare/edushare-backend/internal/middleware"
	"github.com/edushare/edushare-backend/internal/realtime"
	"github.com/edushare/edushare-backend/pkg/keylock"
	"github.com/edushare/edushare-backend/pkg/storage"

	catalogHttp "github.com/edushare/edushare-backend/internal/modules/catalog/delivery/http"
	catalogRepo "github.com/edushare/edushare-backend/internal/modules/catalog/repository"
	catalogService "github.com/edushare/edushare-backend/internal/modules/catalog/service"

	commentHttp "github.com/edushare/edushare-backend/internal/modules/comment/delivery/http"
	commentRepo "github.com/edushare/edushare-backend/internal/modules/comment/repository"
	commentService "github.com/edushare/edushare-backend/internal/modules/comment/service"

	favoriteHttp "github.com/edushare/edushare-backend/internal/modules/favorite/delivery/http"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	favoriteService "github.com/edushare/edushare-backend/internal/modules/favorite/service"

	materialHttp "github.com/edushare/edushare-backend/internal/modules/material/delivery/http"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	materialService "github.com/edushare/edushare-backend/internal/modules/material/service"

	notiHttp "github.com/edushare/edushare-backend/internal/modules/notification/delivery/http"
	notifRepo "github.com/edushare/edushare-backend/internal/modules/notification/repository"
	notifService "github.com/edushare/edushare-backend/internal/modules/notification/service"

	ratingHttp "github.com/edushare/edushare-backend/internal/modules/rating/delivery/http"
	ratingRepo "github.com/edushare/edushare-backend/internal/modules/rating/repository"
	ratingService "github.com/edushare/edushare-backend/internal/modules/rating/service"

	reportHttp "github.com/edushare/edushare-backend/internal/modules/report/delivery/http"
	reportRepo "github.com/edushare/edushare-backend/internal/modules/report/repository"
	reportService "github.com/edushare/edushare-backend/internal/modules/report/service"

	searchService "github.com/edushare/edushare-backend/internal/modules/search/service"

	userHttp "github.com/edushare/edushare-backend/internal/modules/user/delivery/http"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	userService "github.com/edushare/edushare-backend/internal/modules/user/service"

	viewService "github.com/edushare/edushare-backend/internal/modules/view/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepository := userRepo.NewUserRepository(db)

	fileStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := searchService.NewSearchService(meiliClient)

	// Realtime: one hub per process, bridged across instances via redis.
	hub := realtime.NewHub()
	router := realtime.NewRouter(hub, redisClient)
	go router.Run(context.Background())
	wsHandler := realtime.NewWSHandler(hub)

	// Per-material write serialization.
	locks := keylock.New()

	materialRepository := materialRepo.NewMaterialRepository(db)
	ratingRepository := ratingRepo.NewRatingRepository(db)
	commentRepository := commentRepo.NewCommentRepository(db)
	favoriteRepository := favoriteRepo.NewFavoriteRepository(db)
	reportRepository := reportRepo.NewReportRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)
	catalogRepository := catalogRepo.NewCatalogRepository(db)

	notificationSvc := notifService.NewNotificationService(notificationRepository, userRepository, favoriteRepository, router)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc)

	ratingSvc := ratingService.NewRatingService(ratingRepository, materialRepository, userRepository, notificationSvc, router, locks)
	ratingHandler := ratingHttp.NewRatingHandler(ratingSvc)

	viewCache := viewService.NewDedupCache(cfg.ViewDedupWindow)
	viewSvc := viewService.NewViewService(viewCache, materialRepository)

	materialSvc := materialService.NewMaterialService(materialRepository, userRepository, ratingRepository, favoriteRepository, ratingSvc, viewSvc, searchSvc, fileStorage, redisClient)
	materialHandler := materialHttp.NewMaterialHandler(materialSvc, userRepository)

	commentSvc := commentService.NewCommentService(commentRepository, materialRepository, notificationSvc, router, redisClient, locks)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	favoriteSvc := favoriteService.NewFavoriteService(favoriteRepository, materialRepository, notificationSvc)
	favoriteHandler := favoriteHttp.NewFavoriteHandler(favoriteSvc)

	reportSvc := reportService.NewReportService(reportRepository, materialRepository, commentRepository, materialSvc, notificationSvc, locks)
	reportHandler := reportHttp.NewReportHandler(reportSvc)

	userSvc := userService.NewUserService(userRepository, ratingSvc, fileStorage)
	userHandler := userHttp.NewUserHandler(userSvc)

	catalogSvc := catalogService.NewCatalogService(catalogRepository)
	catalogHandler := catalogHttp.NewCatalogHandler(catalogSvc)

	engine := gin.New()
	setupCORS(engine, cfg)
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepository)

	api := engine.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}

	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/materials", materialHandler.List)
		public.GET("/materials/:material_id", materialHandler.Get)
		public.GET("/materials/:material_id/comments", commentHandler.List)
		public.GET("/users/:user_id", userHandler.GetProfile)
		public.GET("/catalog", catalogHandler.List)
		public.GET("/ws/materials/:material_id", wsHandler.ServeMaterialRoom)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", userHandler.GetMe)
		protected.PUT("/me/preferences", userHandler.UpdatePreferences)
		protected.PUT("/me/avatar", userHandler.UpdateAvatar)

		protected.POST("/materials", materialHandler.Upload)
		protected.GET("/materials/me", materialHandler.MyMaterials)
		protected.GET("/materials/:material_id/download", materialHandler.Download)
		protected.DELETE("/materials/:material_id", materialHandler.Delete)

		protected.PUT("/materials/:material_id/rating", ratingHandler.Submit)
		protected.POST("/materials/:material_id/comments", commentHandler.Create)
		protected.POST("/comments/:comment_id/reaction", commentHandler.ToggleReaction)

		protected.POST("/materials/:material_id/favorite", favoriteHandler.Toggle)
		protected.GET("/favorites", favoriteHandler.List)

		protected.POST("/materials/:material_id/report", reportHandler.ReportMaterial)
		protected.POST("/comments/:comment_id/report", reportHandler.ReportComment)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:notification_id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:notification_id", notificationHandler.Delete)
		protected.GET("/ws/notifications", wsHandler.ServeUserRoom)

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/reports", reportHandler.Feed)
			adminGroup.PUT("/reports/:report_id", reportHandler.Resolve)
			adminGroup.POST("/catalog", catalogHandler.Add)
			adminGroup.DELETE("/catalog/:item_id", catalogHandler.Remove)
		}
	}

	return &Server{
		engine:      engine,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	allowedOrigins := cfg.AllowedOrigins
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = v
	}
	origins := strings.Split(allowedOrigins, ",")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
