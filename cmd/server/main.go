package main

import (
	"log"

	"github.com/edushare/edushare-backend/internal/config"
	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/edushare/edushare-backend/internal/server"
	"github.com/edushare/edushare-backend/pkg/database"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set, running without rate limiting and cross-instance realtime")
	}

	srv := server.NewServer(cfg, db, redisClient)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Material{},
		&entity.MaterialRating{},
		&entity.Favorite{},
		&entity.Comment{},
		&entity.CommentReaction{},
		&entity.Report{},
		&entity.Notification{},
		&entity.CatalogItem{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "admin@edushare.local").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := entity.User{
		Username:              "admin",
		Email:                 "admin@edushare.local",
		PasswordHash:          string(hash),
		Role:                  entity.RoleAdmin,
		NotifyRating:          true,
		NotifyCommentOwn:      true,
		NotifyCommentFavorite: true,
		NotifyReport:          true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded (admin@edushare.local / admin123)")
	return nil
}
