package handlers

import (
	"github.com/AnshRaj112/moodjournal-backend/internal/config"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

// InitImageStore picks Cloudinary when credentials are present and falls back
// to the local image directory otherwise.
func InitImageStore(cfg *config.Config) error {
	if cfg.CloudinaryConfigured() {
		store, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		services.Images = store
		logger.L().Info("☁️  images stored in Cloudinary", "folder", services.CloudinaryFolder)
		return nil
	}

	store, err := services.NewLocalImageStore(cfg.ImageDir)
	if err != nil {
		return err
	}
	services.Images = store
	logger.L().Info("🖼️  images stored locally", "dir", cfg.ImageDir)
	return nil
}
