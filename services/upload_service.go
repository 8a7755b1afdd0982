package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// UploadService stores optional request images with the external file
// storage collaborator and returns the stored reference.
type UploadService struct {
	cld    *cloudinary.Cloudinary
	logger *zap.Logger
}

// NewUploadService connects to Cloudinary from a CLOUDINARY_URL-style URL.
func NewUploadService(cloudinaryURL string, logger *zap.Logger) (*UploadService, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is not configured")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &UploadService{cld: cld, logger: logger}, nil
}

// UploadRequestImage uploads a customer-provided image and returns its URL.
func (s *UploadService) UploadRequestImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	result, err := s.cld.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder: "service-requests",
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	s.logger.Info("request image uploaded",
		zap.String("public_id", result.PublicID))
	return result.SecureURL, nil
}
