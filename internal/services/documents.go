package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// DocumentService uploads member documents to Cloudinary under a per-member
// folder.
type DocumentService struct {
	cld *cloudinary.Cloudinary
}

func NewDocumentService(cloudName, apiKey, apiSecret string) (*DocumentService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &DocumentService{cld: cld}, nil
}

// Upload stores a file under members/<memberNumber>/ and returns its URL.
func (s *DocumentService) Upload(ctx context.Context, file multipart.File, memberNumber string) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	uploadResult, err := s.cld.Upload.Upload(ctx, fileBytes, uploader.UploadParams{
		Folder:       "members/" + memberNumber,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return uploadResult.SecureURL, nil
}

// UploadFromHeader opens and uploads a multipart file header.
func (s *DocumentService) UploadFromHeader(ctx context.Context, fileHeader *multipart.FileHeader, memberNumber string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.Upload(ctx, file, memberNumber)
}
