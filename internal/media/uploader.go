// Package media wraps the Cloudinary image hosting collaborator.
package media

import (
	"context"
	"fmt"
	"io"

	"publicfeed/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Transformations applied at upload time, mirroring the client-facing
// rendering: feed images are size-capped, avatars are square face crops.
const (
	postTransformation   = "w_800,h_800,c_limit,q_auto:good,f_auto"
	avatarTransformation = "w_400,h_400,c_fill,g_face,q_auto:best,f_auto"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	UploadPostImage(ctx context.Context, r io.Reader) (string, error)
	UploadAvatar(ctx context.Context, r io.Reader) (string, error)
}

// CloudinaryUploader implements Uploader against the Cloudinary API.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader builds an Uploader from config. It returns nil (no
// uploader) when credentials are not configured, which disables image fields.
func NewCloudinaryUploader(cfg *config.Config) (*CloudinaryUploader, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init failed: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) upload(ctx context.Context, r io.Reader, folder, transformation string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         folder,
		Transformation: transformation,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	return resp.SecureURL, nil
}

// UploadPostImage stores a feed image and returns its delivery URL.
func (u *CloudinaryUploader) UploadPostImage(ctx context.Context, r io.Reader) (string, error) {
	return u.upload(ctx, r, "publicfeed", postTransformation)
}

// UploadAvatar stores a profile picture and returns its delivery URL.
func (u *CloudinaryUploader) UploadAvatar(ctx context.Context, r io.Reader) (string, error) {
	return u.upload(ctx, r, "publicfeed/avatars", avatarTransformation)
}
