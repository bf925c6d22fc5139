package service

import (
	"context"
	"io"
	"strings"

	"publicfeed/internal/media"
	"publicfeed/internal/models"
	"publicfeed/internal/repository"
	"publicfeed/internal/validation"
)

// UserService provides profile and user-browsing business logic.
type UserService struct {
	userRepo repository.UserRepository
	uploader media.Uploader
}

// UpdateProfileInput carries the editable profile fields. Nil pointers mean
// leave unchanged; Avatar is an optional image stream from a multipart form.
type UpdateProfileInput struct {
	UserID    uint
	FirstName *string
	LastName  *string
	Bio       *string
	Avatar    io.Reader
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, uploader media.Uploader) *UserService {
	return &UserService{userRepo: userRepo, uploader: uploader}
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns a page of users, newest first.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// UpdateProfile edits the caller's safe profile fields. Email, password and
// verification state are never touched here: the write goes through a column
// map holding only the profile fields, never a whole-struct save.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.FirstName != nil {
		if err := validation.ValidateName("firstName", *in.FirstName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if err := validation.ValidateName("lastName", *in.LastName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}

	if in.Avatar != nil {
		if s.uploader == nil {
			return nil, models.NewValidationError("Avatar uploads are not configured")
		}
		url, err := s.uploader.UploadAvatar(ctx, in.Avatar)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		fields["avatar"] = url
	}

	if err := s.userRepo.UpdateProfile(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	// Re-read after invalidation so the returned user and the re-warmed
	// cache both reflect the write.
	return s.userRepo.GetByID(ctx, in.UserID)
}
