package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"publicfeed/internal/cache"
	"publicfeed/internal/models"
	"publicfeed/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type uploaderStub struct {
	avatarURL string
	err       error
}

func (u *uploaderStub) UploadPostImage(ctx context.Context, r io.Reader) (string, error) {
	return "", errors.New("not used")
}

func (u *uploaderStub) UploadAvatar(ctx context.Context, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	io.Copy(io.Discard, r)
	return u.avatarURL, nil
}

func newTestUserService(t *testing.T, uploader *uploaderStub) (*UserService, *gorm.DB) {
	db := setupTestDB(t)
	if uploader == nil {
		return NewUserService(repository.NewUserRepository(db), nil), db
	}
	return NewUserService(repository.NewUserRepository(db), uploader), db
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdatesSafeFields", func(t *testing.T) {
		svc, db := newTestUserService(t, nil)
		user := seedUser(t, db, "profile@example.com")

		first, bio := "Updated", "New bio"
		updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID:    user.ID,
			FirstName: &first,
			Bio:       &bio,
		})
		require.NoError(t, err)
		assert.Equal(t, "Updated", updated.FirstName)
		assert.Equal(t, "User", updated.LastName)
		assert.Equal(t, "New bio", updated.Bio)
	})

	t.Run("CachedReadNeverBlanksCredentials", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		t.Cleanup(func() { cache.SetClient(nil) })

		svc, db := newTestUserService(t, nil)
		user := seedUser(t, db, "profile@example.com")

		// Warm the cache. The cached JSON strips the credential fields, so
		// a later write must not round-trip through that representation.
		_, err := svc.GetUser(ctx, user.ID)
		require.NoError(t, err)

		bio := "New bio"
		updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: user.ID, Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "New bio", updated.Bio)

		var fromDB models.User
		require.NoError(t, db.First(&fromDB, user.ID).Error)
		assert.NotEmpty(t, fromDB.Password)
		assert.Equal(t, user.Password, fromDB.Password)
		assert.Equal(t, "New bio", fromDB.Bio)
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		svc, db := newTestUserService(t, nil)
		user := seedUser(t, db, "profile@example.com")

		empty := "  "
		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: user.ID, FirstName: &empty})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeValidation, appErr.Code)
	})

	t.Run("UploadsAvatar", func(t *testing.T) {
		svc, db := newTestUserService(t, &uploaderStub{avatarURL: "https://cdn.example.com/avatar.png"})
		user := seedUser(t, db, "profile@example.com")

		updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: user.ID,
			Avatar: strings.NewReader("fake image bytes"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/avatar.png", updated.Avatar)
	})

	t.Run("AvatarWithoutUploaderConfigured", func(t *testing.T) {
		svc, db := newTestUserService(t, nil)
		user := seedUser(t, db, "profile@example.com")

		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: user.ID,
			Avatar: strings.NewReader("fake image bytes"),
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeValidation, appErr.Code)
	})

	t.Run("MissingUser", func(t *testing.T) {
		svc, _ := newTestUserService(t, nil)
		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 12345})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestUserService(t, nil)

	seedUser(t, db, "a@example.com")
	seedUser(t, db, "b@example.com")
	seedUser(t, db, "c@example.com")

	users, err := svc.ListUsers(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
