package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"publicfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userRepoStub struct {
	users  map[string]*models.User
	nextID uint

	createErr error
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: map[string]*models.User{}, nextID: 1}
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = s.nextID
	s.nextID++
	user.Email = strings.ToLower(user.Email)
	s.users[user.Email] = user
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if v, ok := fields["first_name"].(string); ok {
		u.FirstName = v
	}
	if v, ok := fields["last_name"].(string); ok {
		u.LastName = v
	}
	if v, ok := fields["bio"].(string); ok {
		u.Bio = v
	}
	if v, ok := fields["avatar"].(string); ok {
		u.Avatar = v
	}
	return nil
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return nil, nil
}

func (s *userRepoStub) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for email, u := range s.users {
		if !u.IsVerified && u.CreatedAt.Before(cutoff) {
			delete(s.users, email)
			deleted++
		}
	}
	return deleted, nil
}

type mailerStub struct {
	sent    []string // subjects
	lastTo  string
	lastTxt string
	fail    bool
}

func (m *mailerStub) Send(ctx context.Context, to, subject, text, html string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, subject)
	m.lastTo = to
	m.lastTxt = text
	return nil
}

// extractOTP pulls the 4-digit code out of the plaintext email body.
func extractOTP(t *testing.T, body string) string {
	t.Helper()
	for _, field := range strings.Fields(body) {
		trimmed := strings.Trim(field, ".,!")
		if len(trimmed) == 4 && strings.IndexFunc(trimmed, func(r rune) bool {
			return r < '0' || r > '9'
		}) == -1 {
			return trimmed
		}
	}
	t.Fatalf("no OTP found in email body: %q", body)
	return ""
}

func registerInput() RegisterInput {
	return RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "Secret123!",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesPendingAccount", func(t *testing.T) {
		repo := newUserRepoStub()
		mailer := &mailerStub{}
		svc := NewAuthService(repo, mailer, "http://localhost:3000")

		user, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		assert.False(t, user.IsVerified)
		assert.NotEqual(t, "Secret123!", user.Password)
		assert.NotEmpty(t, user.OTPHash)
		require.NotNil(t, user.OTPExpiresAt)
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), *user.OTPExpiresAt, time.Minute)
		assert.Len(t, mailer.sent, 1)
		assert.Equal(t, "jane@example.com", mailer.lastTo)
	})

	t.Run("NoAccountWhenEmailSendFails", func(t *testing.T) {
		repo := newUserRepoStub()
		svc := NewAuthService(repo, &mailerStub{fail: true}, "http://localhost:3000")

		_, err := svc.Register(ctx, registerInput())

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeDeliveryFailure, appErr.Code)
		assert.Empty(t, repo.users)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := newUserRepoStub()
		svc := NewAuthService(repo, &mailerStub{}, "http://localhost:3000")

		_, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)

		in := registerInput()
		in.Email = "JANE@example.com"
		_, err = svc.Register(ctx, in)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeDuplicateEmail, appErr.Code)
	})

	t.Run("RejectsWeakPassword", func(t *testing.T) {
		svc := NewAuthService(newUserRepoStub(), &mailerStub{}, "http://localhost:3000")

		in := registerInput()
		in.Password = "short"
		_, err := svc.Register(ctx, in)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeValidation, appErr.Code)
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T) (*AuthService, *userRepoStub, string) {
		repo := newUserRepoStub()
		mailer := &mailerStub{}
		svc := NewAuthService(repo, mailer, "http://localhost:3000")
		_, err := svc.Register(ctx, registerInput())
		require.NoError(t, err)
		return svc, repo, extractOTP(t, mailer.lastTxt)
	}

	t.Run("Success", func(t *testing.T) {
		svc, _, otp := register(t)

		user, err := svc.VerifyOTP(ctx, "jane@example.com", otp)
		require.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.Empty(t, user.OTPHash)
		assert.Nil(t, user.OTPExpiresAt)
	})

	t.Run("WrongCode", func(t *testing.T) {
		svc, _, otp := register(t)

		wrong := "0000"
		if otp == wrong {
			wrong = "0001"
		}
		_, err := svc.VerifyOTP(ctx, "jane@example.com", wrong)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInvalidOrExpiredCode, appErr.Code)
	})

	t.Run("ExpiredCodeSameError", func(t *testing.T) {
		svc, repo, otp := register(t)

		user := repo.users["jane@example.com"]
		past := time.Now().Add(-time.Minute)
		user.OTPExpiresAt = &past

		_, err := svc.VerifyOTP(ctx, "jane@example.com", otp)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInvalidOrExpiredCode, appErr.Code)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		svc, _, otp := register(t)

		_, err := svc.VerifyOTP(ctx, "jane@example.com", otp)
		require.NoError(t, err)

		_, err = svc.VerifyOTP(ctx, "jane@example.com", otp)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeAlreadyVerified, appErr.Code)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		svc := NewAuthService(newUserRepoStub(), &mailerStub{}, "http://localhost:3000")

		_, err := svc.VerifyOTP(ctx, "ghost@example.com", "1234")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, verified bool) *AuthService {
		repo := newUserRepoStub()
		hash, err := bcrypt.GenerateFromPassword([]byte("Secret123!"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, &models.User{
			FirstName:  "Jane",
			LastName:   "Doe",
			Email:      "jane@example.com",
			Password:   string(hash),
			IsVerified: verified,
		}))
		return NewAuthService(repo, &mailerStub{}, "http://localhost:3000")
	}

	t.Run("Success", func(t *testing.T) {
		svc := setup(t, true)
		user, err := svc.Login(ctx, "jane@example.com", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", user.Email)
	})

	t.Run("UnknownEmailAndWrongPasswordSameError", func(t *testing.T) {
		svc := setup(t, true)

		_, errUnknown := svc.Login(ctx, "ghost@example.com", "Secret123!")
		_, errWrong := svc.Login(ctx, "jane@example.com", "wrongpass1")

		var appErr *models.AppError
		require.ErrorAs(t, errUnknown, &appErr)
		assert.Equal(t, models.CodeInvalidCredentials, appErr.Code)
		require.ErrorAs(t, errWrong, &appErr)
		assert.Equal(t, models.CodeInvalidCredentials, appErr.Code)
	})

	t.Run("UnverifiedAccountCannotLogin", func(t *testing.T) {
		svc := setup(t, false)

		_, err := svc.Login(ctx, "jane@example.com", "Secret123!")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotVerified, appErr.Code)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*AuthService, *userRepoStub, *mailerStub) {
		repo := newUserRepoStub()
		hash, err := bcrypt.GenerateFromPassword([]byte("Secret123!"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, &models.User{
			FirstName:  "Jane",
			LastName:   "Doe",
			Email:      "jane@example.com",
			Password:   string(hash),
			IsVerified: true,
		}))
		mailer := &mailerStub{}
		return NewAuthService(repo, mailer, "http://localhost:3000"), repo, mailer
	}

	extractToken := func(t *testing.T, body string) string {
		t.Helper()
		idx := strings.Index(body, "token=")
		require.NotEqual(t, -1, idx, "reset link missing from email")
		rest := body[idx+len("token="):]
		if amp := strings.IndexAny(rest, "& \n"); amp != -1 {
			rest = rest[:amp]
		}
		return rest
	}

	t.Run("RequestIsGenericForUnknownEmail", func(t *testing.T) {
		svc, _, mailer := setup(t)

		err := svc.RequestPasswordReset(ctx, "ghost@example.com")
		assert.NoError(t, err)
		assert.Empty(t, mailer.sent)
	})

	t.Run("RequestStoresHashNotToken", func(t *testing.T) {
		svc, repo, mailer := setup(t)

		require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
		require.Len(t, mailer.sent, 1)

		token := extractToken(t, mailer.lastTxt)
		user := repo.users["jane@example.com"]
		assert.NotEqual(t, token, user.ResetTokenHash)

		sum := sha256.Sum256([]byte(token))
		assert.Equal(t, hex.EncodeToString(sum[:]), user.ResetTokenHash)
	})

	t.Run("ResetRoundTrip", func(t *testing.T) {
		svc, repo, mailer := setup(t)

		require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
		token := extractToken(t, mailer.lastTxt)

		err := svc.ResetPassword(ctx, "jane@example.com", token, "NewSecret42")
		require.NoError(t, err)

		user := repo.users["jane@example.com"]
		assert.Empty(t, user.ResetTokenHash)
		assert.Nil(t, user.ResetExpiresAt)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("NewSecret42")))

		// Token is single-use.
		err = svc.ResetPassword(ctx, "jane@example.com", token, "AnotherPass9")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInvalidResetToken, appErr.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		svc, repo, mailer := setup(t)

		require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
		token := extractToken(t, mailer.lastTxt)

		past := time.Now().Add(-time.Minute)
		repo.users["jane@example.com"].ResetExpiresAt = &past

		err := svc.ResetPassword(ctx, "jane@example.com", token, "NewSecret42")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInvalidResetToken, appErr.Code)
	})
}
