// Package service provides application business logic (auth, posts, users).
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"publicfeed/internal/mail"
	"publicfeed/internal/middleware"
	"publicfeed/internal/models"
	"publicfeed/internal/observability"
	"publicfeed/internal/repository"
	"publicfeed/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL        = 5 * time.Minute
	resetTokenTTL = time.Hour
)

// AuthService implements the signup/verification/session lifecycle.
type AuthService struct {
	userRepo  repository.UserRepository
	mailer    mail.Mailer
	clientURL string
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// NewAuthService returns a new AuthService. clientURL is the frontend origin
// used to build password-reset links.
func NewAuthService(userRepo repository.UserRepository, mailer mail.Mailer, clientURL string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		mailer:    mailer,
		clientURL: clientURL,
	}
}

// generateOTP returns a 4-digit code drawn from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// generateResetToken returns the plaintext token and its SHA-256 hex digest.
// Only the digest is persisted.
func generateResetToken() (token, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(token))
	return token, hex.EncodeToString(sum[:]), nil
}

// Register creates a pending account and emails its verification code. The
// user row is persisted only after the email send succeeds, so a dead mailer
// never strands an account that could never verify.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateName("firstName", in.FirstName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName("lastName", in.LastName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateEmailError()
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := mail.SendOTP(ctx, s.mailer, in.Email, in.FirstName, otp); err != nil {
		middleware.Logger.ErrorContext(ctx, "OTP email send failed", "error", err)
		return nil, models.NewDeliveryFailureError(err)
	}

	expiresAt := time.Now().Add(otpTTL)
	user := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Password:     string(passwordHash),
		OTPHash:      string(otpHash),
		OTPExpiresAt: &expiresAt,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyOTP promotes a pending account to verified. Wrong codes and expired
// codes are indistinguishable to the caller.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.OTPVerifications.WithLabelValues("unknown_email").Inc()
		return nil, models.NewNotFoundError("User", email)
	}
	if user.IsVerified {
		return nil, models.NewAlreadyVerifiedError()
	}

	if user.OTPHash == "" || user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		observability.OTPVerifications.WithLabelValues("expired").Inc()
		return nil, models.NewInvalidOTPError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.OTPHash), []byte(code)); err != nil {
		observability.OTPVerifications.WithLabelValues("mismatch").Inc()
		return nil, models.NewInvalidOTPError()
	}

	user.IsVerified = true
	user.OTPHash = ""
	user.OTPExpiresAt = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	observability.OTPVerifications.WithLabelValues("success").Inc()
	return user, nil
}

// Login checks credentials. Unknown email and wrong password produce the same
// error so the endpoint cannot be used to probe for accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewInvalidCredentialsError()
	}
	if !user.IsVerified {
		return nil, models.NewNotVerifiedError()
	}
	return user, nil
}

// RequestPasswordReset emails a reset link when the account exists. The
// return is identical either way; callers always answer with the same
// generic message.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, digest, err := generateResetToken()
	if err != nil {
		return models.NewInternalError(err)
	}

	expiresAt := time.Now().Add(resetTokenTTL)
	user.ResetTokenHash = digest
	user.ResetExpiresAt = &expiresAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		strings.TrimRight(s.clientURL, "/"), token, url.QueryEscape(user.Email))
	if err := mail.SendPasswordReset(ctx, s.mailer, user.Email, resetURL); err != nil {
		middleware.Logger.ErrorContext(ctx, "password reset email send failed", "error", err)
		return models.NewDeliveryFailureError(err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewInvalidResetTokenError()
	}
	if user.ResetTokenHash == "" || user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		return models.NewInvalidResetTokenError()
	}

	sum := sha256.Sum256([]byte(token))
	digest := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.ResetTokenHash)) != 1 {
		return models.NewInvalidResetTokenError()
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	user.Password = string(passwordHash)
	user.ResetTokenHash = ""
	user.ResetExpiresAt = nil
	return s.userRepo.Update(ctx, user)
}

// RunPendingAccountJanitor deletes unverified accounts older than ttl on an
// hourly sweep until ctx is cancelled.
func (s *AuthService) RunPendingAccountJanitor(ctx context.Context, ttl time.Duration) {
	sweep := func() {
		deleted, err := s.userRepo.DeleteUnverifiedBefore(ctx, time.Now().Add(-ttl))
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "pending account sweep failed", "error", err)
			return
		}
		if deleted > 0 {
			middleware.Logger.InfoContext(ctx, "deleted stale pending accounts", "count", deleted)
		}
	}

	sweep()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
