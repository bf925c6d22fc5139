package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes used across the API.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeNotVerified          = "NOT_VERIFIED"
	CodeAlreadyVerified      = "ALREADY_VERIFIED"
	CodeInvalidOrExpiredCode = "INVALID_OR_EXPIRED_CODE"
	CodeInvalidResetToken    = "INVALID_OR_EXPIRED_TOKEN"
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeDeliveryFailure      = "DELIVERY_FAILURE"
	CodeStorageUnavailable   = "STORAGE_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:    CodeDuplicateEmail,
		Message: "Email already registered",
	}
}

// NewInvalidCredentialsError is used uniformly for unknown email and wrong
// password so responses do not reveal which accounts exist.
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password",
	}
}

func NewNotVerifiedError() *AppError {
	return &AppError{
		Code:    CodeNotVerified,
		Message: "Email not verified yet",
	}
}

func NewAlreadyVerifiedError() *AppError {
	return &AppError{
		Code:    CodeAlreadyVerified,
		Message: "User already verified",
	}
}

// NewInvalidOTPError covers both a mismatched and an expired code; the two
// cases are indistinguishable to the caller.
func NewInvalidOTPError() *AppError {
	return &AppError{
		Code:    CodeInvalidOrExpiredCode,
		Message: "Invalid or expired OTP",
	}
}

func NewInvalidResetTokenError() *AppError {
	return &AppError{
		Code:    CodeInvalidResetToken,
		Message: "Token invalid or expired",
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewDeliveryFailureError(err error) *AppError {
	return &AppError{
		Code:    CodeDeliveryFailure,
		Message: "Failed to send email",
		Err:     err,
	}
}

func NewStorageUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageUnavailable,
		Message: "Storage unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusForError maps an application error to its HTTP status code.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeDuplicateEmail, CodeAlreadyVerified,
		CodeInvalidOrExpiredCode, CodeInvalidResetToken:
		return fiber.StatusBadRequest
	case CodeInvalidCredentials, CodeNotVerified, CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Internal details are logged upstream, never exposed.
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError maps the error to its HTTP status and writes it.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusForError(err), err)
}
