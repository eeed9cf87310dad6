package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Error codes carried in the detail object of every error response
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeForbidden          = "FORBIDDEN"
	CodeTaskNotFound       = "TASK_NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the body of an error response
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorDetail as {"detail": {...}}
type ErrorResponse struct {
	Detail ErrorDetail `json:"detail"`
}

// FieldError describes one rejected request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, code, message string, err error) {
	event := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("code", code).Int("status", statusCode).Msg(message)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Detail: ErrorDetail{Code: code, Message: message},
	})
}

// respondWithBindError reports a request that failed binding or validation as 422
func respondWithBindError(c *gin.Context, log zerolog.Logger, err error) {
	log.Warn().Err(err).Msg("Rejected request body")

	detail := ErrorDetail{Code: CodeValidation, Message: "Invalid request"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
		}
		detail.Details = fields
		detail.Message = describeFieldError(verrs[0])
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: detail})
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
