package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// SetupValidator makes validation errors report json (or form) field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
	}
}

func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	}
	return name
}

// FormatValidationErrors converts validator errors into an ERR_VALIDATION
// response with one detail per field
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}

	return dto.Invalid("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 for a failed ShouldBind call. Body
// decoding failures become ERR_INVALID_JSON, constraint failures
// ERR_VALIDATION with details.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var (
		syntaxErr    *json.SyntaxError
		typeErr      *json.UnmarshalTypeError
		maxBytesErr  *http.MaxBytesError
		validatorErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &maxBytesErr):
		c.JSON(http.StatusRequestEntityTooLarge,
			dto.Fail(dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size", requestID))
	case errors.As(err, &validatorErr):
		c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.JSON(http.StatusBadRequest,
			dto.Fail(dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
	default:
		c.JSON(http.StatusBadRequest,
			dto.Fail(dto.ErrCodeBadRequest, err.Error(), requestID))
	}
}

// fieldMessages maps a validator tag to its message. %s is the tag
// parameter; "chars" entries apply to string fields.
var fieldMessages = map[string]string{
	"required":  "This field is required",
	"email":     "Invalid email format",
	"uuid":      "Invalid UUID format",
	"url":       "Invalid URL format",
	"oneof":     "Must be one of: %s",
	"gt":        "Must be greater than %s",
	"gte":       "Must be greater than or equal to %s",
	"min":       "Must be at least %s",
	"max":       "Must be at most %s",
	"min/chars": "Must be at least %s characters",
	"max/chars": "Must be at most %s characters",
}

func validationMessage(e validator.FieldError) string {
	tag := e.Tag()
	if e.Kind() == reflect.String {
		if _, ok := fieldMessages[tag+"/chars"]; ok {
			tag += "/chars"
		}
	}
	msg, ok := fieldMessages[tag]
	if !ok {
		return "Invalid value"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}
