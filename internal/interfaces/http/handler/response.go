package handler

import "github.com/marketplace/backend/internal/interfaces/http/dto"

// APIResponse documents the response envelope for OpenAPI
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents an error response for OpenAPI
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// MessageData is returned by operations without a resource body
type MessageData struct {
	Message string `json:"message" example:"Item removed from cart"`
}
