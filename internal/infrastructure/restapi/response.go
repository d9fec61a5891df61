package restapi

import (
	"context"
	"errors"
	"net/http"

	"wallet_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// APIError is the error part of the response envelope.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidInput:
		return http.StatusBadRequest
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	if errors.Is(err, context.Canceled) {
		kind = entity.KindUpstreamUnavailable
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusForKind(kind), APIResponse{
		Error: &APIError{Kind: string(kind), Message: err.Error()},
	})
}

func respondBadRequest(c *gin.Context, format string, args ...any) {
	respondError(c, entity.InvalidInput("request", format, args...))
}
