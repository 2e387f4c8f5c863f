package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attachr/internal/domain"
	"attachr/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	RespondErrorWithData(c, status, code, msg, nil)
}

// RespondErrorWithData sends an error response that also carries data, for
// operations that failed after partially succeeding.
func RespondErrorWithData(c *gin.Context, status int, code, msg string, data interface{}) {
	c.JSON(status, APIResponse{
		Success: false,
		Data:    data,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var cfgErr *domain.ConfigurationError
	var tErr *domain.TransformError
	var bErr *domain.BackendError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnknownDefinition):
		return http.StatusNotFound, "UNKNOWN_DEFINITION", "unknown attachment definition"
	case errors.Is(err, domain.ErrUnknownVersion):
		return http.StatusBadRequest, "UNKNOWN_VERSION", "unknown attachment version"
	case errors.Is(err, domain.ErrInvalidFile):
		return http.StatusUnprocessableEntity, "INVALID_FILE", "file rejected by attachment definition"
	case errors.Is(err, domain.ErrEmptySource):
		return http.StatusBadRequest, "MISSING_FILENAME", "file must have a name"
	case errors.Is(err, domain.ErrSignatureExpired):
		return http.StatusForbidden, "SIGNATURE_EXPIRED", "url signature expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusForbidden, "INVALID_SIGNATURE", "invalid url signature"
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR", cfgErr.Error()
	case errors.As(err, &tErr):
		return http.StatusUnprocessableEntity, "TRANSFORM_FAILED", "version " + tErr.Version + " could not be generated"
	case errors.As(err, &bErr):
		return http.StatusBadGateway, "STORAGE_ERROR", "storage backend rejected the request"
	case errors.Is(err, domain.ErrStoreFailed):
		return http.StatusInternalServerError, "STORE_FAILED", "attachment store failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError with data attached to the error body.
func HandleErrorWithData(c *gin.Context, err error, data interface{}) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Printf("[%s] internal error: %v", middleware.GetRequestID(c), err)
	}
	RespondErrorWithData(c, status, code, msg, data)
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
