package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"attachr/internal/domain"
	"attachr/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	backendErr := &domain.BackendError{Backend: "s3", Op: "put", Key: "a.png", StatusCode: 403}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unknown version", fmt.Errorf("%w: huge", domain.ErrUnknownVersion), http.StatusBadRequest, "UNKNOWN_VERSION"},
		{"empty source", domain.ErrEmptySource, http.StatusBadRequest, "MISSING_FILENAME"},
		{"expired", domain.ErrSignatureExpired, http.StatusForbidden, "SIGNATURE_EXPIRED"},
		{"bad signature", domain.ErrInvalidSignature, http.StatusForbidden, "INVALID_SIGNATURE"},
		{"store failed only", domain.ErrStoreFailed, http.StatusInternalServerError, "STORE_FAILED"},
		{
			"store failed with backend cause",
			fmt.Errorf("%w: %w", domain.ErrStoreFailed, errors.Join(fmt.Errorf("version thumb: %w", backendErr))),
			http.StatusBadGateway, "STORAGE_ERROR",
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
