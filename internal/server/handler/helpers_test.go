package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonstake/pollhouse/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrInvalidState, http.StatusConflict},
		{domain.ErrExpired, http.StatusGone},
		{domain.ErrLockHeld, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		// wrapped sentinels still map
		{fmt.Errorf("poll has expired: %w", domain.ErrExpired), http.StatusGone},
		{fmt.Errorf("service: %w", fmt.Errorf("user x: %w", domain.ErrNotFound)), http.StatusNotFound},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), "error %v", tt.err)
	}
}
