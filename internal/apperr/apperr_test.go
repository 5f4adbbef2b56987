package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no"), http.StatusUnauthorized},
		{"forbidden", Forbidden("no"), http.StatusForbidden},
		{"not_found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("state"), http.StatusConflict},
		{"upstream", E(KindUpstream, "lambda"), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", Forbidden("verified")), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "field not found", PublicMessage(NotFound("field not found")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(KindUpstream, "inference failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "inference failed: timeout", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestDetailsOf(t *testing.T) {
	err := Validation("land utilization exceeded").WithDetails(map[string]float64{"shortfall": 2})
	assert.Equal(t, map[string]float64{"shortfall": 2}, DetailsOf(fmt.Errorf("ctx: %w", err)))
	assert.Nil(t, DetailsOf(errors.New("x")))
}
