package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{AuthMissing("no token"), http.StatusUnauthorized},
		{AuthInvalid("bad token"), http.StatusUnauthorized},
		{PermissionDenied("nope"), http.StatusForbidden},
		{NotFound("salon").WithCode(CodeSalonNotFound), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{SlotTaken(), http.StatusConflict},
		{RateLimited(time.Second), http.StatusTooManyRequests},
		{SignatureInvalid("sign"), http.StatusBadRequest},
		{PaymentState("already completed"), http.StatusBadRequest},
		{Conflict("duplicate"), http.StatusConflict},
		{ProviderError("down", true), http.StatusBadGateway},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestKindAndCodeHelpers(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("create: %w", Internal("failed").Wrap(cause))

	assert.True(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(err, KindNotFound))
	assert.ErrorIs(t, err, cause)

	assert.True(t, HasCode(SlotTaken(), CodeSlotTaken))
	assert.False(t, HasCode(errors.New("x"), CodeSlotTaken))
}
