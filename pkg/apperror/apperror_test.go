package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("Tour not found"), http.StatusNotFound},
		{BadRequest("Unknown tariff group"), http.StatusBadRequest},
		{Forbidden("Tour not owned by driver"), http.StatusForbidden},
		{Unauthorized("Missing Authorization"), http.StatusUnauthorized},
		{Conflict("duplicate"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("create pickup: %w", NotFound("Client not found"))

	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindBadRequest))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "Client not found", appErr.Message)
}
