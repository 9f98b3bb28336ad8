package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationJoinsAllViolations(t *testing.T) {
	err := Validation([]string{"first problem", "second problem"})
	require.Equal(t, "first problem, second problem", err.Error())
	require.True(t, IsCode(err, CodeValidation))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("bad")))
	require.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(Validation([]string{"x"})))
	require.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	require.Equal(t, http.StatusConflict, HTTPStatus(Conflict("dup")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal(errors.New("boom"))))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
