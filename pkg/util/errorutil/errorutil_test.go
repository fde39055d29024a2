package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "domain error passes through", err: NewForbidden("nope"), wantCode: CodeForbidden, wantStatus: http.StatusForbidden},
		{name: "wrapped domain error", err: fmt.Errorf("ctx: %w", NewNotFound("ticket", nil)), wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "no rows", err: fmt.Errorf("get: %w", pgx.ErrNoRows), wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "cancelled", err: context.Canceled, wantCode: CodeRequestCancelled, wantStatus: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), wantCode: CodeInternal, wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.wantCode, got.Code)
			assert.Equal(t, tc.wantStatus, got.HTTPStatus)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := ToDomainError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorContains(t, got, "connection refused")
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
}

func TestIllegalTransitionKeepsCause(t *testing.T) {
	cause := errors.New("ticket is locked")
	err := NewIllegalTransition(cause, nil)
	assert.True(t, IsCode(err, CodeIllegalTransition))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadRequest, ToDomainError(err).HTTPStatus)
}
