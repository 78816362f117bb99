package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnavailable", ErrUnavailable, "service unavailable"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, Log(logger, nil, "nothing"))
		assert.Empty(t, buf.String())
	})

	t.Run("logs and returns the same error", func(t *testing.T) {
		err := errors.New("login refused")
		result := Log(logger, err, "presence login failed", "client_id", "123")
		assert.Same(t, err, result)
		assert.Contains(t, buf.String(), "presence login failed")
		assert.Contains(t, buf.String(), "client_id=123")
		assert.Contains(t, buf.String(), "login refused")
		assert.NotContains(t, buf.String(), "kind=")
	})

	t.Run("adds the kind of classified errors", func(t *testing.T) {
		buf.Reset()
		_ = Log(logger, NotFoundf("presence config %s", "a.json"), "presence disabled")
		assert.Contains(t, buf.String(), "kind=not_found")
	})
}

func TestWrapf(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "context %s", "value"))

	original := errors.New("original error")
	wrapped := Wrapf(original, "reading %s", "title")
	require.Error(t, wrapped)
	assert.Equal(t, "reading title: original error", wrapped.Error())
	assert.ErrorIs(t, wrapped, original)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), ""},
		{NotFoundf("socket"), "not_found"},
		{InvalidInputf("label"), "invalid_input"},
		{Wrapf(Unavailablef("endpoint %d", 0), "login"), "unavailable"},
		{fmt.Errorf("outer: %w", Internalf("frame")), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		base  error
	}{
		{"not found", NotFoundf("element %q", "span"), IsNotFound, ErrNotFound},
		{"invalid input", InvalidInputf("label %q", "x:y"), IsInvalidInput, ErrInvalidInput},
		{"unavailable", Unavailablef("endpoint %d", 0), IsUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("outer: %w", tt.err)))
			assert.ErrorIs(t, tt.err, tt.base)
		})
	}

	assert.ErrorIs(t, Internalf("decode %s", "frame"), ErrInternal)
	assert.False(t, IsNotFound(errors.New("other")))
	assert.False(t, IsUnavailable(nil))
}
