// Package errors classifies the failures the app reports. Every constructor
// wraps one of the sentinels below, so callers branch on the class with
// errors.Is or the Is helpers, and log records carry it as a "kind" attribute.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNotFound marks an absent value: a config file, a page element or an IPC endpoint.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks input rejected before any work was done.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable marks a presence client or page that did not answer.
	ErrUnavailable = errors.New("service unavailable")
	// ErrInternal marks a broken invariant or an undecodable frame.
	ErrInternal = errors.New("internal error")
)

var kinds = []struct {
	sentinel error
	name     string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidInput, "invalid_input"},
	{ErrUnavailable, "unavailable"},
	{ErrInternal, "internal"},
}

// Kind names the class of err, or returns "" for nil and unclassified errors.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.name
		}
	}
	return ""
}

// Log records err at error level with its kind and returns it unchanged.
// A nil err is neither logged nor wrapped.
func Log(logger *slog.Logger, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err}
	if kind := Kind(err); kind != "" {
		attrs = append(attrs, "kind", kind)
	}
	logger.Error(msg, append(attrs, args...)...)
	return err
}

// Wrapf prefixes err with a formatted message, keeping it matchable.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return classify(err, format, args)
}

func classify(base error, format string, args []any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), base)
}

func NotFoundf(format string, args ...any) error { return classify(ErrNotFound, format, args) }

func InvalidInputf(format string, args ...any) error { return classify(ErrInvalidInput, format, args) }

func Unavailablef(format string, args ...any) error { return classify(ErrUnavailable, format, args) }

func Internalf(format string, args ...any) error { return classify(ErrInternal, format, args) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
