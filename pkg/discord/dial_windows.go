//go:build windows

package discord

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

// Endpoints returns the named pipes tried by DefaultDialer, in order.
func Endpoints() []string {
	paths := make([]string, 0, maxEndpoints)
	for i := 0; i < maxEndpoints; i++ {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

// DefaultDialer connects to the first reachable IPC pipe.
func DefaultDialer(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for _, path := range Endpoints() {
		conn, err := winio.DialPipeContext(ctx, path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, apperrors.Wrapf(lastErr, "no presence IPC endpoint reachable")
	}
	return nil, apperrors.NotFoundf("presence IPC pipe")
}
