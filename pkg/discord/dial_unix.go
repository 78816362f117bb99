//go:build !windows

package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

// socketDirs lists the directories a desktop client may place its socket in
func socketDirs() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, "/tmp")

	// Sandboxed clients nest the socket below the runtime dir
	var nested []string
	for _, dir := range dirs {
		nested = append(nested, filepath.Join(dir, "app", "com.discordapp.Discord"), filepath.Join(dir, "snap.discord"))
	}
	return append(dirs, nested...)
}

// Endpoints returns the socket paths tried by DefaultDialer, in order.
func Endpoints() []string {
	var paths []string
	for _, dir := range socketDirs() {
		for i := 0; i < maxEndpoints; i++ {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return paths
}

// DefaultDialer connects to the first reachable IPC socket.
func DefaultDialer(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var lastErr error
	for _, path := range Endpoints() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, apperrors.Wrapf(lastErr, "no presence IPC endpoint reachable")
	}
	return nil, apperrors.NotFoundf("presence IPC socket")
}
