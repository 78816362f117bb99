package discord

import (
	"encoding/json"
	"fmt"
)

// State is the connection state of a presence session.
type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Activity is the presence shown on the user's profile.
type Activity struct {
	Details    string     `json:"details"`
	Timestamps Timestamps `json:"timestamps"`
	Assets     Assets     `json:"assets"`
	Buttons    []Button   `json:"buttons"`
	Type       int        `json:"type"`
}

// Timestamps holds the activity start in unix milliseconds; nil is sent as null.
type Timestamps struct {
	Start *int64 `json:"start"`
}

// Assets holds the large image URL and its hover text; nil is sent as null.
type Assets struct {
	LargeImage *string `json:"large_image"`
	LargeText  *string `json:"large_text"`
}

// Button is a clickable link under the activity.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SetActivityArgs is the argument object of SET_ACTIVITY.
type SetActivityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity"`
}

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Data  json.RawMessage `json:"data"`
	Nonce string          `json:"nonce"`
}

// Error is an ERROR event or a close frame from the presence service.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("presence error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("presence error %d", e.Code)
}
