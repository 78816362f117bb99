package presence

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soniditos/soniditos-desktop/internal/config"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
	"github.com/soniditos/soniditos-desktop/pkg/discord"
)

// DiscoveringLabel stands in for the elapsed time while the label is missing
const DiscoveringLabel = "Discovering…"

// Snapshot is the playback state read from the page in one update attempt.
// Empty fields were absent in the page.
type Snapshot struct {
	Title    string
	Artist   string
	Album    string
	Artwork  string
	MediaID  string
	Elapsed  string // raw label text, or DiscoveringLabel
	Resolved bool   // Elapsed came from the page
}

// Settings are the tunables applied when building an activity
type Settings struct {
	Button1        string
	TrackURL       string
	AbsentText     string // stands in for absent title, artist and media id
	ActivityType   int
	MissingElapsed string
}

// DetailsLine formats "<artist> - <title>"
func DetailsLine(artist, title string) string {
	return artist + " - " + title
}

// ParseElapsed converts "m:ss" (or "h:mm:ss") to a duration.
func ParseElapsed(label string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, apperrors.InvalidInputf("elapsed label %q is not m:ss", label)
	}

	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || n < 0 {
			return 0, apperrors.InvalidInputf("elapsed label %q is not m:ss", label)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// encodeComponent percent-encodes a path component the way browsers'
// encodeURIComponent does for spaces.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// TrackURL builds the button link for a media id and artist
func TrackURL(base, mediaID, artist string) string {
	return strings.TrimSuffix(base, "/") + "/" + encodeComponent(mediaID) + "/" + encodeComponent(artist)
}

// StartTimestamp derives the activity start in unix milliseconds. It returns
// nil when no start should be shown.
func StartTimestamp(s Snapshot, now time.Time, policy string) (*int64, error) {
	if !s.Resolved {
		if policy == config.MissingElapsedZero {
			ms := now.UnixMilli()
			return &ms, nil
		}
		return nil, nil
	}

	elapsed, err := ParseElapsed(s.Elapsed)
	if err != nil {
		return nil, err
	}
	ms := now.Add(-elapsed).UnixMilli()
	return &ms, nil
}

// BuildActivity turns a snapshot into SET_ACTIVITY arguments.
func BuildActivity(s Snapshot, set Settings, now time.Time, pid int) (discord.SetActivityArgs, error) {
	start, err := StartTimestamp(s, now, set.MissingElapsed)
	if err != nil {
		return discord.SetActivityArgs{}, err
	}

	return discord.SetActivityArgs{
		PID: pid,
		Activity: &discord.Activity{
			Details:    DetailsLine(or(s.Artist, set.AbsentText), or(s.Title, set.AbsentText)),
			Timestamps: discord.Timestamps{Start: start},
			Assets: discord.Assets{
				LargeImage: optional(s.Artwork),
				LargeText:  optional(s.Album),
			},
			Buttons: []discord.Button{{
				Label: set.Button1,
				URL:   TrackURL(set.TrackURL, or(s.MediaID, set.AbsentText), or(s.Artist, set.AbsentText)),
			}},
			Type: set.ActivityType,
		},
	}, nil
}

func or(s, absent string) string {
	if s == "" {
		return absent
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
