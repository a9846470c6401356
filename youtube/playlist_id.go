package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// playlistIDRegex matches playlist IDs such as PL…, UU…, OLAK5uy_… and RD….
var playlistIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,64}$`)

// ResolvePlaylistID extracts a playlist ID from a bare ID or from any URL
// carrying a list parameter (playlist, watch or music URLs).
func ResolvePlaylistID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidPlaylistID)
	}

	if playlistIDRegex.MatchString(input) {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlaylistID, input)
	}

	id := u.Query().Get("list")
	if !playlistIDRegex.MatchString(id) {
		return "", fmt.Errorf("%w: no list parameter in %q", ErrInvalidPlaylistID, input)
	}
	return id, nil
}

// PlaylistURL returns the public playlist page URL for id.
func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + url.QueryEscape(id)
}
