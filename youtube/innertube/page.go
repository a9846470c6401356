package innertube

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ytplan/youtube"
)

var (
	initialDataRegex = regexp.MustCompile(`(?s)(?:var ytInitialData|window\["ytInitialData"\])\s*=\s*(\{.+?\});\s*</script>`)
	apiKeyRegex      = regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([^"]+)"`)
	visitorDataRegex = regexp.MustCompile(`"visitorData"\s*:\s*"([^"]+)"`)
)

// ErrMalformedContinuation is returned by ParseContinuation for bodies that
// are not JSON.
var ErrMalformedContinuation = errors.New("innertube: malformed continuation response")

// Page is what one playlist page or continuation response contributes.
// Video positions are left at 0; the crawler numbers them.
type Page struct {
	Videos            []youtube.VideoRecord
	ContinuationToken string
	// Title, APIKey and VisitorData are only set by ParsePage.
	Title       string
	APIKey      string
	VisitorData string
	// HasVideoList is false when the page carries no video list at all.
	HasVideoList bool
	// RawItems counts every entry of the list, whatever its renderer.
	RawItems int
	// VideoEntries counts video renderers, playable or not.
	VideoEntries int
	// Skipped counts video renderers that were dropped as unplayable or ID-less.
	Skipped int
}

// ParsePage extracts the playlist state embedded in the playlist HTML page.
// It fails with youtube.ErrInitialDataNotFound when no initial data can be
// located or decoded. A page whose data lacks the video list is not an
// error; HasVideoList reports it.
func ParsePage(body []byte) (*Page, error) {
	m := initialDataRegex.FindSubmatch(body)
	if m == nil {
		return nil, youtube.ErrInitialDataNotFound
	}

	var data object
	if err := json.Unmarshal(m[1], &data); err != nil {
		return nil, fmt.Errorf("%w: %v", youtube.ErrInitialDataNotFound, err)
	}

	page := &Page{Title: playlistTitle(data)}
	if km := apiKeyRegex.FindSubmatch(body); km != nil {
		page.APIKey = string(km[1])
	}
	if vm := visitorDataRegex.FindSubmatch(body); vm != nil {
		page.VisitorData = string(vm[1])
	}

	items, ok := videoList(data)
	if !ok {
		return page, nil
	}
	page.HasVideoList = true
	page.walk(items)
	return page, nil
}

// ParseContinuation extracts the items of a browse continuation response.
// Items of every append or reload action are read in order.
func ParseContinuation(body []byte) (*Page, error) {
	var data object
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContinuation, err)
	}

	items := continuationList(data)
	page := &Page{HasVideoList: len(items) > 0}
	page.walk(items)
	return page, nil
}

// playlistTitle tries the metadata title, then the header title. A source
// that is missing or oddly typed is skipped.
func playlistTitle(data object) string {
	if t := strings.TrimSpace(data.text("metadata", "playlistMetadataRenderer", "title")); t != "" {
		return t
	}
	if t := strings.TrimSpace(data.text("header", "playlistHeaderRenderer", "title")); t != "" {
		return t
	}
	return youtube.UntitledPlaylist
}

// walk classifies every raw entry. The last continuation entry wins.
func (p *Page) walk(items []json.RawMessage) {
	p.RawItems = len(items)
	for _, raw := range items {
		it := decodeItem(raw)
		switch it.kind {
		case itemVideo:
			p.VideoEntries++
			v := it.video()
			if !v.Playable || v.VideoID == "" {
				p.Skipped++
				continue
			}
			p.Videos = append(p.Videos, toRecord(v))
		case itemContinuation:
			p.ContinuationToken = it.token()
		}
	}
}

func toRecord(v playlistVideo) youtube.VideoRecord {
	title := strings.TrimSpace(v.Title)
	if title == "" {
		title = youtube.UntitledVideo
	}
	return youtube.VideoRecord{
		VideoID:         v.VideoID,
		Title:           title,
		DurationSeconds: youtube.ParseDuration(v.LengthText),
		ThumbnailURL:    youtube.ThumbnailURL(v.VideoID, v.ThumbnailURL),
	}
}
