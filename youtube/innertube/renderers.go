package innertube

import "encoding/json"

// object is a decoded JSON object whose members are decoded on demand.
// ytInitialData and browse responses change shape often; reading each field
// on its own keeps one odd member from dropping its neighbours.
type object map[string]json.RawMessage

// decodeObject returns nil when raw is not a JSON object.
func decodeObject(raw json.RawMessage) object {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// lookup follows path through nested objects (string steps) and arrays
// (int steps). It returns nil as soon as a step is missing or has the
// wrong type.
func (o object) lookup(path ...any) json.RawMessage {
	if o == nil || len(path) == 0 {
		return nil
	}
	first, ok := path[0].(string)
	if !ok {
		return nil
	}
	raw := o[first]
	for _, step := range path[1:] {
		if raw == nil {
			return nil
		}
		switch k := step.(type) {
		case string:
			raw = decodeObject(raw)[k]
		case int:
			var arr []json.RawMessage
			if json.Unmarshal(raw, &arr) != nil || k < 0 || k >= len(arr) {
				return nil
			}
			raw = arr[k]
		default:
			return nil
		}
	}
	return raw
}

// list returns the array at path, or ok=false.
func (o object) list(path ...any) (items []json.RawMessage, ok bool) {
	raw := o.lookup(path...)
	if raw == nil {
		return nil, false
	}
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

// str returns the string at path, or "".
func (o object) str(path ...any) string {
	var s string
	if raw := o.lookup(path...); raw != nil {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// text reads a YouTube text field: a plain string, the first of its runs,
// or its simpleText.
func (o object) text(path ...any) string {
	raw := o.lookup(path...)
	if raw == nil {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	t := decodeObject(raw)
	if run := t.str("runs", 0, "text"); run != "" {
		return run
	}
	return t.str("simpleText")
}

// videoList walks tabs[0]…playlistVideoListRenderer.contents. ok is false
// when any step of the path is missing.
func videoList(data object) ([]json.RawMessage, bool) {
	return data.list("contents", "twoColumnBrowseResultsRenderer", "tabs", 0,
		"tabRenderer", "content", "sectionListRenderer", "contents", 0,
		"itemSectionRenderer", "contents", 0,
		"playlistVideoListRenderer", "contents")
}

// continuationList gathers the items of every append or reload action.
func continuationList(data object) []json.RawMessage {
	actions, _ := data.list("onResponseReceivedActions")
	var items []json.RawMessage
	for _, raw := range actions {
		action := decodeObject(raw)
		if got, ok := action.list("appendContinuationItemsAction", "continuationItems"); ok {
			items = append(items, got...)
			continue
		}
		if got, ok := action.list("reloadContinuationItemsCommand", "continuationItems"); ok {
			items = append(items, got...)
		}
	}
	return items
}

// itemKind tags what a playlist list entry holds.
type itemKind int

const (
	itemOther itemKind = iota
	itemVideo
	itemContinuation
)

// listItem is one entry of a playlist video list. body is the renderer
// object named by kind.
type listItem struct {
	kind itemKind
	body object
}

// decodeItem classifies one raw entry by which renderer key it carries.
// A renderer that is not an object makes the entry unknown.
func decodeItem(raw json.RawMessage) listItem {
	entry := decodeObject(raw)
	if v, ok := entry["playlistVideoRenderer"]; ok {
		if body := decodeObject(v); body != nil {
			return listItem{kind: itemVideo, body: body}
		}
		return listItem{}
	}
	if c, ok := entry["continuationItemRenderer"]; ok {
		if body := decodeObject(c); body != nil {
			return listItem{kind: itemContinuation, body: body}
		}
	}
	return listItem{}
}

// playlistVideo is the part of a playlistVideoRenderer the crawler keeps.
type playlistVideo struct {
	VideoID      string
	Title        string
	LengthText   string
	ThumbnailURL string
	Playable     bool
}

// video reads a playlistVideoRenderer field by field. Fields that are
// absent or oddly typed keep their zero value, except Playable which
// defaults to true and LengthText which defaults to "0:00".
func (it listItem) video() playlistVideo {
	v := playlistVideo{
		VideoID:  it.body.str("videoId"),
		Title:    it.body.text("title"),
		Playable: true,
	}

	// lengthText is absent for live streams and some premieres.
	v.LengthText = it.body.text("lengthText")
	if v.LengthText == "" {
		v.LengthText = it.body.str("lengthText", "accessibility", "accessibilityData", "label")
	}
	if v.LengthText == "" {
		v.LengthText = "0:00"
	}

	// YouTube lists thumbnails smallest first.
	if thumbs, ok := it.body.list("thumbnail", "thumbnails"); ok && len(thumbs) > 0 {
		v.ThumbnailURL = decodeObject(thumbs[len(thumbs)-1]).str("url")
	}

	// isPlayable is false for private and deleted videos.
	if raw := it.body.lookup("isPlayable"); raw != nil {
		var playable *bool
		if json.Unmarshal(raw, &playable) == nil && playable != nil {
			v.Playable = *playable
		}
	}
	return v
}

func (it listItem) token() string {
	return it.body.str("continuationEndpoint", "continuationCommand", "token")
}
