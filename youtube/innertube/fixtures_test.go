package innertube

import (
	"encoding/json"
	"testing"
	"time"

	ythttp "ytplan/http"
	"ytplan/internal/retry"
)

const (
	testAPIKey      = "test-key"
	testVisitorData = "visitor123"
)

func videoItem(id, title, length string, playable bool) map[string]any {
	return map[string]any{
		"playlistVideoRenderer": map[string]any{
			"videoId": id,
			"title":   map[string]any{"runs": []any{map[string]any{"text": title}}},
			"lengthText": map[string]any{
				"simpleText": length,
			},
			"thumbnail": map[string]any{"thumbnails": []any{
				map[string]any{"url": "//i.ytimg.com/vi/" + id + "/default.jpg", "width": 120},
				map[string]any{"url": "//i.ytimg.com/vi/" + id + "/hqdefault.jpg", "width": 480},
			}},
			"isPlayable": playable,
		},
	}
}

func continuationItem(token string) map[string]any {
	return map[string]any{
		"continuationItemRenderer": map[string]any{
			"continuationEndpoint": map[string]any{
				"continuationCommand": map[string]any{"token": token},
			},
		},
	}
}

func initialDataJSON(t *testing.T, title string, items []any) string {
	t.Helper()
	data := map[string]any{
		"metadata": map[string]any{"playlistMetadataRenderer": map[string]any{"title": title}},
		"contents": map[string]any{
			"twoColumnBrowseResultsRenderer": map[string]any{"tabs": []any{
				map[string]any{"tabRenderer": map[string]any{"content": map[string]any{
					"sectionListRenderer": map[string]any{"contents": []any{
						map[string]any{"itemSectionRenderer": map[string]any{"contents": []any{
							map[string]any{"playlistVideoListRenderer": map[string]any{"contents": items}},
						}}},
					}},
				}}},
			}},
		},
	}
	b, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func playlistHTML(t *testing.T, title string, items []any) string {
	return `<!DOCTYPE html><html><head><script>ytcfg.set({"INNERTUBE_API_KEY":"` + testAPIKey +
		`","INNERTUBE_CONTEXT":{"client":{"visitorData":"` + testVisitorData + `"}}});</script></head><body>` +
		`<script nonce="x">var ytInitialData = ` + initialDataJSON(t, title, items) + `;</script></body></html>`
}

func continuationJSON(t *testing.T, items []any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"onResponseReceivedActions": []any{
			map[string]any{"appendContinuationItemsAction": map[string]any{"continuationItems": items}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// testHTTPClient talks to httptest servers without pacing and with fast retries.
func testHTTPClient() *ythttp.Client {
	cfg := ythttp.DefaultConfig()
	cfg.RateLimiter.CustomRates = map[string]float64{"127.0.0.1": 0}
	cfg.RateLimiter.EnableDynamicBackoff = false
	cfg.Retry = retry.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
	return ythttp.New(cfg)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
