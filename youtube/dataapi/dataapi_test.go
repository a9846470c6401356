package dataapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ytplan/internal/retry"
	"ytplan/youtube"
)

type fakeAPI struct {
	playlists string
	pages     map[string]string // pageToken -> response
	failPage  string
	videos    string
	videoIDs  []string
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key not sent: %s", r.URL.RawQuery)
		}
		io.WriteString(w, f.playlists)
	})
	mux.HandleFunc("/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("pageToken")
		if tok != "" && tok == f.failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("maxResults") != "50" {
			t.Errorf("maxResults = %q", r.URL.Query().Get("maxResults"))
		}
		io.WriteString(w, f.pages[tok])
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		f.videoIDs = append(f.videoIDs, r.URL.Query()["id"]...)
		io.WriteString(w, f.videos)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCrawler(t *testing.T, srv *httptest.Server) *Crawler {
	t.Helper()
	c, err := New(context.Background(), "test-key",
		WithClientOptions(option.WithEndpoint(srv.URL+"/")),
		WithRetryConfig(retry.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

const (
	firstPage = `{"nextPageToken":"p2","items":[
		{"snippet":{"title":"Intro","thumbnails":{"default":{"url":"https://i.ytimg.com/vi/a/default.jpg"},"high":{"url":"https://i.ytimg.com/vi/a/hqdefault.jpg"}}},"contentDetails":{"videoId":"a"}},
		{"snippet":{"title":"Private video"},"contentDetails":{"videoId":"p"}}
	]}`
	secondPage = `{"items":[
		{"snippet":{"title":"Next","resourceId":{"videoId":"b"}},"contentDetails":{}}
	]}`
	durations = `{"items":[
		{"id":"a","contentDetails":{"duration":"PT2M5S"}},
		{"id":"b","contentDetails":{"duration":"PT1H"}}
	]}`
)

func TestCrawl(t *testing.T) {
	f := &fakeAPI{
		playlists: `{"items":[{"snippet":{"title":"Data API course"}}]}`,
		pages:     map[string]string{"": firstPage, "p2": secondPage},
		videos:    durations,
	}
	snap, err := newTestCrawler(t, f.server(t)).Crawl(context.Background(), "PLdata")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if snap.Title != "Data API course" {
		t.Errorf("Title = %q", snap.Title)
	}
	want := []youtube.VideoRecord{
		{VideoID: "a", Title: "Intro", DurationSeconds: 125, ThumbnailURL: "https://i.ytimg.com/vi/a/hqdefault.jpg", Position: 1},
		{VideoID: "b", Title: "Next", DurationSeconds: 3600, ThumbnailURL: "https://i.ytimg.com/vi/b/mqdefault.jpg", Position: 2},
	}
	if len(snap.Videos) != len(want) {
		t.Fatalf("got %d videos, want %d", len(snap.Videos), len(want))
	}
	for i := range want {
		if snap.Videos[i] != want[i] {
			t.Errorf("video %d = %+v, want %+v", i, snap.Videos[i], want[i])
		}
	}
	if snap.TotalDurationSeconds != 3725 {
		t.Errorf("TotalDurationSeconds = %d", snap.TotalDurationSeconds)
	}
	if got := strings.Join(f.videoIDs, ","); got != "a,b" {
		t.Errorf("videos.list ids = %q, want a,b", got)
	}
}

func TestCrawlPlaylistNotFound(t *testing.T) {
	f := &fakeAPI{playlists: `{"items":[]}`}
	_, err := newTestCrawler(t, f.server(t)).Crawl(context.Background(), "PLmissing")

	var crawlErr *youtube.CrawlError
	if !errors.As(err, &crawlErr) {
		t.Fatalf("expected *youtube.CrawlError, got %T: %v", err, err)
	}
	if !errors.Is(err, youtube.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound in chain, got %v", err)
	}
}

func TestCrawlLaterPageFailureKeepsPartial(t *testing.T) {
	f := &fakeAPI{
		playlists: `{"items":[{"snippet":{"title":"T"}}]}`,
		pages:     map[string]string{"": firstPage},
		failPage:  "p2",
		videos:    durations,
	}
	snap, err := newTestCrawler(t, f.server(t)).Crawl(context.Background(), "PLpartial")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Videos) != 1 || snap.Videos[0].VideoID != "a" {
		t.Errorf("Videos = %+v", snap.Videos)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), ""); !errors.Is(err, youtube.ErrAPIKeyRequired) {
		t.Errorf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestAPIErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &googleapi.Error{Code: 503}, true},
		{"too many requests", &googleapi.Error{Code: 429}, true},
		{"quota exceeded", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, false},
		{"rate limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, true},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"permanent", retry.Permanent(youtube.ErrPlaylistNotFound), false},
		{"network", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorClassifier(tt.err); got != tt.want {
				t.Errorf("apiErrorClassifier() = %v, want %v", got, tt.want)
			}
		})
	}
}
