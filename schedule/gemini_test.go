package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geminiServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultGeminiModel+":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.URL.Path, "/v1beta/") {
			t.Errorf("unexpected api version in %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "gemini-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func testRequest() Request {
	return Request{
		TotalVideos:  2,
		VideosPerDay: 1,
		DaysNeeded:   2,
		StartDate:    Midnight(monday),
		Manifest: []ManifestEntry{
			{Position: 1, Title: "Intro", DurationSeconds: 60},
			{Position: 2, Title: "Deep dive", DurationSeconds: 900},
		},
	}
}

func TestGeminiGenerateSchedule(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, body map[string]any) {
		cfg, _ := body["generationConfig"].(map[string]any)
		if cfg["responseMimeType"] != "application/json" {
			t.Errorf("generationConfig = %v", cfg)
		}
		if _, ok := cfg["responseSchema"]; !ok {
			t.Error("response schema not sent")
		}
		contents, _ := json.Marshal(body["contents"])
		if !strings.Contains(string(contents), `2: \"Deep dive\" (900s)`) {
			t.Errorf("manifest missing from prompt: %s", contents)
		}
		io.WriteString(w, candidate(`{"schedule":[{"date":"2024-03-04","videoIndices":[1],"motivationalMessage":"Go"},{"date":"2024-03-05","videoIndices":[2],"motivationalMessage":"On"}],"tips":["Rest"]}`))
	})

	g, err := NewGeminiGenerator(context.Background(), "gemini-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := g.GenerateSchedule(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(resp.Schedule) != 2 || resp.Schedule[1].VideoIndices[0] != 2 || resp.Tips[0] != "Rest" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGeminiSkipsThoughtParts(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, _ map[string]any) {
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[`+
			`{"text":"planning the week","thought":true},`+
			`{"text":"{\"schedule\":[{\"date\":\"2024-03-04\",\"videoIndices\":[1,2],\"motivationalMessage\":\"Go\"}],\"tips\":[]}"}`+
			`]}}]}`)
	})
	g, err := NewGeminiGenerator(context.Background(), "gemini-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := g.GenerateSchedule(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if len(resp.Schedule) != 1 || len(resp.Schedule[0].VideoIndices) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGeminiServerError(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"code":500,"message":"backend down","status":"INTERNAL"}}`)
	})
	g, err := NewGeminiGenerator(context.Background(), "gemini-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	s := NewSynthesizer(WithGenerator(g), WithClock(func() time.Time { return monday }))
	got := s.Synthesize(context.Background(), snapshot(3), Preferences{VideosPerDay: 1})
	if got.Source != SourceFallback || len(got.Days) != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestGeminiInvalidJSON(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, _ map[string]any) {
		io.WriteString(w, candidate("Sure! Here is your schedule."))
	})
	g, err := NewGeminiGenerator(context.Background(), "gemini-key", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.GenerateSchedule(context.Background(), testRequest())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected *ValidationError, got %v", err)
	}
}

func TestGeminiTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	srv := geminiServer(t, func(w http.ResponseWriter, _ map[string]any) {
		<-release
	})
	defer close(release)

	g, err := NewGeminiGenerator(context.Background(), "gemini-key",
		WithTimeout(50*time.Millisecond),
		WithHTTPClient(srv.Client()),
		WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	s := NewSynthesizer(WithGenerator(g), WithClock(func() time.Time { return monday }))
	got := s.Synthesize(context.Background(), snapshot(4), Preferences{VideosPerDay: 2})
	if got.Source != SourceFallback || len(got.Days) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestGeminiUnconfigured(t *testing.T) {
	g, err := NewGeminiGenerator(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if g.Configured() {
		t.Error("Configured() = true without a key")
	}
	if _, err := g.GenerateSchedule(context.Background(), testRequest()); !errors.Is(err, ErrGeneratorUnconfigured) {
		t.Errorf("expected ErrGeneratorUnconfigured, got %v", err)
	}
}

func TestPrompt(t *testing.T) {
	req := testRequest()
	target := monday.AddDate(0, 0, 6)
	req.TargetDate = &target

	p := Prompt(req)
	for _, want := range []string{
		"course with 2 videos",
		"Videos per day target: 1",
		"Total days needed: 2",
		"Target completion: 2024-03-10",
		`1: "Intro" (60s)`,
		"starting on 2024-03-04",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}
