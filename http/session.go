package http

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// DefaultUserAgent is a desktop Chrome user agent. The playlist page only
// embeds its initial data for browsers it recognizes.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SessionManager keeps the cookies and default headers of one browsing
// session. The visitor cookies YouTube sets on the playlist page are sent
// back on the continuation requests that follow it.
type SessionManager struct {
	mu      sync.RWMutex
	jar     *sessionJar
	headers map[string]string
}

// SessionConfig configures session behavior.
type SessionConfig struct {
	// AcceptLanguage pins the page language so titles and labels are English.
	AcceptLanguage string
	// NoCache asks intermediaries for a fresh copy of every page.
	NoCache bool
	// HeadersToAdd are sent with every request of the session.
	HeadersToAdd map[string]string
}

// DefaultSessionConfig returns the headers a crawl session sends by default.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AcceptLanguage: "en-US,en;q=0.9",
		NoCache:        true,
		HeadersToAdd:   make(map[string]string),
	}
}

// NewSessionManager creates a session with an empty cookie jar.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	headers := make(map[string]string, len(cfg.HeadersToAdd)+3)
	if cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = cfg.AcceptLanguage
	}
	if cfg.NoCache {
		headers["Cache-Control"] = "no-cache"
		headers["Pragma"] = "no-cache"
	}
	for k, v := range cfg.HeadersToAdd {
		headers[k] = v
	}

	return &SessionManager{
		jar:     &sessionJar{inner: inner},
		headers: headers,
	}, nil
}

// Client returns an HTTP client bound to this session's cookies and headers.
func (sm *SessionManager) Client(cfg *Config) *Client {
	return newClient(cfg, sm)
}

// AddHeader adds a header to every subsequent request of the session.
func (sm *SessionManager) AddHeader(key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.headers[key] = value
}

// GetHeaders returns a copy of the session headers.
func (sm *SessionManager) GetHeaders() map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make(map[string]string, len(sm.headers))
	for k, v := range sm.headers {
		out[k] = v
	}
	return out
}

// Cookies returns the cookies the session would send to u.
func (sm *SessionManager) Cookies(u *url.URL) []*http.Cookie {
	return sm.jar.Cookies(u)
}

// ClearCookies drops every cookie of the session.
func (sm *SessionManager) ClearCookies() {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	sm.jar.reset(inner)
}

// sessionJar lets ClearCookies swap the jar under clients that already hold it.
type sessionJar struct {
	mu    sync.RWMutex
	inner http.CookieJar
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

func (j *sessionJar) reset(inner http.CookieJar) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner = inner
}
