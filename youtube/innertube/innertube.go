// Package innertube crawls public YouTube playlists through the playlist
// web page and the internal Innertube browse endpoint that serves its
// continuation pages.
package innertube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	ythttp "ytplan/http"
)

const (
	// DefaultBaseURL is the origin of both the playlist page and the browse endpoint.
	DefaultBaseURL = "https://www.youtube.com"

	browsePath = "/youtubei/v1/browse"

	clientName    = "WEB"
	clientVersion = "2.20231219.04.00"
	// clientNameHeader is the numeric form of clientName.
	clientNameHeader = "1"

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// Client issues the two Innertube requests a crawl needs. It holds no
// per-crawl state and is safe for concurrent use.
type Client struct {
	httpClient *ythttp.Client
	baseURL    string
	userAgent  string
}

// ClientOption configures the Innertube client.
type ClientOption func(*Client)

// WithBaseURL points the client at another origin, such as a test server.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent overrides the browser user agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Innertube client. A nil httpClient gets a client
// bound to a fresh cookie session.
func NewClient(httpClient *ythttp.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = newSessionClient()
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		userAgent:  ythttp.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newSessionClient() *ythttp.Client {
	sm, err := ythttp.NewSessionManager(ythttp.DefaultSessionConfig())
	if err != nil {
		return ythttp.New(nil)
	}
	return sm.Client(nil)
}

// PlaylistURL returns the playlist page URL for playlistID on the client's origin.
func (c *Client) PlaylistURL(playlistID string) string {
	return c.baseURL + "/playlist?list=" + url.QueryEscape(playlistID)
}

// FetchPlaylistPage downloads the playlist HTML page.
func (c *Client) FetchPlaylistPage(ctx context.Context, playlistID string) ([]byte, error) {
	headers := map[string]string{
		"User-Agent":      c.userAgent,
		"Accept-Language": "en-US,en;q=0.9",
		"Accept":          acceptHTML,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}

	resp, err := c.httpClient.Get(ctx, c.PlaylistURL(playlistID), headers)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist page: %w", err)
	}
	return resp.Body, nil
}

// BrowseRequest is the body of a browse continuation request. Field order
// is the wire order.
type BrowseRequest struct {
	Context      RequestContext `json:"context"`
	Continuation string         `json:"continuation"`
}

// RequestContext identifies the calling client.
type RequestContext struct {
	Client ClientInfo `json:"client"`
}

// ClientInfo mirrors the web player's client block. VisitorData is sent
// even when empty, like the web player does.
type ClientInfo struct {
	HL            string `json:"hl"`
	GL            string `json:"gl"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData"`
}

// NewBrowseRequest builds the continuation request for token.
func NewBrowseRequest(token, visitorData string) BrowseRequest {
	return BrowseRequest{
		Context: RequestContext{
			Client: ClientInfo{
				HL:            "en",
				GL:            "US",
				ClientName:    clientName,
				ClientVersion: clientVersion,
				VisitorData:   visitorData,
			},
		},
		Continuation: token,
	}
}

// Browse posts a continuation token and returns the raw JSON response.
func (c *Client) Browse(ctx context.Context, apiKey, visitorData, token, playlistID string) ([]byte, error) {
	body, err := json.Marshal(NewBrowseRequest(token, visitorData))
	if err != nil {
		return nil, fmt.Errorf("marshal browse request: %w", err)
	}

	endpoint := c.baseURL + browsePath + "?key=" + url.QueryEscape(apiKey) + "&prettyPrint=false"
	headers := map[string]string{
		"Content-Type":             "application/json",
		"User-Agent":               c.userAgent,
		"X-Youtube-Client-Name":    clientNameHeader,
		"X-Youtube-Client-Version": clientVersion,
		"Origin":                   DefaultBaseURL,
		"Referer":                  DefaultBaseURL + "/playlist?list=" + url.QueryEscape(playlistID),
		"Cache-Control":            "no-cache",
		"Pragma":                   "no-cache",
	}

	resp, err := c.httpClient.Post(ctx, endpoint, body, headers)
	if err != nil {
		return nil, fmt.Errorf("browse request: %w", err)
	}
	return resp.Body, nil
}
