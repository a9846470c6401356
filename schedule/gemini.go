package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the model used when none is configured.
	DefaultGeminiModel = "gemini-1.5-flash-latest"

	// DefaultGeminiTimeout bounds one generation call.
	DefaultGeminiTimeout = 30 * time.Second
)

// GeminiGenerator asks the Gemini API for a schedule in JSON mode.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*geminiSettings)

type geminiSettings struct {
	model      string
	timeout    time.Duration
	baseURL    string
	httpClient *http.Client
}

// WithModel selects the model, e.g. "gemini-1.5-pro".
func WithModel(model string) GeminiOption {
	return func(s *geminiSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(s *geminiSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBaseURL points the client at another Gemini API endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(s *geminiSettings) {
		s.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(s *geminiSettings) {
		s.httpClient = c
	}
}

// NewGeminiGenerator creates a generator. An empty apiKey is not an error:
// the generator is returned unconfigured and every call reports
// ErrGeneratorUnconfigured.
func NewGeminiGenerator(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiGenerator, error) {
	settings := geminiSettings{model: DefaultGeminiModel, timeout: DefaultGeminiTimeout}
	for _, opt := range opts {
		opt(&settings)
	}
	g := &GeminiGenerator{model: settings.model, timeout: settings.timeout}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: settings.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    settings.baseURL,
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Configured reports whether the generator has credentials.
func (g *GeminiGenerator) Configured() bool {
	return g != nil && g.client != nil
}

// GenerateSchedule implements Generator.
func (g *GeminiGenerator) GenerateSchedule(ctx context.Context, req Request) (*Response, error) {
	if !g.Configured() {
		return nil, ErrGeneratorUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(req)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := responseText(out)
	if text == "" {
		return nil, &ValidationError{Field: "candidates", Reason: "no text"}
	}
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}
	return &resp, nil
}

// responseText joins the text parts of the first candidate, skipping
// thought summaries.
func responseText(out *genai.GenerateContentResponse) string {
	if out == nil || len(out.Candidates) == 0 || out.Candidates[0] == nil || out.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"schedule": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":                {Type: genai.TypeString, Description: "YYYY-MM-DD"},
						"videoIndices":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeInteger}},
						"motivationalMessage": {Type: genai.TypeString},
					},
					Required:         []string{"date", "videoIndices", "motivationalMessage"},
					PropertyOrdering: []string{"date", "videoIndices", "motivationalMessage"},
				},
			},
			"tips": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required:         []string{"schedule", "tips"},
		PropertyOrdering: []string{"schedule", "tips"},
	}
}

// Prompt renders the instructions sent to a language model for req.
func Prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an optimized learning schedule for a course with %d videos.\n\n", req.TotalVideos)
	fmt.Fprintf(&b, "Videos per day target: %d\n", req.VideosPerDay)
	fmt.Fprintf(&b, "Total days needed: %d\n", req.DaysNeeded)
	if req.TargetDate != nil {
		fmt.Fprintf(&b, "Target completion: %s\n", req.TargetDate.Format(DateLayout))
	}
	b.WriteString("\nVideo details (position, title, duration in seconds):\n")
	for _, e := range req.Manifest {
		fmt.Fprintf(&b, "%d: %q (%ds)\n", e.Position, e.Title, e.DurationSeconds)
	}
	fmt.Fprintf(&b, "\nCreate a day-by-day schedule starting on %s. For each day, list the video positions to watch.\n", req.StartDate.Format(DateLayout))
	b.WriteString("Schedule every position exactly once and keep the course order.\n")
	b.WriteString("Try to balance daily workload by grouping shorter videos together.\n")
	b.WriteString("Include a short motivational message for each day.\n")
	b.WriteString("Also provide 3-5 learning tips specific to this type of content.\n")
	b.WriteString("Return dates in YYYY-MM-DD format.")
	return b.String()
}
