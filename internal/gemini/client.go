// Package gemini is a thin client for the Gemini generateContent endpoint,
// specialised for structured book recommendations.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"libflow/internal/status"
	"libflow/models"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	systemInstruction = "You are a knowledgeable and empathetic librarian. Your goal is to find the perfect book match."

	// maxErrorBody caps how much of a failed response is kept for the error message.
	maxErrorBody = 2 << 10
)

type ClientConfig struct {
	BaseURL string        `json:"baseUrl" mapstructure:"base_url"`
	APIKey  string        `json:"apiKey" mapstructure:"api_key"`
	Model   string        `json:"model" mapstructure:"model"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	// baseURL is the API root, without a trailing slash.
	baseURL string

	// apiKey is sent as x-goog-api-key.
	apiKey string

	// model is the model id, e.g. gemini-2.5-flash.
	model string

	// hc is the http client.
	hc *http.Client
}

// NewClient creates a client. Empty fields take package defaults; a missing
// API key is only reported when a request is made.
func NewClient(c ClientConfig) *Client {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  c.APIKey,
		model:   model,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Model returns the model the client talks to.
func (c *Client) Model() string {
	return c.model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// bookListSchema mirrors models.Book; every field is required.
var bookListSchema = &schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"title":       {Type: "STRING", Description: "Title of the book"},
			"author":      {Type: "STRING", Description: "Author of the book"},
			"genre":       {Type: "STRING", Description: "Genre of the book"},
			"description": {Type: "STRING", Description: "Short summary of the book (approx 30 words)"},
			"reason":      {Type: "STRING", Description: "Why this book fits the user's specific request"},
		},
		Required: []string{"title", "author", "genre", "description", "reason"},
	},
}

// BuildPrompt renders the user prompt for prefs.
func BuildPrompt(prefs models.Preferences) string {
	var b strings.Builder
	b.WriteString("Recommend 5 books for a user with the following preferences:\n")
	fmt.Fprintf(&b, "- Favorite Genres/Topics: %s\n", prefs.FavoriteGenres)
	fmt.Fprintf(&b, "- Last Book Read: %s\n", prefs.LastRead)
	fmt.Fprintf(&b, "- Current Mood/Goal: %s\n", prefs.Mood)
	b.WriteString("\nProvide diverse options. Ensure the \"reason\" field directly addresses the user's inputs.")
	return b.String()
}

// Recommend asks the model for books matching prefs. An empty model reply
// yields no books and no error.
func (c *Client) Recommend(ctx context.Context, prefs models.Preferences) ([]models.Book, error) {
	if c.apiKey == "" {
		return nil, status.ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: BuildPrompt(prefs)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   bookListSchema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: http.Do: %v", status.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var reply generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: gemini: decode reply: %v", status.ErrMalformedResponse, err)
	}
	if reply.PromptFeedback != nil && reply.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: gemini: prompt blocked: %s", status.ErrUpstream, reply.PromptFeedback.BlockReason)
	}

	text := reply.text()
	if strings.TrimSpace(text) == "" {
		return []models.Book{}, nil
	}

	var books []models.Book
	if err := json.Unmarshal([]byte(text), &books); err != nil {
		return nil, fmt.Errorf("%w: gemini: decode books: %v", status.ErrMalformedResponse, err)
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

// text joins the parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e apiError
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("%w: gemini: status %d %s: %s", status.ErrUpstream, resp.StatusCode, e.Error.Status, e.Error.Message)
	}
	return fmt.Errorf("%w: gemini: status %d", status.ErrUpstream, resp.StatusCode)
}
