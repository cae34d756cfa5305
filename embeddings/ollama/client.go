package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/viant/codevec/embeddings"
	"github.com/viant/codevec/schema"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	defaultModel       = "nomic-embed-text"
	embedEndpoint      = "/api/embed"
	defaultHTTPTimeout = 30 * time.Second
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the server address.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// WithDimensions requests and validates vectors of n components; 0 disables the check.
func WithDimensions(n int) ClientOption {
	return func(c *Client) { c.Dimensions = n }
}

// Client calls the ollama embed API.
type Client struct {
	BaseURL    string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Truncate   bool     `json:"truncate"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	Error           string      `json:"error"`
}

// NewClient creates a client for model, producing schema.EmbeddingDim vectors by default.
func NewClient(model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		Model:      model,
		Dimensions: schema.EmbeddingDim,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns one vector per text and the number of prompt tokens evaluated.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("ollama client is nil")
	}
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	var out embedResponse
	request := embedRequest{Model: c.Model, Input: texts, Truncate: true, Dimensions: c.Dimensions}
	if err := embeddings.PostJSON(ctx, c.HTTPClient, "ollama", c.BaseURL+embedEndpoint, nil, request, &out); err != nil {
		return nil, 0, err
	}
	if out.Error != "" {
		return nil, 0, &embeddings.APIError{Provider: "ollama", Status: http.StatusOK, Message: out.Error}
	}
	return out.Embeddings, out.PromptEvalCount, nil
}
