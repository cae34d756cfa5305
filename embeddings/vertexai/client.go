package vertexai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/codevec/embeddings"
	"github.com/viant/codevec/schema"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultLocation   = "us-central1"
	defaultModel      = "text-embedding-004"
	defaultHTTPTO     = 30 * time.Second
	defaultScopeCloud = "https://www.googleapis.com/auth/cloud-platform"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithLocation(location string) ClientOption {
	return func(c *Client) {
		if location != "" {
			c.Location = location
		}
	}
}

func WithScopes(scopes ...string) ClientOption {
	return func(c *Client) {
		c.Scopes = append(c.Scopes, scopes...)
	}
}

// WithTaskType sets the instance task type, e.g. RETRIEVAL_DOCUMENT or CODE_RETRIEVAL_QUERY.
func WithTaskType(taskType string) ClientOption {
	return func(c *Client) { c.TaskType = taskType }
}

// WithDimensions sets the requested output dimensionality; 0 leaves the model default.
func WithDimensions(n int) ClientOption {
	return func(c *Client) { c.Dimensions = n }
}

// WithTokenSource sets the credentials used instead of application default credentials.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) { c.tokenSource = ts }
}

// WithEndpoint overrides the predict URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpointURL = endpoint }
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.Model = model
		}
	}
}

type Client struct {
	ProjectID  string
	Location   string
	Model      string
	Scopes     []string
	TaskType   string
	Dimensions int

	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	endpointURL string
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type,omitempty"`
}

type predictParameters struct {
	AutoTruncate         bool `json:"autoTruncate"`
	OutputDimensionality int  `json:"outputDimensionality,omitempty"`
}

type predictResponse struct {
	Predictions []predictEmbedding `json:"predictions"`
}

type predictEmbedding struct {
	Embeddings predictEmbeddingValues `json:"embeddings"`
}

type predictEmbeddingValues struct {
	Values []float32 `json:"values"`
}

// NewClient creates a Vertex AI text embedding client for projectID.
func NewClient(ctx context.Context, projectID, model string, opts ...ClientOption) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertexai project id is required")
	}
	c := &Client{
		ProjectID:  projectID,
		Location:   defaultLocation,
		Model:      model,
		Dimensions: schema.EmbeddingDim,
		httpClient: &http.Client{Timeout: defaultHTTPTO},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{defaultScopeCloud}
	}
	if c.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, c.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("vertexai token source: %w", err)
		}
		c.tokenSource = ts
	}
	return c, nil
}

func (c *Client) endpoint() string {
	if c.endpointURL != "" {
		return c.endpointURL
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.Location, c.ProjectID, c.Location, c.Model)
}

// Embed returns one vector per text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("vertexai client is nil")
	}
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	request := predictRequest{
		Instances:  make([]predictInstance, len(texts)),
		Parameters: predictParameters{AutoTruncate: true, OutputDimensionality: c.Dimensions},
	}
	for i, text := range texts {
		request.Instances[i] = predictInstance{Content: text, TaskType: c.TaskType}
	}
	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("vertexai token: %w", err)
	}
	header := http.Header{}
	token.SetAuthHeader(&http.Request{Header: header})
	var out predictResponse
	if err := embeddings.PostJSON(ctx, c.httpClient, "vertexai", c.endpoint(), header, request, &out); err != nil {
		return nil, 0, err
	}
	vecs := make([][]float32, len(out.Predictions))
	for i, p := range out.Predictions {
		vecs[i] = p.Embeddings.Values
	}
	return vecs, 0, nil
}
