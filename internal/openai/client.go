package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ragcorpus/internal/models"
)

// modelDimensions maps embedding model names to their fixed vector size.
// The chunk store validates every vector against this dimension on write.
var modelDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-ada-002"

// Client is a minimal OpenAI embeddings client. It deliberately speaks raw
// HTTP instead of pulling in an SDK - the embeddings endpoint is one POST.
type Client struct {
	APIKey  string
	BaseURL string
	Model   string
	client  *http.Client
}

// NewClient creates an embeddings client for the given API key and model.
// An empty model falls back to DefaultModel.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Dimension returns the fixed vector size of the configured model.
func (c *Client) Dimension() int {
	if dim, ok := modelDimensions[c.Model]; ok {
		return dim
	}
	return modelDimensions[DefaultModel]
}

// EmbedBatch embeds texts in one API call and returns vectors in input order,
// one per input. The batch fails atomically: any provider failure returns an
// error and no vectors.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(embeddingRequest{Input: texts, Model: c.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Network errors and timeouts count as transient; a cancelled
		// context is the caller's decision, not worth a retry.
		return nil, &models.ProviderError{Op: "embed", Transient: !errors.Is(err, context.Canceled), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &models.ProviderError{
			Op:         "embed",
			StatusCode: resp.StatusCode,
			Transient:  isTransientStatus(resp.StatusCode),
			Err:        fmt.Errorf("API request failed: %s", string(body)),
		}
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, &models.ProviderError{Op: "embed", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(embResp.Data) != len(texts) {
		return nil, &models.ProviderError{
			Op:  "embed",
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Data)),
		}
	}

	// The API documents data as input-ordered, but each entry also carries
	// an explicit index - trust the index.
	sort.Slice(embResp.Data, func(i, j int) bool { return embResp.Data[i].Index < embResp.Data[j].Index })

	vectors := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// isTransientStatus classifies provider HTTP statuses: rate limits and server
// errors are retryable, auth and input errors are not.
func isTransientStatus(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return true
	}
	return status >= 500
}
