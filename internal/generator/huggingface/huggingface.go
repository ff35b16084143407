package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"shoprag/internal/domain"
)

const (
	DefaultURL       = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.1"
	DefaultAPIKeyEnv = "HUGGINGFACE_API_KEY"
)

// Config configures the text generation client.
type Config struct {
	URL          string
	APIKeyEnv    string
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	Timeout      time.Duration
}

// Client calls the Hugging Face Inference API text generation endpoint.
type Client struct {
	url    string
	apiKey string
	params parameters
	client *http.Client
}

var _ domain.Generator = (*Client)(nil)

type parameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	DoSample     bool    `json:"do_sample"`
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type generateResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// NewClient reads the API key from the configured environment variable.
// A missing key is not an error here; Generate reports it.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 200
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TopP <= 0 {
		cfg.TopP = 0.95
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		apiKey: os.Getenv(cfg.APIKeyEnv),
		params: parameters{
			MaxNewTokens: cfg.MaxNewTokens,
			Temperature:  cfg.Temperature,
			TopP:         cfg.TopP,
			DoSample:     true,
		},
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "huggingface" }

// Generate returns the raw generated text, which may echo the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", domain.ErrBackendUnavailable)
	}
	data, err := json.Marshal(generateRequest{Inputs: prompt, Parameters: c.params})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: huggingface generate failed: %s", domain.ErrBackendUnavailable, resp.Status)
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(out) == 0 {
		return "", errors.New("no generated text returned")
	}
	return out[0].GeneratedText, nil
}
