// Package genai is a thin HTTP client for the hosted completion API used to
// normalize names and produce suggestions. Credentials stay server-side; the
// browser only ever talks to our relay.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrMissingCredential signals a server misconfiguration: the relay is
// reachable but no API key was provided.
var ErrMissingCredential = errors.New("genai: missing API key")

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents         []contentPayload `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type contentPayload struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateJSON sends a prompt constrained to a JSON response schema and
// returns the raw JSON text of the first candidate.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrMissingCredential
	}

	body, err := json.Marshal(generateRequest{
		Contents: []contentPayload{{Parts: []textPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai: call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("genai: unexpected status %d: %s", resp.StatusCode, payload)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("genai: decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("genai: empty completion")
	}

	return []byte(parsed.Candidates[0].Content.Parts[0].Text), nil
}
