// Package avatar fetches profile images for share cards, with the caller
// deciding what to do when a handle has none.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Fetcher struct {
	httpClient *http.Client
	baseURL    string
}

func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
	}
}

// Fetch returns the raw image bytes and content type for a handle.
func (f *Fetcher) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	target := fmt.Sprintf("%s/%s", f.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("avatar: build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("avatar: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("avatar: unexpected status %d", resp.StatusCode)
	}

	// 2MB is plenty for an avatar; anything bigger is suspicious.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, "", fmt.Errorf("avatar: read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
