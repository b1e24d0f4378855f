package avatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch_WhenOK_ShouldReturnBytesAndContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mkbhd", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL)

	data, contentType, err := fetcher.Fetch(context.Background(), "mkbhd")
	require.NoError(t, err)

	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestFetcher_Fetch_WhenNotFound_ShouldFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL)

	_, _, err := fetcher.Fetch(context.Background(), "ghost")
	assert.Error(t, err)
}
