package bingvisual

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapfind/backend/internal/domain"
)

const visualFixture = `{
	"tags": [{
		"actions": [
			{
				"actionType": "PagesIncluding",
				"data": {"items": [{"name": "Ignored", "hostPageUrl": "https://blog.example.com", "thumbnailUrl": "https://tse.example.com/ignored.jpg"}]}
			},
			{
				"actionType": "ProductVisualSearch",
				"data": {"items": [
					{
						"name": "Red Sneaker Pro",
						"hostPageUrl": "https://shop.example.com/sneaker",
						"thumbnailUrl": "https://tse.example.com/sneaker.jpg",
						"price": 49.99
					},
					{
						"name": "Schemeless Host Page",
						"hostPageUrl": "shop.example.com/boots",
						"thumbnailUrl": "https://tse.example.com/boots.jpg"
					},
					{
						"name": "Bad Thumbnail",
						"hostPageUrl": "https://shop.example.com/bad",
						"thumbnailUrl": "/thumbs/bad.jpg"
					}
				]}
			}
		]
	}]
}`

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o644))
	return path
}

func TestSearchByImage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-api-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		file.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(visualFixture))
	}))
	defer server.Close()

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)

	products, err := client.SearchByImage(context.Background(), testImage(t))
	require.NoError(t, err)

	// item from the non-product action and the bad-thumbnail item are dropped
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "Red Sneaker Pro", p.Title)
	assert.Equal(t, 49.99, p.Price)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "Bing Visual Search", p.Platform)
	assert.Equal(t, "https://tse.example.com/sneaker.jpg", p.ImageURL)
	assert.Equal(t, "https://shop.example.com/sneaker", p.SourceLink)
	assert.Equal(t, productID("https://shop.example.com/sneaker"), p.ID)

	assert.Equal(t, "https://shop.example.com/boots", products[1].SourceLink,
		"schemeless host pages are normalized, not dropped")
}

func TestSearchByImage_MissingKey(t *testing.T) {
	client := NewClient("")

	_, err := client.SearchByImage(context.Background(), "photo.jpg")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestSearchByImage_MissingFile(t *testing.T) {
	client := NewClient("test-api-key")

	_, err := client.SearchByImage(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}

func TestSearchByImage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)

	_, err := client.SearchByImage(context.Background(), testImage(t))
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
