// Package customsearch implements the general web-search adapter on the
// Google Custom Search JSON API (image search).
package customsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/snapfind/backend/internal/domain"
	"github.com/snapfind/backend/internal/pricing"
)

const platformName = "Google Custom Search"

// Client handles communication with the Google Custom Search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	cx          string
	baseURL     string
	maxResults  int
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new Custom Search client
func NewClient(apiKey, cx string, maxResults int) *Client {
	if maxResults <= 0 {
		maxResults = 10
	}

	// Custom Search allows 100 queries/day on the free tier; the limiter
	// only guards against a tight request loop
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		cx:          cx,
		baseURL:     "https://www.googleapis.com/customsearch/v1",
		maxResults:  maxResults,
		rateLimiter: limiter,
	}
}

// SetDebug enables verbose per-item logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SetBaseURL overrides the API endpoint (tests)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// searchResponse is the subset of the Custom Search response we consume
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"` // main image URL for image search
	Snippet string `json:"snippet"`
	Image   struct {
		ContextLink string `json:"contextLink"`
	} `json:"image"`
	Pagemap struct {
		Offer   []pagemapPrice `json:"offer"`
		Product []pagemapPrice `json:"product"`
	} `json:"pagemap"`
}

type pagemapPrice struct {
	Price string `json:"price"`
}

// Search runs one image search and maps the items to Products. Network or
// API failures return an error; the pipeline treats it as an empty set.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if c.apiKey == "" || c.cx == "" {
		return nil, fmt.Errorf("%w: custom search credentials not configured", domain.ErrProviderUnavailable)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("key", c.apiKey)
	params.Add("cx", c.cx)
	params.Add("searchType", "image")
	params.Add("num", strconv.Itoa(c.maxResults))

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "SnapFind/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[GCS] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.mapItems(searchResp.Items), nil
}

// mapItems converts API items to Products, skipping any item that violates
// the absolute-URL invariant.
func (c *Client) mapItems(items []searchItem) []domain.Product {
	products := make([]domain.Product, 0, len(items))

	for _, item := range items {
		sourceLink := item.Image.ContextLink
		if !domain.IsAbsoluteURL(sourceLink) {
			log.Printf("[GCS] Invalid sourceLink for item %q, skipping", item.Title)
			continue
		}
		if !domain.IsAbsoluteURL(item.Link) {
			log.Printf("[GCS] Invalid imageUrl for item %q, skipping", item.Title)
			continue
		}

		price := resolvePrice(item)

		product := domain.Product{
			ID:         productID(sourceLink),
			Title:      item.Title,
			Price:      price,
			Currency:   "INR",
			Platform:   platformName,
			ImageURL:   item.Link,
			SourceLink: sourceLink,
		}
		products = append(products, product)

		if c.debug {
			log.Printf("[GCS] Added product %s, price %.2f %s", product.ID, price, product.Currency)
		}
	}

	return products
}

// resolvePrice prefers structured pagemap data (offer, then product) and
// only falls back to extracting a price from the snippet text.
func resolvePrice(item searchItem) float64 {
	if len(item.Pagemap.Offer) > 0 {
		if price, err := strconv.ParseFloat(item.Pagemap.Offer[0].Price, 64); err == nil {
			return price
		}
	}
	if len(item.Pagemap.Product) > 0 {
		if price, err := strconv.ParseFloat(item.Pagemap.Product[0].Price, 64); err == nil {
			return price
		}
	}
	return pricing.ExtractPrice(item.Snippet)
}

// productID derives a stable provider-namespaced ID from the source link.
// FNV-1a over the URL bytes keeps the same URL mapped to the same ID
// across processes.
func productID(sourceLink string) string {
	h := fnv.New64a()
	h.Write([]byte(sourceLink))
	return fmt.Sprintf("gcs_%d", h.Sum64())
}
