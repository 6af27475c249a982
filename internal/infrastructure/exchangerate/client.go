// Package exchangerate converts amounts between ISO currencies via the
// exchangerate-api.com pair endpoint. Conversion never fails: any lookup
// problem falls back to the original amount, since a wrong currency label
// on a real number beats a failed search.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/snapfind/backend/internal/domain"
)

// Client looks up conversion rates with an in-memory TTL cache so repeated
// conversions within one burst of marketplace results hit the API once.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	cacheTTL   time.Duration

	mutex sync.RWMutex
	rates map[string]cachedRate
}

type cachedRate struct {
	rate       float64
	expiration time.Time
}

// NewClient creates a converter client
func NewClient(apiKey, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com"
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:   apiKey,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		rates:    make(map[string]cachedRate),
	}
}

// pairResponse is the exchangerate-api v6 pair lookup response
type pairResponse struct {
	Result         string  `json:"result"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Convert converts amount from one currency to another, rounded to two
// decimals. On any failure it logs and returns the original amount.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) float64 {
	if from == to {
		return amount
	}

	rate, err := c.lookupRate(ctx, from, to)
	if err != nil {
		log.Printf("[FX] %v; returning unconverted amount", err)
		return amount
	}

	return math.Round(amount*rate*100) / 100
}

// lookupRate returns the cached rate for the pair, fetching when absent or
// expired.
func (c *Client) lookupRate(ctx context.Context, from, to string) (float64, error) {
	key := from + "_" + to

	c.mutex.RLock()
	cached, ok := c.rates[key]
	c.mutex.RUnlock()
	if ok && time.Now().Before(cached.expiration) {
		return cached.rate, nil
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	c.mutex.Lock()
	c.rates[key] = cachedRate{rate: rate, expiration: time.Now().Add(c.cacheTTL)}
	c.mutex.Unlock()

	return rate, nil
}

// fetchRate calls the pair endpoint once.
func (c *Client) fetchRate(ctx context.Context, from, to string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("%w: rate API key not configured", domain.ErrConversionFailed)
	}

	reqURL := fmt.Sprintf("%s/v6/%s/pair/%s/%s", c.baseURL, c.apiKey, from, to)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%w: status %d, body: %s", domain.ErrConversionFailed, resp.StatusCode, string(body))
	}

	var pairResp pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pairResp); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}

	if pairResp.Result != "success" || pairResp.ConversionRate <= 0 {
		return 0, fmt.Errorf("%w: result %q", domain.ErrConversionFailed, pairResp.Result)
	}

	return pairResp.ConversionRate, nil
}
