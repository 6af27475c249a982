// Package bingvisual implements the reverse-image visual-search adapter on
// the Bing Visual Search API. Unlike the other adapters it takes the image
// file directly rather than classified terms.
package bingvisual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/snapfind/backend/internal/domain"
)

const platformName = "Bing Visual Search"

// Client handles communication with the Bing Visual Search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new Bing Visual Search client
func NewClient(apiKey string) *Client {
	limiter := rate.NewLimiter(rate.Limit(1), 3)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     "https://api.bing.microsoft.com/v7.0/images/visualsearch",
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

// visualResponse is the subset of the Bing response we consume: product
// items live under tags -> actions(ProductVisualSearch) -> data.items.
type visualResponse struct {
	Tags []struct {
		Actions []struct {
			ActionType string `json:"actionType"`
			Data       struct {
				Items []visualItem `json:"items"`
			} `json:"data"`
		} `json:"actions"`
	} `json:"tags"`
}

type visualItem struct {
	Name         string      `json:"name"`
	HostPageURL  string      `json:"hostPageUrl"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	Price        json.Number `json:"price"`
}

// SearchByImage uploads the image and maps ProductVisualSearch matches to
// Products.
func (c *Client) SearchByImage(ctx context.Context, imagePath string) ([]domain.Product, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: Bing credentials not configured", domain.ErrProviderUnavailable)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[BING] API error - Status: %d, Body: %s", resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var visualResp visualResponse
	if err := json.NewDecoder(resp.Body).Decode(&visualResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.mapItems(visualResp), nil
}

// mapItems collects items from every ProductVisualSearch action. Host page
// URLs sometimes arrive without a scheme; those are normalized to https
// rather than dropped, matching the provider's own result pages.
func (c *Client) mapItems(resp visualResponse) []domain.Product {
	var products []domain.Product

	for _, tag := range resp.Tags {
		for _, action := range tag.Actions {
			if action.ActionType != "ProductVisualSearch" {
				continue
			}
			for _, item := range action.Data.Items {
				sourceLink := item.HostPageURL
				if sourceLink == "" {
					log.Printf("[BING] Missing hostPageUrl for item %q, skipping", item.Name)
					continue
				}
				if !domain.IsAbsoluteURL(sourceLink) {
					sourceLink = "https://" + sourceLink
				}
				if !domain.IsAbsoluteURL(item.ThumbnailURL) {
					log.Printf("[BING] Invalid imageUrl for item %q, skipping", item.Name)
					continue
				}

				price, _ := item.Price.Float64()

				product := domain.Product{
					ID:         productID(item.HostPageURL),
					Title:      item.Name,
					Price:      price,
					Currency:   "USD",
					Platform:   platformName,
					ImageURL:   item.ThumbnailURL,
					SourceLink: sourceLink,
				}
				products = append(products, product)

				if c.debug {
					log.Printf("[BING] Item %s: %q, %.2f USD", product.ID, item.Name, price)
				}
			}
		}
	}

	return products
}

// productID derives a stable provider-namespaced ID from the host page URL.
func productID(hostPageURL string) string {
	h := fnv.New64a()
	h.Write([]byte(hostPageURL))
	return fmt.Sprintf("bing_%d", h.Sum64())
}
