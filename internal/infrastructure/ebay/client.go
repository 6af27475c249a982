// Package ebay implements the marketplace adapter on the eBay Finding API
// (findItemsAdvanced, JSON response format).
package ebay

import (
	"context"
	"encoding/json"
	"fmt"
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

const platformName = "eBay"

// Client handles communication with the eBay Finding API
type Client struct {
	httpClient  *http.Client
	appID       string
	baseURL     string
	maxResults  int
	converter   domain.CurrencyConverter
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new Finding API client. converter is used to bring
// listing prices into the requested target currency.
func NewClient(appID, baseURL string, maxResults int, converter domain.CurrencyConverter) *Client {
	if baseURL == "" {
		baseURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	// Finding API allows 5000 calls/day
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		appID:       appID,
		baseURL:     baseURL,
		maxResults:  maxResults,
		converter:   converter,
		rateLimiter: limiter,
	}
}

// SetDebug enables verbose per-item logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// The Finding API JSON format wraps every field in a single-element array.
type findResponse struct {
	FindItemsAdvancedResponse []struct {
		Ack          []string       `json:"ack"`
		SearchResult []searchResult `json:"searchResult"`
	} `json:"findItemsAdvancedResponse"`
}

type searchResult struct {
	Item []findingItem `json:"item"`
}

type findingItem struct {
	ItemID        []string        `json:"itemId"`
	Title         []string        `json:"title"`
	GalleryURL    []string        `json:"galleryURL"`
	ViewItemURL   []string        `json:"viewItemURL"`
	SellingStatus []sellingStatus `json:"sellingStatus"`
	Condition     []itemCondition `json:"condition"`
}

type sellingStatus struct {
	CurrentPrice []currentPrice `json:"currentPrice"`
}

type currentPrice struct {
	CurrencyID string `json:"@currencyId"`
	Value      string `json:"__value__"`
}

type itemCondition struct {
	ConditionDisplayName []string `json:"conditionDisplayName"`
}

// Search runs findItemsAdvanced filtered to listings located in
// countryCode, converting prices to targetCurrency where they differ.
func (c *Client) Search(ctx context.Context, query, countryCode, targetCurrency string) ([]domain.Product, error) {
	if c.appID == "" {
		return nil, fmt.Errorf("%w: eBay credentials not configured", domain.ErrProviderUnavailable)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	params := url.Values{}
	params.Add("OPERATION-NAME", "findItemsAdvanced")
	params.Add("SERVICE-VERSION", "1.13.0")
	params.Add("SECURITY-APPNAME", c.appID)
	params.Add("RESPONSE-DATA-FORMAT", "JSON")
	params.Add("REST-PAYLOAD", "")
	params.Add("keywords", query)
	params.Add("paginationInput.entriesPerPage", strconv.Itoa(c.maxResults))
	params.Add("paginationInput.pageNumber", "1")
	params.Add("itemFilter(0).name", "LocatedIn")
	params.Add("itemFilter(0).value", countryCode)

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
		log.Printf("[EBAY] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var findResp findResponse
	if err := json.NewDecoder(resp.Body).Decode(&findResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := extractItems(findResp)
	return c.mapItems(ctx, items, targetCurrency), nil
}

// extractItems unwraps the Finding API's array-of-one response envelope.
func extractItems(resp findResponse) []findingItem {
	if len(resp.FindItemsAdvancedResponse) == 0 {
		return nil
	}
	outer := resp.FindItemsAdvancedResponse[0]
	if len(outer.Ack) > 0 && outer.Ack[0] != "Success" && outer.Ack[0] != "Warning" {
		return nil
	}
	if len(outer.SearchResult) == 0 {
		return nil
	}
	return outer.SearchResult[0].Item
}

// mapItems converts Finding API items to Products, enforcing the
// absolute-URL invariant per item and converting currencies.
func (c *Client) mapItems(ctx context.Context, items []findingItem, targetCurrency string) []domain.Product {
	products := make([]domain.Product, 0, len(items))

	for _, item := range items {
		title := first(item.Title)
		imageURL := first(item.GalleryURL)
		sourceLink := first(item.ViewItemURL)

		if !domain.IsAbsoluteURL(imageURL) {
			log.Printf("[EBAY] Invalid imageUrl for item %q, skipping", title)
			continue
		}
		if !domain.IsAbsoluteURL(sourceLink) {
			log.Printf("[EBAY] Invalid sourceLink for item %q, skipping", title)
			continue
		}

		price, currency := itemPrice(item)
		if currency != targetCurrency && price > 0 && c.converter != nil {
			price = c.converter.Convert(ctx, price, currency, targetCurrency)
			currency = targetCurrency
		}

		product := domain.Product{
			ID:         fmt.Sprintf("ebay_%s", first(item.ItemID)),
			Title:      title,
			Price:      price,
			Currency:   currency,
			Platform:   platformName,
			ImageURL:   imageURL,
			SourceLink: sourceLink,
			Condition:  itemConditionName(item),
		}
		products = append(products, product)

		if c.debug {
			log.Printf("[EBAY] Item %s: %q, %.2f %s", product.ID, title, price, currency)
		}
	}

	return products
}

// itemPrice reads the structured currentPrice field; a malformed value
// falls back to the generic amount parser.
func itemPrice(item findingItem) (float64, string) {
	if len(item.SellingStatus) == 0 || len(item.SellingStatus[0].CurrentPrice) == 0 {
		return 0.0, "USD"
	}
	cp := item.SellingStatus[0].CurrentPrice[0]

	currency := cp.CurrencyID
	if currency == "" {
		currency = "USD"
	}

	price, err := strconv.ParseFloat(cp.Value, 64)
	if err != nil {
		price = pricing.ParseAmount(cp.Value)
	}
	return price, currency
}

// itemConditionName returns the display condition ("New", "Used") or "".
func itemConditionName(item findingItem) string {
	if len(item.Condition) == 0 {
		return ""
	}
	return first(item.Condition[0].ConditionDisplayName)
}

// first unwraps a Finding API single-element string array.
func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
