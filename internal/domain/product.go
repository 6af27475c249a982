package domain

import "strings"

// Product represents one normalized search result from a single provider,
// before deduplication and scoring.
type Product struct {
	ID         string  `json:"id"`       // provider-namespaced, e.g. "ebay_<itemId>"
	Title      string  `json:"title"`
	Price      float64 `json:"price"`    // 0.0 means "no price found", not an error
	Currency   string  `json:"currency"` // 3-letter ISO code
	Platform   string  `json:"platform"` // e.g. "eBay"
	ImageURL   string  `json:"imageUrl"`
	SourceLink string  `json:"sourceLink"`
	Condition  string  `json:"condition,omitempty"`
}

// ScoredProduct is a Product with its computed relevance score.
// Scores are per-request and never persisted.
type ScoredProduct struct {
	Product
	RelevanceScore float64 `json:"relevance_score"`
}

// AnalysisResult is the output of one image analysis run.
type AnalysisResult struct {
	ProductInfo  ProductInfo     `json:"product_info"`
	SearchTerms  []string        `json:"search_terms"`
	Products     []ScoredProduct `json:"products"`
	ResultsCount int             `json:"results_count"` // deduplicated count before truncation
}

// IsAbsoluteURL reports whether s is an absolute http(s) URL. Products with
// a relative or missing image/source URL must be dropped by their adapter.
func IsAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
