package usecase

import (
	"context"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/snapfind/backend/internal/domain"
)

// Relevance score weights: specific search terms count most, categories
// less, free attributes least. A "new" condition gets a small nudge.
const (
	searchTermWeight   = 5.0
	categoryWeight     = 3.0
	attributeWeight    = 1.0
	newConditionWeight = 0.5
)

// defaultMarketplaceQuery is the last-resort marketplace query when the
// classifier produced nothing usable.
const defaultMarketplaceQuery = "Shoe"

// AggregationConfig holds pipeline tunables.
type AggregationConfig struct {
	Country            string // marketplace listing country, e.g. "IN"
	Currency           string // marketplace target currency, e.g. "INR"
	TopN               int
	EnableDebugLogging bool
}

// AggregationService runs one image-analysis pipeline per call: classify,
// build per-provider queries, fan out, merge, deduplicate, score, sort.
// It holds no state across runs.
type AggregationService struct {
	classifier  *Classifier
	webSearch   domain.ProductSearcher
	marketplace domain.MarketplaceSearcher
	visual      domain.VisualSearcher // optional, nil when not configured
	config      AggregationConfig
}

// NewAggregationService creates the pipeline with its provider adapters.
// visual may be nil; the other adapters are required.
func NewAggregationService(
	classifier *Classifier,
	webSearch domain.ProductSearcher,
	marketplace domain.MarketplaceSearcher,
	visual domain.VisualSearcher,
	config AggregationConfig,
) *AggregationService {
	if config.TopN <= 0 {
		config.TopN = 20
	}
	if config.Country == "" {
		config.Country = "IN"
	}
	if config.Currency == "" {
		config.Currency = "INR"
	}

	return &AggregationService{
		classifier:  classifier,
		webSearch:   webSearch,
		marketplace: marketplace,
		visual:      visual,
		config:      config,
	}
}

// AnalyzeImage runs the full pipeline for one uploaded image. A classifier
// failure aborts the run; provider failures are isolated and treated as
// empty result sets.
func (s *AggregationService) AnalyzeImage(ctx context.Context, imagePath string) (*domain.AnalysisResult, error) {
	classification, err := s.classifier.Classify(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	webQueries := buildSearchQueries(classification)
	marketplaceQuery := marketplaceQueryTerm(classification)

	var webResults, marketplaceResults, visualResults []domain.Product

	// Provider fetches are independent; a failed adapter contributes an
	// empty slice and the run continues with the rest.
	g, gctx := errgroup.WithContext(ctx)

	if len(webQueries) > 0 {
		primary := webQueries[0]
		g.Go(func() error {
			results, err := s.webSearch.Search(gctx, primary)
			if err != nil {
				log.Printf("[GCS] Web search failed for %q: %v", primary, err)
				return nil
			}
			log.Printf("[GCS] Found %d results for %q", len(results), primary)
			webResults = results
			return nil
		})
	}

	g.Go(func() error {
		results, err := s.marketplace.Search(gctx, marketplaceQuery, s.config.Country, s.config.Currency)
		if err != nil {
			log.Printf("[EBAY] Marketplace search failed for %q: %v", marketplaceQuery, err)
			return nil
		}
		log.Printf("[EBAY] Found %d results for %q", len(results), marketplaceQuery)
		marketplaceResults = results
		return nil
	})

	if s.visual != nil {
		g.Go(func() error {
			results, err := s.visual.SearchByImage(gctx, imagePath)
			if err != nil {
				log.Printf("[BING] Visual search failed: %v", err)
				return nil
			}
			log.Printf("[BING] Found %d results", len(results))
			visualResults = results
			return nil
		})
	}

	// Goroutines always return nil; Wait only orders the writes above.
	_ = g.Wait()

	merged := make([]domain.Product, 0, len(webResults)+len(marketplaceResults)+len(visualResults))
	merged = append(merged, webResults...)
	merged = append(merged, marketplaceResults...)
	merged = append(merged, visualResults...)

	deduped := deduplicate(merged)
	scored := scoreProducts(deduped, classification)

	// Stable sort keeps dedup order for equal scores
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	resultsCount := len(scored)
	if len(scored) > s.config.TopN {
		scored = scored[:s.config.TopN]
	}

	if s.config.EnableDebugLogging {
		log.Printf("[PIPELINE] %d unique results, returning top %d", resultsCount, len(scored))
	}

	return &domain.AnalysisResult{
		ProductInfo:  classification.ProductInfo,
		SearchTerms:  classification.SearchTerms,
		Products:     scored,
		ResultsCount: resultsCount,
	}, nil
}

// buildSearchQueries cleans each search term, then each category term, into
// an ordered, deduplicated query list. The first entry drives the web
// search adapter.
func buildSearchQueries(c *domain.Classification) []string {
	var queries []string
	seen := make(map[string]bool)

	appendCleaned := func(term string) {
		cleaned := CleanSearchTerm(term)
		if cleaned == "" || seen[cleaned] {
			return
		}
		seen[cleaned] = true
		queries = append(queries, cleaned)
	}

	for _, term := range c.SearchTerms {
		appendCleaned(term)
	}
	for _, category := range c.ProductInfo.Category {
		appendCleaned(category)
	}

	return queries
}

// marketplaceQueryTerm picks the marketplace query: first raw search term,
// else first raw category term, else the default, then cleaned, falling
// back to the default again when cleaning empties it.
func marketplaceQueryTerm(c *domain.Classification) string {
	term := defaultMarketplaceQuery
	if len(c.SearchTerms) > 0 {
		term = c.SearchTerms[0]
	} else if len(c.ProductInfo.Category) > 0 {
		term = c.ProductInfo.Category[0]
	}

	cleaned := CleanSearchTerm(term)
	if cleaned == "" {
		return defaultMarketplaceQuery
	}
	return cleaned
}

// dedupKey identifies a product across providers. Two items differing only
// by platform are distinct results.
type dedupKey struct {
	title    string
	price    float64
	id       string
	platform string
}

// deduplicate keeps the first occurrence of each key, preserving order.
func deduplicate(products []domain.Product) []domain.Product {
	seen := make(map[dedupKey]bool, len(products))
	unique := make([]domain.Product, 0, len(products))

	for _, p := range products {
		key := dedupKey{
			title:    strings.ToLower(p.Title),
			price:    p.Price,
			id:       p.ID,
			platform: p.Platform,
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}

	return unique
}

// scoreProducts computes the additive relevance score for each product and
// fills in placeholder fields for missing data.
func scoreProducts(products []domain.Product, c *domain.Classification) []domain.ScoredProduct {
	scored := make([]domain.ScoredProduct, 0, len(products))

	for _, p := range products {
		score := 0.0
		titleLower := strings.ToLower(p.Title)

		for _, term := range c.SearchTerms {
			if strings.Contains(titleLower, strings.ToLower(term)) {
				score += searchTermWeight
			}
		}
		for _, category := range c.ProductInfo.Category {
			if strings.Contains(titleLower, strings.ToLower(category)) {
				score += categoryWeight
			}
		}
		for _, attribute := range c.ProductInfo.Attributes {
			if strings.Contains(titleLower, strings.ToLower(attribute)) {
				score += attributeWeight
			}
		}
		if p.Condition != "" && strings.Contains(strings.ToLower(p.Condition), "new") {
			score += newConditionWeight
		}

		if p.Title == "" {
			p.Title = "No Title"
		}
		if p.Platform == "" {
			p.Platform = "Unknown"
		}
		if p.SourceLink == "" {
			p.SourceLink = p.ID
		}

		scored = append(scored, domain.ScoredProduct{
			Product:        p,
			RelevanceScore: score,
		})
	}

	return scored
}
