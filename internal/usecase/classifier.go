package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/snapfind/backend/internal/domain"
)

// Confidence policy for term extraction. Best-guess web labels carry no
// provider score, so they are assigned a fixed high confidence.
const (
	bestGuessConfidence = 0.9
	webEntityMinScore   = 0.7
	objectMinScore      = 0.7
	labelMinScore       = 0.8
	maxWebEntities      = 2
	maxLabels           = 2
	maxSearchTerms      = 5
	confidenceThreshold = 0.8
)

// categoryKeywords partition detected terms into category vs. attribute
// (case-insensitive substring match).
var categoryKeywords = []string{"shirt", "shoe", "dress", "watch", "phone"}

// Classifier turns raw vision provider detections into ranked search terms
// and coarse product info.
type Classifier struct {
	vision             domain.VisionDetector
	enableDebugLogging bool
}

// NewClassifier creates a classifier backed by the given vision provider.
func NewClassifier(vision domain.VisionDetector, enableDebugLogging bool) *Classifier {
	return &Classifier{
		vision:             vision,
		enableDebugLogging: enableDebugLogging,
	}
}

// Classify runs the vision detections for the image and ranks the detected
// terms. A vision provider failure is fatal to the analysis run.
func (c *Classifier) Classify(ctx context.Context, imagePath string) (*domain.Classification, error) {
	detections, err := c.vision.Detect(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	return c.rank(detections), nil
}

// rank collects candidate terms in fixed priority order (best-guess web
// labels, top web entities, localized objects, top labels), deduplicates
// them case-insensitively preserving first-seen order, and partitions the
// full set into category and attribute terms.
func (c *Classifier) rank(d *domain.VisionDetections) *domain.Classification {
	var terms []string
	var scores []float64

	for _, label := range d.BestGuessLabels {
		terms = append(terms, label)
		scores = append(scores, bestGuessConfidence)
	}

	webEntities := make([]domain.DetectedEntity, len(d.WebEntities))
	copy(webEntities, d.WebEntities)
	sort.SliceStable(webEntities, func(i, j int) bool {
		return webEntities[i].Score > webEntities[j].Score
	})
	for i, entity := range webEntities {
		if i >= maxWebEntities {
			break
		}
		if entity.Score > webEntityMinScore {
			terms = append(terms, entity.Description)
			scores = append(scores, entity.Score)
		}
	}

	for _, obj := range d.Objects {
		if obj.Score > objectMinScore {
			terms = append(terms, obj.Description)
			scores = append(scores, obj.Score)
		}
	}

	labels := make([]domain.DetectedEntity, len(d.Labels))
	copy(labels, d.Labels)
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})
	for i, label := range labels {
		if i >= maxLabels {
			break
		}
		if label.Score > labelMinScore {
			terms = append(terms, label.Description)
			scores = append(scores, label.Score)
		}
	}

	// Deduplicate case-insensitively, preserving priority order
	seen := make(map[string]bool)
	var uniqueTerms []string
	var uniqueScores []float64
	for i, term := range terms {
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniqueTerms = append(uniqueTerms, term)
		uniqueScores = append(uniqueScores, scores[i])
	}

	// Mean of zero retained terms is 0, so confidence stays false
	avgConfidence := 0.0
	if len(uniqueScores) > 0 {
		sum := 0.0
		for _, s := range uniqueScores {
			sum += s
		}
		avgConfidence = sum / float64(len(uniqueScores))
	}

	// Partition the full deduplicated set, not just the top terms
	category := []string{}
	attributes := []string{}
	for _, term := range uniqueTerms {
		if isCategoryTerm(term) {
			category = append(category, term)
		} else {
			attributes = append(attributes, term)
		}
	}

	searchTerms := uniqueTerms
	if len(searchTerms) > maxSearchTerms {
		searchTerms = searchTerms[:maxSearchTerms]
	}
	if searchTerms == nil {
		searchTerms = []string{}
	}

	classification := &domain.Classification{
		SearchTerms: searchTerms,
		ProductInfo: domain.ProductInfo{
			Category:   category,
			Attributes: attributes,
			Confidence: avgConfidence > confidenceThreshold,
		},
	}

	if c.enableDebugLogging {
		log.Printf("[VISION] Search terms: %v | Category: %v | Confidence: %.2f",
			classification.SearchTerms, category, avgConfidence)
	}

	return classification
}

// isCategoryTerm reports whether the term names a known product category.
func isCategoryTerm(term string) bool {
	lower := strings.ToLower(term)
	for _, keyword := range categoryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
