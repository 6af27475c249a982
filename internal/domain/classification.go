package domain

// ProductInfo is the coarse categorization of the detected terms.
type ProductInfo struct {
	Category   []string `json:"category"`
	Attributes []string `json:"attributes"`
	Confidence bool     `json:"confidence"` // mean detection confidence > 0.8
}

// Classification is the output of the vision classifier for one image.
type Classification struct {
	SearchTerms []string    `json:"search_terms"` // at most 5, ordered by extraction priority
	ProductInfo ProductInfo `json:"product_info"`
}

// DetectedEntity is a single detection (label, object or web entity)
// returned by the vision provider.
type DetectedEntity struct {
	Description string
	Score       float64
}

// VisionDetections is the raw output of the three vision provider calls,
// before any ranking or filtering.
type VisionDetections struct {
	BestGuessLabels []string         // web detection best-guess labels (no score from provider)
	WebEntities     []DetectedEntity // web detection entities
	Objects         []DetectedEntity // localized objects
	Labels          []DetectedEntity // label detection
}
