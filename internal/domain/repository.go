package domain

import "context"

// VisionDetector runs the vision provider's detections against an image file.
type VisionDetector interface {
	Detect(ctx context.Context, imagePath string) (*VisionDetections, error)
}

// ProductSearcher is a text-query provider adapter. Implementations enforce
// the absolute-URL invariant on every emitted Product.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]Product, error)
}

// MarketplaceSearcher is a provider adapter that additionally filters by
// listing country and converts prices to the requested currency.
type MarketplaceSearcher interface {
	Search(ctx context.Context, query, countryCode, currency string) ([]Product, error)
}

// VisualSearcher is a reverse-image provider adapter; it takes the image
// file directly instead of classified terms.
type VisualSearcher interface {
	SearchByImage(ctx context.Context, imagePath string) ([]Product, error)
}

// CurrencyConverter converts an amount between two ISO currency codes.
// It never fails: on any rate-lookup problem it returns the original amount.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from, to string) float64
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// WishlistStore persists saved items, keyed by (userID, itemID).
// Add returns ErrDuplicateWishlistItem when the key already exists;
// Delete returns ErrWishlistItemNotFound when it does not.
type WishlistStore interface {
	Add(ctx context.Context, userID string, item *WishlistItem) error
	List(ctx context.Context, userID string) ([]WishlistItem, error)
	Delete(ctx context.Context, userID, itemID string) error
}
