package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/snapfind/backend/internal/domain"
)

// WishlistStore persists saved items keyed by (user_id, item_id).
type WishlistStore struct {
	store *Store
}

// NewWishlistStore creates a wishlist store on the shared pool.
func NewWishlistStore(store *Store) *WishlistStore {
	return &WishlistStore{store: store}
}

// Add inserts a saved item, enforcing (user_id, item_id) uniqueness before
// insert.
func (s *WishlistStore) Add(ctx context.Context, userID string, item *domain.WishlistItem) error {
	var exists bool
	err := s.store.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND item_id = $2)`,
		userID, item.ItemID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking wishlist item: %w", err)
	}
	if exists {
		return domain.ErrDuplicateWishlistItem
	}

	now := time.Now().UTC()
	_, err = s.store.pool.Exec(ctx,
		`INSERT INTO wishlist_items
		   (user_id, item_id, title, price, currency, platform, image_url, source_link, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		userID, item.ItemID, item.Title, item.Price, item.Currency,
		item.Platform, item.ImageURL, item.SourceLink, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting wishlist item: %w", err)
	}
	return nil
}

// List returns the user's saved items whose stored URLs are still absolute
// http(s) URLs; anything else is legacy noise and filtered out.
func (s *WishlistStore) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	rows, err := s.store.pool.Query(ctx,
		`SELECT item_id, title, price, currency, platform, image_url, source_link, created_at, updated_at
		 FROM wishlist_items
		 WHERE user_id = $1
		   AND (image_url LIKE 'http://%' OR image_url LIKE 'https://%')
		   AND (source_link LIKE 'http://%' OR source_link LIKE 'https://%')
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying wishlist: %w", err)
	}
	defer rows.Close()

	var items []domain.WishlistItem
	for rows.Next() {
		var item domain.WishlistItem
		if err := rows.Scan(
			&item.ItemID, &item.Title, &item.Price, &item.Currency,
			&item.Platform, &item.ImageURL, &item.SourceLink,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning wishlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes a saved item, returning ErrWishlistItemNotFound when no
// row matched.
func (s *WishlistStore) Delete(ctx context.Context, userID, itemID string) error {
	tag, err := s.store.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND item_id = $2`,
		userID, itemID,
	)
	if err != nil {
		return fmt.Errorf("deleting wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWishlistItemNotFound
	}
	return nil
}
