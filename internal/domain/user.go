package domain

import "time"

// User is a registered account. Only the bcrypt hash of the password is stored.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WishlistItem is one saved product for a user. ItemID is the
// provider-namespaced product ID the item was saved from.
type WishlistItem struct {
	ItemID     string    `json:"id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	Platform   string    `json:"platform"`
	ImageURL   string    `json:"imageUrl"`
	SourceLink string    `json:"sourceLink"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// TokenPair is the access/refresh token pair issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
