package domain

import "errors"

var (
	// ErrProviderUnavailable is returned by an adapter when its upstream API
	// fails; the pipeline treats it as an empty result set
	ErrProviderUnavailable = errors.New("search provider unavailable")

	// ErrClassificationFailed is returned when the vision provider call fails;
	// this is fatal to the analysis run
	ErrClassificationFailed = errors.New("image classification failed")

	// ErrConversionFailed is returned by the rate lookup; callers fall back
	// to the unconverted amount and never surface it
	ErrConversionFailed = errors.New("currency conversion failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUserExists is returned when registering an already-registered email
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a user lookup finds no row
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned on a failed login or an invalid token
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateWishlistItem is returned when (userId, itemId) already exists
	ErrDuplicateWishlistItem = errors.New("item already exists in wishlist")

	// ErrWishlistItemNotFound is returned when deleting an absent wishlist item
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
)
