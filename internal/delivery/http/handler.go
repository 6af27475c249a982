package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snapfind/backend/internal/domain"
	"github.com/snapfind/backend/internal/usecase"
)

// allowedImageExtensions is the upload allowlist
var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	auth           *usecase.AuthService
	aggregator     *usecase.AggregationService
	wishlist       domain.WishlistStore
	uploadDir      string
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *usecase.AuthService,
	aggregator *usecase.AggregationService,
	wishlist domain.WishlistStore,
	uploadDir string,
	maxUploadBytes int64,
) *Handler {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 * 1024 * 1024
	}

	return &Handler{
		auth:           auth,
		aggregator:     aggregator,
		wishlist:       wishlist,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// Welcome greets API clients
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Visual Search Engine API",
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "snapfind-backend",
		"version": "1.0.0",
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	if err := h.auth.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
			return
		}
		log.Printf("[AUTH] Registration failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login verifies credentials and issues tokens
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Printf("[AUTH] Login failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh issues a new access token from a Bearer refresh token
func (h *Handler) Refresh(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing refresh token"})
		return
	}

	accessToken, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// GetWishlist lists the authenticated user's saved items
func (h *Handler) GetWishlist(c *gin.Context) {
	userID := c.GetString(contextUserKey)

	items, err := h.wishlist.List(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[WISHLIST] List failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
		return
	}
	if items == nil {
		items = []domain.WishlistItem{}
	}

	c.JSON(http.StatusOK, gin.H{"wishlist": items, "count": len(items)})
}

type wishlistAddRequest struct {
	ItemID     string   `json:"itemId"`
	Title      string   `json:"title"`
	Price      *float64 `json:"price"`
	Currency   string   `json:"currency"`
	Platform   string   `json:"platform"`
	ImageURL   string   `json:"imageUrl"`
	SourceLink string   `json:"sourceLink"`
}

// AddWishlistItem saves a product for the authenticated user
func (h *Handler) AddWishlistItem(c *gin.Context) {
	userID := c.GetString(contextUserKey)

	var req wishlistAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if missing := missingWishlistFields(&req); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Required fields: itemId, title, price, platform, imageUrl, sourceLink. Missing: %s",
				strings.Join(missing, ", ")),
		})
		return
	}

	if !domain.IsAbsoluteURL(req.ImageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'imageUrl' must be a valid URL"})
		return
	}
	if !domain.IsAbsoluteURL(req.SourceLink) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'sourceLink' must be a valid URL"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	item := &domain.WishlistItem{
		ItemID:     req.ItemID,
		Title:      req.Title,
		Price:      *req.Price,
		Currency:   currency,
		Platform:   req.Platform,
		ImageURL:   req.ImageURL,
		SourceLink: req.SourceLink,
	}

	if err := h.wishlist.Add(c.Request.Context(), userID, item); err != nil {
		if errors.Is(err, domain.ErrDuplicateWishlistItem) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Item already exists in wishlist"})
			return
		}
		log.Printf("[WISHLIST] Add failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to wishlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to wishlist",
		"item":    item,
	})
}

// missingWishlistFields lists which required fields are absent
func missingWishlistFields(req *wishlistAddRequest) []string {
	var missing []string
	if req.ItemID == "" {
		missing = append(missing, "itemId")
	}
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.Price == nil {
		missing = append(missing, "price")
	}
	if req.Platform == "" {
		missing = append(missing, "platform")
	}
	if req.ImageURL == "" {
		missing = append(missing, "imageUrl")
	}
	if req.SourceLink == "" {
		missing = append(missing, "sourceLink")
	}
	return missing
}

// DeleteWishlistItem removes a saved item. Deleting an already-removed item
// succeeds, so clients can retry safely.
func (h *Handler) DeleteWishlistItem(c *gin.Context) {
	userID := c.GetString(contextUserKey)

	itemID := c.Query("itemId")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing itemId"})
		return
	}

	err := h.wishlist.Delete(c.Request.Context(), userID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrWishlistItemNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "Item already removed from wishlist"})
			return
		}
		log.Printf("[WISHLIST] Delete failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item from wishlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

// AnalyzeImage accepts an uploaded photo, runs the aggregation pipeline and
// returns the scored products. The temporary upload is removed on every
// exit path.
func (h *Handler) AnalyzeImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}
	if file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
		return
	}

	// Random prefix keeps concurrent uploads of the same filename apart and
	// discards any path components a client smuggles into the name
	filePath := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, filePath); err != nil {
		log.Printf("[UPLOAD] Failed to save image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			// Leaked temp file; response is already correct, so log only
			log.Printf("[UPLOAD] Failed to remove %s: %v", filePath, err)
		}
	}()

	result, err := h.aggregator.AnalyzeImage(c.Request.Context(), filePath)
	if err != nil {
		log.Printf("[ANALYZE] Analysis failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Image analyzed successfully",
		"product_info":  result.ProductInfo,
		"search_terms":  result.SearchTerms,
		"products":      result.Products,
		"results_count": result.ResultsCount,
	})
}

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
