package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapfind/backend/config"
	"github.com/snapfind/backend/internal/domain"
	"github.com/snapfind/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

// In-memory stores and provider stubs wired into a real router.

type memUsers struct {
	users map[string]*domain.User
}

func (s *memUsers) Create(ctx context.Context, user *domain.User) error {
	if _, ok := s.users[user.Email]; ok {
		return domain.ErrUserExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

type memWishlist struct {
	items map[string][]domain.WishlistItem // keyed by user
}

func (s *memWishlist) Add(ctx context.Context, userID string, item *domain.WishlistItem) error {
	for _, existing := range s.items[userID] {
		if existing.ItemID == item.ItemID {
			return domain.ErrDuplicateWishlistItem
		}
	}
	s.items[userID] = append(s.items[userID], *item)
	return nil
}

func (s *memWishlist) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	return s.items[userID], nil
}

func (s *memWishlist) Delete(ctx context.Context, userID, itemID string) error {
	items := s.items[userID]
	for i, existing := range items {
		if existing.ItemID == itemID {
			s.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrWishlistItemNotFound
}

type stubVision struct {
	detections *domain.VisionDetections
	err        error
}

func (s *stubVision) Detect(ctx context.Context, imagePath string) (*domain.VisionDetections, error) {
	return s.detections, s.err
}

type stubWebSearcher struct{ results []domain.Product }

func (s *stubWebSearcher) Search(ctx context.Context, query string) ([]domain.Product, error) {
	return s.results, nil
}

type stubMarketplace struct{ results []domain.Product }

func (s *stubMarketplace) Search(ctx context.Context, query, country, currency string) ([]domain.Product, error) {
	return s.results, nil
}

type testEnv struct {
	router    *gin.Engine
	uploadDir string
}

// setupTestEnv builds a router backed by in-memory stores and provider
// stubs. A nil vision error means classification succeeds.
func setupTestEnv(t *testing.T, visionErr error) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 5 * 1024 * 1024,
		},
	}

	auth := usecase.NewAuthService(&memUsers{users: map[string]*domain.User{}}, usecase.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})

	classifier := usecase.NewClassifier(&stubVision{
		detections: &domain.VisionDetections{BestGuessLabels: []string{"Red Sneaker"}},
		err:        visionErr,
	}, false)

	aggregator := usecase.NewAggregationService(
		classifier,
		&stubWebSearcher{results: []domain.Product{{
			ID:         "gcs_1",
			Title:      "Red Sneaker Pro",
			Price:      2499,
			Currency:   "INR",
			Platform:   "Google Custom Search",
			ImageURL:   "https://cdn.example.com/sneaker.jpg",
			SourceLink: "https://shop.example.com/sneaker",
		}}},
		&stubMarketplace{},
		nil,
		usecase.AggregationConfig{},
	)

	uploadDir := t.TempDir()
	handler := NewHandler(auth, aggregator, &memWishlist{items: map[string][]domain.WishlistItem{}}, uploadDir, cfg.Server.MaxUploadBytes)

	return &testEnv{
		router:    SetupRouter(cfg, handler),
		uploadDir: uploadDir,
	}
}

func (env *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// registerAndLogin returns an access token for a fresh test user.
func registerAndLogin(t *testing.T, env *testEnv) string {
	t.Helper()

	w := env.do(t, jsonRequest(t, "POST", "/register", gin.H{"email": "alice@example.com", "password": "hunter22"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, jsonRequest(t, "POST", "/login", gin.H{"email": "alice@example.com", "password": "hunter22"}))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	var tokens domain.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return tokens.AccessToken
}

func imageUpload(t *testing.T, filename string, size int) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("x"), size)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest("POST", "/analyze-image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func assertUploadDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d leftover files, want 0", len(entries))
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	env := setupTestEnv(t, nil)

	t.Run("welcome", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Welcome") {
			t.Errorf("body = %s, want welcome message", w.Body.String())
		}
	})

	t.Run("health", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest("GET", "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["status"] != "healthy" || resp["service"] != "snapfind-backend" {
			t.Errorf("response = %v", resp)
		}
	})
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("register then login", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)
		if token == "" {
			t.Fatal("empty access token")
		}
	})

	t.Run("register rejects duplicates", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		registerAndLogin(t, env)

		w := env.do(t, jsonRequest(t, "POST", "/register", gin.H{"email": "alice@example.com", "password": "other"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("register rejects missing fields", func(t *testing.T) {
		env := setupTestEnv(t, nil)

		w := env.do(t, jsonRequest(t, "POST", "/register", gin.H{"email": "alice@example.com"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("login rejects bad password", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		registerAndLogin(t, env)

		w := env.do(t, jsonRequest(t, "POST", "/login", gin.H{"email": "alice@example.com", "password": "wrong"}))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("refresh issues a new access token", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		registerAndLogin(t, env)

		w := env.do(t, jsonRequest(t, "POST", "/login", gin.H{"email": "alice@example.com", "password": "hunter22"}))
		var tokens domain.TokenPair
		if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
			t.Fatalf("decode tokens: %v", err)
		}

		req := httptest.NewRequest("POST", "/refresh", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
		w = env.do(t, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["access_token"] == "" {
			t.Error("missing access_token in response")
		}
	})

	t.Run("refresh rejects an access token", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)

		req := httptest.NewRequest("POST", "/refresh", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestEnv(t, nil)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/wishlist-protected"},
		{"POST", "/wishlist-protected"},
		{"DELETE", "/wishlist-protected?itemId=x"},
		{"POST", "/analyze-image"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := env.do(t, httptest.NewRequest(p.method, p.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wishlist-protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := env.do(t, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func validWishlistItem() gin.H {
	return gin.H{
		"itemId":     "ebay_110384954921",
		"title":      "Red Sneaker Pro",
		"price":      2499.0,
		"currency":   "INR",
		"platform":   "eBay",
		"imageUrl":   "https://cdn.example.com/sneaker.jpg",
		"sourceLink": "https://shop.example.com/sneaker",
	}
}

func TestWishlistFlow(t *testing.T) {
	env := setupTestEnv(t, nil)
	token := registerAndLogin(t, env)

	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("starts empty", func(t *testing.T) {
		w := env.do(t, authed(httptest.NewRequest("GET", "/wishlist-protected", nil)))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var resp struct {
			Wishlist []domain.WishlistItem `json:"wishlist"`
			Count    int                   `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Count != 0 || resp.Wishlist == nil {
			t.Errorf("count = %d, wishlist = %v; want empty list", resp.Count, resp.Wishlist)
		}
	})

	t.Run("add then list", func(t *testing.T) {
		w := env.do(t, authed(jsonRequest(t, "POST", "/wishlist-protected", validWishlistItem())))
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		w = env.do(t, authed(httptest.NewRequest("GET", "/wishlist-protected", nil)))
		var resp struct {
			Wishlist []domain.WishlistItem `json:"wishlist"`
			Count    int                   `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Count != 1 || resp.Wishlist[0].ItemID != "ebay_110384954921" {
			t.Errorf("unexpected wishlist: %+v", resp)
		}
	})

	t.Run("duplicate add rejected", func(t *testing.T) {
		w := env.do(t, authed(jsonRequest(t, "POST", "/wishlist-protected", validWishlistItem())))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing fields named in the error", func(t *testing.T) {
		item := validWishlistItem()
		delete(item, "price")
		delete(item, "sourceLink")

		w := env.do(t, authed(jsonRequest(t, "POST", "/wishlist-protected", item)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "price") || !strings.Contains(body, "sourceLink") {
			t.Errorf("error body %q does not name the missing fields", body)
		}
	})

	t.Run("relative urls rejected", func(t *testing.T) {
		item := validWishlistItem()
		item["itemId"] = "other"
		item["imageUrl"] = "/images/sneaker.jpg"

		w := env.do(t, authed(jsonRequest(t, "POST", "/wishlist-protected", item)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("delete succeeds", func(t *testing.T) {
		w := env.do(t, authed(httptest.NewRequest("DELETE", "/wishlist-protected?itemId=ebay_110384954921", nil)))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("repeated delete still succeeds", func(t *testing.T) {
		w := env.do(t, authed(httptest.NewRequest("DELETE", "/wishlist-protected?itemId=ebay_110384954921", nil)))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "already removed") {
			t.Errorf("body = %s, want already-removed message", w.Body.String())
		}
	})

	t.Run("delete without itemId rejected", func(t *testing.T) {
		w := env.do(t, authed(httptest.NewRequest("DELETE", "/wishlist-protected", nil)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestAnalyzeImage(t *testing.T) {
	t.Run("returns scored products", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)

		req := imageUpload(t, "photo.jpg", 128)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var resp struct {
			Message      string                 `json:"message"`
			SearchTerms  []string               `json:"search_terms"`
			Products     []domain.ScoredProduct `json:"products"`
			ResultsCount int                    `json:"results_count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ResultsCount != 1 || len(resp.Products) != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if resp.Products[0].Title != "Red Sneaker Pro" {
			t.Errorf("product = %q, want Red Sneaker Pro", resp.Products[0].Title)
		}
		if resp.Products[0].RelevanceScore <= 0 {
			t.Errorf("relevance_score = %v, want > 0", resp.Products[0].RelevanceScore)
		}
		if len(resp.SearchTerms) != 1 || resp.SearchTerms[0] != "Red Sneaker" {
			t.Errorf("search_terms = %v", resp.SearchTerms)
		}

		assertUploadDirEmpty(t, env.uploadDir)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)

		req := httptest.NewRequest("POST", "/analyze-image", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("rejects disallowed extension", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)

		req := imageUpload(t, "payload.exe", 128)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
		assertUploadDirEmpty(t, env.uploadDir)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		env := setupTestEnv(t, nil)
		token := registerAndLogin(t, env)

		req := imageUpload(t, "big.jpg", 6*1024*1024)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}
		assertUploadDirEmpty(t, env.uploadDir)
	})

	t.Run("cleans up the upload when analysis fails", func(t *testing.T) {
		env := setupTestEnv(t, fmt.Errorf("vision unavailable"))
		token := registerAndLogin(t, env)

		req := imageUpload(t, "photo.jpg", 128)
		req.Header.Set("Authorization", "Bearer "+token)
		w := env.do(t, req)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		assertUploadDirEmpty(t, env.uploadDir)
	})
}
