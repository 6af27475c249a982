package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/snapfind/backend/config"
	httpDelivery "github.com/snapfind/backend/internal/delivery/http"
	"github.com/snapfind/backend/internal/domain"
	"github.com/snapfind/backend/internal/infrastructure/bingvisual"
	"github.com/snapfind/backend/internal/infrastructure/customsearch"
	"github.com/snapfind/backend/internal/infrastructure/ebay"
	"github.com/snapfind/backend/internal/infrastructure/exchangerate"
	"github.com/snapfind/backend/internal/infrastructure/googlevision"
	"github.com/snapfind/backend/internal/infrastructure/postgres"
	"github.com/snapfind/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting SnapFind Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	ctx := context.Background()

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload dir %s: %v", cfg.Server.UploadDir, err)
	}

	// Persistent store for accounts and saved items
	store, err := postgres.NewStore(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()

	userStore := postgres.NewUserStore(store)
	wishlistStore := postgres.NewWishlistStore(store)

	// Vision provider; classification is required, so a client failure is fatal
	visionClient, err := googlevision.NewClient(ctx, cfg.Vision.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to create Vision client: %v", err)
	}
	defer visionClient.Close()

	// Provider adapters, constructed once and injected
	converter := exchangerate.NewClient(cfg.ExchangeRate.APIKey, cfg.ExchangeRate.BaseURL, cfg.ExchangeRate.CacheTTL)
	webSearch := customsearch.NewClient(cfg.CustomSearch.APIKey, cfg.CustomSearch.CX, cfg.Search.MaxResults)
	marketplace := ebay.NewClient(cfg.Ebay.AppID, cfg.Ebay.BaseURL, cfg.Search.MaxResults, converter)

	var visual domain.VisualSearcher
	if cfg.BingVisual.APIKey != "" {
		bingClient := bingvisual.NewClient(cfg.BingVisual.APIKey)
		if cfg.Server.Environment == "development" {
			bingClient.SetDebug(true)
		}
		visual = bingClient
	} else {
		log.Printf("WARNING: Bing Visual Search key not configured - visual search disabled")
	}

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		webSearch.SetDebug(true)
		marketplace.SetDebug(true)
	}

	warnMissingKey("Custom Search", cfg.CustomSearch.APIKey)
	warnMissingKey("eBay", cfg.Ebay.AppID)
	warnMissingKey("exchange rate", cfg.ExchangeRate.APIKey)

	// Usecase layer
	classifier := usecase.NewClassifier(visionClient, cfg.Search.EnableDebugLogging)
	aggregator := usecase.NewAggregationService(classifier, webSearch, marketplace, visual, usecase.AggregationConfig{
		Country:            cfg.Search.Country,
		Currency:           cfg.Search.Currency,
		TopN:               cfg.Search.TopN,
		EnableDebugLogging: cfg.Search.EnableDebugLogging,
	})
	authService := usecase.NewAuthService(userStore, usecase.AuthConfig{
		JWTSecret:  cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})

	log.Printf("Pipeline: country=%s currency=%s top_n=%d debug=%v",
		cfg.Search.Country, cfg.Search.Currency, cfg.Search.TopN, cfg.Search.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(authService, aggregator, wishlistStore, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// warnMissingKey flags unconfigured provider credentials at startup; the
// matching adapter will fail per-request and the pipeline degrades to the
// remaining providers.
func warnMissingKey(name, key string) {
	if key == "" {
		log.Printf("WARNING: %s API key not configured - that provider will return no results", name)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
