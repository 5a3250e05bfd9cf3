package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/finveo/cardfeed/internal/config"
	"github.com/finveo/cardfeed/internal/feed"
	"github.com/finveo/cardfeed/internal/service"
	"github.com/finveo/cardfeed/internal/storage"
	"github.com/spf13/viper"
)

const defaultFeedURL = "https://tools.financeads.net/webservice.php"

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	} else {
		dbPath = config.ExpandPath(dbPath)
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initFeedClient builds the feed client from configuration.
func initFeedClient() *feed.Client {
	feedURL := viper.GetString("feed.url")
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	country := viper.GetString("feed.country")
	if country == "" {
		country = "ES"
	}

	query := url.Values{
		"wf":      {"1"},
		"format":  {"xml"},
		"calc":    {"kreditkarterechner"},
		"country": {country},
	}
	return feed.NewClient(feedURL, query)
}
