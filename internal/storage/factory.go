package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/storage/badger"
	"github.com/ternarybob/placefinder/internal/storage/postgres"
	"github.com/ternarybob/placefinder/internal/storage/sqlite"
)

// NewStorageManager opens the embedded Badger store
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	return badger.NewManager(logger, &config.Storage.Badger)
}

// NewCatalogSource opens the catalog source selected by config.Catalog.Driver
func NewCatalogSource(logger arbor.ILogger, config *common.Config) (interfaces.CatalogSource, error) {
	switch config.Catalog.Driver {
	case "", "postgres":
		return postgres.NewCatalogSource(&config.Catalog, logger)
	case "sqlite":
		return sqlite.NewCatalogSource(&config.Catalog, logger)
	default:
		return nil, fmt.Errorf("unsupported catalog driver: %s (expected postgres or sqlite)", config.Catalog.Driver)
	}
}
