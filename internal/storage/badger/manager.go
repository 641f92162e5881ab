package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	kv        interfaces.KeyValueStorage
	manifests interfaces.IndexManifestStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		kv:        NewKVStorage(db, logger),
		manifests: NewManifestStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// IndexManifestStorage returns the manifest storage interface
func (m *Manager) IndexManifestStorage() interfaces.IndexManifestStorage {
	return m.manifests
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
