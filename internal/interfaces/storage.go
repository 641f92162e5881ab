package interfaces

// StorageManager owns the local embedded store
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	IndexManifestStorage() IndexManifestStorage
	Close() error
}
