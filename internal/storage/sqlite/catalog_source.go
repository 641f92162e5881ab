package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/storage/catalogsql"
)

// CatalogSource reads catalog records from a local SQLite copy of the dataset table
type CatalogSource struct {
	db     *sql.DB
	table  string
	logger arbor.ILogger
}

// NewCatalogSource opens the SQLite file named by config.DSN
func NewCatalogSource(config *common.CatalogConfig, logger arbor.ILogger) (interfaces.CatalogSource, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("catalog DSN is required for the sqlite driver")
	}

	// modernc.org/sqlite registers as "sqlite", not "sqlite3"
	db, err := sql.Open("sqlite", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return NewCatalogSourceFromDB(db, config.Table, logger), nil
}

// NewCatalogSourceFromDB wraps an already open database
func NewCatalogSourceFromDB(db *sql.DB, table string, logger arbor.ILogger) interfaces.CatalogSource {
	return &CatalogSource{
		db:     db,
		table:  table,
		logger: logger,
	}
}

// Ping checks the file is readable and the table exists
func (s *CatalogSource) Ping(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("catalog table %s does not exist", s.table)
	}
	if err != nil {
		return fmt.Errorf("sqlite unreachable: %w", err)
	}
	return nil
}

// FetchCategory returns every record whose "type" equals category, in rowid order
func (s *CatalogSource) FetchCategory(ctx context.Context, category models.Category) ([]models.CatalogRecord, error) {
	start := time.Now()

	query := catalogsql.SelectByType(catalogsql.QuoteIdent(s.table), "?") + " ORDER BY rowid"
	rows, err := s.db.QueryContext(ctx, query, category.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query category %s: %w", category, err)
	}
	defer rows.Close()

	records, err := catalogsql.ScanRecords(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("category", category.String()).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Fetched catalog records")

	return records, nil
}

// Close closes the database
func (s *CatalogSource) Close() error {
	return s.db.Close()
}
