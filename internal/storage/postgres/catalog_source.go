package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/storage/catalogsql"
)

// CatalogSource reads catalog records from the Postgres dataset table
type CatalogSource struct {
	db     *sql.DB
	schema string
	table  string
	logger arbor.ILogger
}

// NewCatalogSource opens a lib/pq connection pool. The connection is verified by Ping.
func NewCatalogSource(config *common.CatalogConfig, logger arbor.ILogger) (interfaces.CatalogSource, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("catalog DSN is required for the postgres driver")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &CatalogSource{
		db:     db,
		schema: config.Schema,
		table:  config.Table,
		logger: logger,
	}, nil
}

func (s *CatalogSource) qualifiedTable() string {
	if s.schema == "" {
		return catalogsql.QuoteIdent(s.table)
	}
	return catalogsql.QuoteIdent(s.schema) + "." + catalogsql.QuoteIdent(s.table)
}

// Ping checks connectivity and that the dataset table exists
func (s *CatalogSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}

	schema := s.schema
	if schema == "" {
		schema = "public"
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`,
		schema, s.table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check catalog table: %w", err)
	}
	if !exists {
		return fmt.Errorf("catalog table %s.%s does not exist", schema, s.table)
	}
	return nil
}

// FetchCategory returns every record whose "type" equals category
func (s *CatalogSource) FetchCategory(ctx context.Context, category models.Category) ([]models.CatalogRecord, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, catalogsql.SelectByType(s.qualifiedTable(), "$1"), category.String())
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

// Close closes the connection pool
func (s *CatalogSource) Close() error {
	return s.db.Close()
}
