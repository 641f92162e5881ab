// Package catalogsql holds the column layout and row scanning shared by the SQL catalog sources.
package catalogsql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ternarybob/placefinder/internal/models"
)

// Columns are the source columns in select order. "open_houe" is the column's actual name.
var Columns = []string{
	"Name", "Category", "Menu", "Average_Cost", "Review_no",
	"rate", "address", "close_transport", "open_houe",
	"break_time", "dayoff", "contact", "convenience",
	"website", "type",
}

// SelectByType builds the per-category select against table (already qualified and quoted).
// placeholder is the driver's first bind parameter, "$1" or "?".
func SelectByType(table, placeholder string) string {
	quoted := make([]string, len(Columns))
	for i, c := range Columns {
		quoted[i] = QuoteIdent(c)
	}
	return fmt.Sprintf(`SELECT %s FROM %s WHERE "type" = %s`, strings.Join(quoted, ", "), table, placeholder)
}

// QuoteIdent double-quotes an identifier, doubling embedded quotes
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ScanRecords reads every row into catalog records. NULL columns become empty strings.
func ScanRecords(rows *sql.Rows) ([]models.CatalogRecord, error) {
	records := []models.CatalogRecord{}
	for rows.Next() {
		var cols [15]sql.NullString
		dest := make([]interface{}, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}

		records = append(records, models.CatalogRecord{
			Name:           cols[0].String,
			Category:       cols[1].String,
			Menu:           cols[2].String,
			AverageCost:    cols[3].String,
			ReviewNo:       cols[4].String,
			Rate:           cols[5].String,
			Address:        cols[6].String,
			CloseTransport: cols[7].String,
			OpenHour:       cols[8].String,
			BreakTime:      cols[9].String,
			DayOff:         cols[10].String,
			Contact:        cols[11].String,
			Convenience:    cols[12].String,
			Website:        cols[13].String,
			Type:           cols[14].String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	return records, nil
}
