package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortWhitelist maps the sort keys a client may send to table columns
type sortWhitelist struct {
	table    string
	columns  map[string]string
	fallback string
}

// productSort is the whitelist of the public catalog
var productSort = sortWhitelist{
	table: "products",
	columns: map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"published_at": "published_at",
		"name":         "name",
		"price":        "price",
	},
	fallback: "published_at",
}

// orderBy resolves the requested key and direction into ORDER BY columns.
// Unknown keys fall back to the default; anything but "asc" sorts descending.
// The table id in the same direction breaks ties so pages stay stable.
func (w sortWhitelist) orderBy(key, dir string) clause.OrderBy {
	column, ok := w.columns[strings.TrimSpace(key)]
	if !ok {
		column = w.fallback
	}
	desc := !strings.EqualFold(strings.TrimSpace(dir), "asc")

	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: w.table, Name: column}, Desc: desc},
		{Column: clause.Column{Table: w.table, Name: "id"}, Desc: desc},
	}}
}
