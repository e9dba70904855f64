// Package migrations embeds the SQL schema so cmd/migrate works from any directory.
package migrations

import "embed"

// FS holds the numbered *.up.sql files plus 000_drop_all.sql and 000_consolidated.sql.
//
//go:embed *.sql
var FS embed.FS
