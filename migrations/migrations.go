// Package migrations embeds the SQL schema migrations for each driver.
package migrations

import "embed"

// FS holds sqlite/*.sql and postgres/*.sql, named NNN_name.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
