// Package migrations embeds the versioned PostgreSQL schema applied at startup.
// Files follow the golang-migrate naming scheme {version}_{title}.{up|down}.sql.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
