// Package migrations holds the goose schema migrations, one directory per SQL dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
