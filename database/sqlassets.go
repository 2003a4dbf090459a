// Package sqlassets embeds the versioned migration scripts so binaries stay
// self-contained. Filenames carry a zero-padded sequence prefix; the runner
// applies them in lexicographic order and records each name in the matching
// ledger table.
package sqlassets

import "embed"

//go:embed migrations/public/*.sql migrations/tenant/*.sql
var Migrations embed.FS

// Directory names inside Migrations, for wiring a migrate.Source.
const (
	PublicDir = "migrations/public"
	TenantDir = "migrations/tenant"
)
