package migrations

import "embed"

// Files exposes embedded SQL migration files, one dialect per subdirectory,
// ordered lexicographically within each.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS
