package migrate

import "embed"

// Embedded holds the SQL migrations shipped with the binaries.
//
//go:embed migrations/*.sql
var Embedded embed.FS

const embeddedDir = "migrations"
