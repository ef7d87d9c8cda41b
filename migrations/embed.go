// Package migrations holds the SQL schema files, embedded so the binary
// carries its own schema wherever it is deployed.
package migrations

import "embed"

// FS contains every .sql file in this directory, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
