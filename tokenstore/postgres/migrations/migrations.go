// Package migrations embeds the SQL schema migrations for the token
// store, applied with goose at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
