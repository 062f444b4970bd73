// Package migrations embeds the SQL migration files applied by goose at
// startup, from the migrate command and in integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
