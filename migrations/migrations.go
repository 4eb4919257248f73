// Package migrations embeds the Postgres schema for the inventory catalog.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
