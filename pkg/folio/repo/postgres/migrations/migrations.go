// Package migrations embeds the PostgreSQL schema for the section table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
