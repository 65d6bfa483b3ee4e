// Package migrations embeds the goose SQL migrations applied at bootstrap.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
