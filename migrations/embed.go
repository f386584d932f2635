// Package migrations embeds the goose SQL migrations so the binaries and
// tests apply the same schema regardless of working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
