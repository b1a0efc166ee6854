// Package migrations embeds the SQL schema applied by "mrt-ingester migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
