package appfs

import "embed"

// FS embeds the SQL migrations so binaries migrate without shipping files.
//
//go:embed migrations/*.sql
var FS embed.FS
