// Package migrations embeds the schema for organizations, members, and the
// visibility audit trail. The migrate command and testutil.NewTestDB both
// read from FS, so the binary needs no migration files on disk.
package migrations

import "embed"

// FS holds every *.sql migration, named NNNNNN_name.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS
