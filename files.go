package entrada

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the default schema migrations for this package.
// The unique constraints they declare (users.username, social_accounts
// provider+social_id) are required invariants, not suggestions: the
// resolver's check-then-insert paths rely on the store rejecting the losing
// side of a race.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
