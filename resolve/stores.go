package resolve

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-entrada"
	"github.com/uptrace/bun"
)

// SocialAccount is one (provider, social id) -> user edge. At most one row
// exists per (user, provider, social id) triple; re-authentication updates
// the snapshot in place.
type SocialAccount struct {
	UUID        string          `json:"uuid"`
	UserUUID    string          `json:"user_uuid"`
	Provider    string          `json:"provider"`
	SocialID    string          `json:"social_id"`
	ProfileData entrada.Payload `json:"profile_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// UserStore reads and writes user rows through the configured schema.
// Rows travel as canonical-keyed maps; the store owns the translation to
// whatever table and column names the application configured.
type UserStore interface {
	// FindByUUID returns the canonical row for the external unique id.
	FindByUUID(ctx context.Context, uuid string) (map[string]any, error)
	// FindByEmail soft-matches a user by the mapped email column.
	FindByEmail(ctx context.Context, email string) (map[string]any, error)
	// UsernameTaken reports whether the mapped username column holds value.
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// InsertTx writes a canonical-keyed row inside the given transaction.
	InsertTx(ctx context.Context, tx bun.IDB, values map[string]any) error
}

// LinkStore manages the provider<->user linkage rows.
type LinkStore interface {
	FindByProviderID(ctx context.Context, provider, socialID string) (*SocialAccount, error)
	FindByUser(ctx context.Context, userUUID string) ([]*SocialAccount, error)
	// Upsert creates or refreshes the link for the exact
	// (user, provider, social id) triple. Idempotent: two identical calls
	// leave one row whose snapshot reflects the latest call.
	Upsert(ctx context.Context, userUUID, provider, socialID string, snapshot entrada.Payload) error
	UpsertTx(ctx context.Context, tx bun.IDB, userUUID, provider, socialID string, snapshot entrada.Payload) error
	Delete(ctx context.Context, uuid string) error
}

// ProfileStore manages the optional enrichment rows.
type ProfileStore interface {
	FindByUser(ctx context.Context, userUUID string) (map[string]any, error)
	Insert(ctx context.Context, values map[string]any) error
}

// TransactionManager scopes a unit of work to one atomic transaction that
// rolls back fully when the function returns an error.
type TransactionManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// Stores bundles the persistence dependencies of the resolver.
type Stores struct {
	Users    UserStore
	Links    LinkStore
	Profiles ProfileStore
	Tx       TransactionManager
}
