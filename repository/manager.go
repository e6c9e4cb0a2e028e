package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-entrada"
	"github.com/goliatone/go-entrada/resolve"
	"github.com/uptrace/bun"
)

// Manager bundles the Bun-backed stores and the transaction scope the
// resolver runs registration in.
type Manager struct {
	db       *bun.DB
	users    *Users
	links    *SocialAccounts
	profiles *Profiles
}

// NewManager wires the stores against one database using the configured
// storage schemas.
func NewManager(db *bun.DB, storage entrada.StorageConfig) *Manager {
	return &Manager{
		db:       db,
		users:    NewUsers(db, storage.Users),
		links:    NewSocialAccounts(db),
		profiles: NewProfiles(db, storage.Profiles),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.links == nil {
		return errors.New("repository links should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx implements resolve.TransactionManager.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Users returns the user store.
func (m *Manager) Users() *Users {
	return m.users
}

// Links returns the social account link store.
func (m *Manager) Links() *SocialAccounts {
	return m.links
}

// Profiles returns the profile store.
func (m *Manager) Profiles() *Profiles {
	return m.profiles
}

// Stores exposes the bundle the resolver consumes.
func (m *Manager) Stores() resolve.Stores {
	return resolve.Stores{
		Users:    m.users,
		Links:    m.links,
		Profiles: m.profiles,
		Tx:       m,
	}
}
