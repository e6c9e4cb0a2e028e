package resolve

import (
	"context"

	"github.com/goliatone/go-entrada"
	goerrors "github.com/goliatone/go-errors"
)

// AccountManager exposes linked-account management for an authenticated
// user: listing connections and unlinking them.
type AccountManager struct {
	users  UserStore
	links  LinkStore
	schema entrada.EntitySchema
	logger entrada.Logger
}

// NewAccountManager builds an AccountManager. The schema is the users
// entity schema, needed to read the password column when guarding unlinks.
func NewAccountManager(users UserStore, links LinkStore, schema entrada.EntitySchema, logger entrada.Logger) *AccountManager {
	if logger == nil {
		logger = entrada.DefaultLogger()
	}
	return &AccountManager{
		users:  users,
		links:  links,
		schema: schema,
		logger: logger,
	}
}

// List returns the social accounts linked to the user.
func (m *AccountManager) List(ctx context.Context, userUUID string) ([]*SocialAccount, error) {
	accounts, err := m.links.FindByUser(ctx, userUUID)
	if err != nil && !isNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to list social accounts")
	}
	if accounts == nil {
		accounts = []*SocialAccount{}
	}
	return accounts, nil
}

// Unlink removes one linked social account. The link must be owned by the
// user, and a password-less user cannot unlink their only remaining
// authentication method.
func (m *AccountManager) Unlink(ctx context.Context, userUUID, linkUUID string) error {
	accounts, err := m.links.FindByUser(ctx, userUUID)
	if err != nil && !isNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load social accounts")
	}

	var target *SocialAccount
	for _, account := range accounts {
		if account.UUID == linkUUID {
			target = account
			break
		}
	}
	if target == nil {
		return entrada.ErrLinkNotFound
	}

	if len(accounts) == 1 {
		row, err := m.users.FindByUUID(ctx, userUUID)
		if err != nil && !isNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load user")
		}
		if row != nil {
			// Drivers may hand the hash back as []byte; only a nil or
			// empty value means the account has no password.
			pw := m.schema.Value(row, "password")
			if pw == nil || pw == "" {
				return entrada.ErrLastAuthMethod
			}
		}
	}

	if err := m.links.Delete(ctx, target.UUID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to unlink social account")
	}

	m.logger.Debug("unlinked %s account %s for user %s", target.Provider, target.UUID, userUUID)
	return nil
}
