package resolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-entrada"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Resolver orchestrates find-or-create for social identities: lookup by
// (provider, social id), fallback lookup by email, else registration.
type Resolver struct {
	cfg      entrada.Config
	users    UserStore
	links    LinkStore
	profiles ProfileStore
	tx       TransactionManager
	hook     entrada.PostRegistrationHandler
	registry *entrada.HandlerRegistry
	logger   entrada.Logger

	mu        sync.Mutex
	lastError string
}

// Option configures the resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l entrada.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPostRegistrationHandler supplies the provisioning hook directly,
// bypassing named registry resolution.
func WithPostRegistrationHandler(h entrada.PostRegistrationHandler) Option {
	return func(r *Resolver) {
		r.hook = h
	}
}

// WithHandlerRegistry supplies the registry used to resolve the configured
// post-registration handler name.
func WithHandlerRegistry(reg *entrada.HandlerRegistry) Option {
	return func(r *Resolver) {
		r.registry = reg
	}
}

// New builds a Resolver. When the post-registration hook is enabled the
// handler is resolved here, not per call, so a misconfigured name fails at
// startup.
func New(cfg entrada.Config, stores Stores, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		cfg:      cfg,
		users:    stores.Users,
		links:    stores.Links,
		profiles: stores.Profiles,
		tx:       stores.Tx,
		logger:   entrada.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.users == nil || r.links == nil || r.tx == nil {
		return nil, goerrors.New("resolver requires user, link, and transaction stores", goerrors.CategoryValidation)
	}

	if cfg.PostRegistration.Enabled && r.hook == nil {
		if r.registry == nil || cfg.PostRegistration.Handler == "" {
			return nil, entrada.ErrHandlerUnresolved
		}
		handler, err := r.registry.Resolve(cfg.PostRegistration.Handler)
		if err != nil {
			return nil, err
		}
		r.hook = handler
	}

	return r, nil
}

// Resolve turns a normalized provider payload into a canonical local user.
// First success wins: existing link, email match, registration. Every call
// re-reads current state; nothing is cached across calls.
func (r *Resolver) Resolve(ctx context.Context, provider string, payload entrada.Payload) (*entrada.ResolvedUser, error) {
	r.setLastError("")

	if !r.cfg.ProviderEnabled(provider) {
		r.setLastError(fmt.Sprintf("provider %q is not enabled", provider))
		return nil, fmt.Errorf("%w: %s", entrada.ErrProviderNotEnabled, provider)
	}

	socialID := r.cfg.FieldMapping.ExtractString(payload, "uuid")
	if socialID == "" {
		r.setLastError("social profile is missing provider user id")
		return nil, entrada.ErrMissingExternalID
	}

	link, err := r.links.FindByProviderID(ctx, provider, socialID)
	if err != nil && !isNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up social link")
	}
	if link != nil {
		row, err := r.users.FindByUUID(ctx, link.UserUUID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load linked user")
		}
		r.syncProfile(ctx, provider, row, payload)
		return r.formatUser(row), nil
	}

	if email := r.cfg.FieldMapping.ExtractString(payload, "email"); email != "" {
		row, err := r.users.FindByEmail(ctx, email)
		if err != nil && !isNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up user by email")
		}
		if row != nil {
			userUUID := r.cfg.Storage.Users.StringValue(row, "uuid")
			if userUUID == "" {
				r.setLastError("matched user is missing uuid")
				return nil, goerrors.New("matched user is missing uuid", goerrors.CategoryInternal)
			}
			if err := r.links.Upsert(ctx, userUUID, provider, socialID, payload); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to link social account")
			}
			r.syncProfile(ctx, provider, row, payload)
			return r.formatUser(row), nil
		}
	}

	if !r.cfg.AutoRegister {
		r.setLastError("auto-registration is disabled and no matching user found")
		return nil, entrada.ErrAutoRegistrationDisabled
	}

	return r.register(ctx, provider, socialID, payload)
}

// LastError returns a human-readable description of the most recent failure
// for diagnostic surfacing by the calling layer. Empty when the last Resolve
// succeeded.
func (r *Resolver) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

func (r *Resolver) register(ctx context.Context, provider, socialID string, payload entrada.Payload) (*entrada.ResolvedUser, error) {
	schema := r.cfg.Storage.Users

	username, err := AllocateUsername(ctx, payload, r.cfg.FieldMapping, r.users)
	if err != nil {
		r.setLastError("failed to create user account")
		return nil, fmt.Errorf("%w: %v", entrada.ErrRegistrationFailed, err)
	}

	userUUID := r.newUserUUID(payload)
	now := time.Now()

	values := map[string]any{
		"uuid":       userUUID,
		"username":   username,
		"created_at": now,
	}

	if email := r.cfg.FieldMapping.ExtractString(payload, "email"); email != "" {
		values["email"] = email
	} else {
		values["email"] = nil
	}

	if schema.HasColumn("password") {
		def, _ := schema.Default("password")
		values["password"] = def
	}

	if schema.HasColumn("status") {
		if def, ok := schema.Default("status"); ok {
			values["status"] = def
		} else {
			values["status"] = "active"
		}
	}

	if r.cfg.FieldMapping.ExtractBool(payload, "email_verified") && schema.HasColumn("email_verified_at") {
		values["email_verified_at"] = now
	}

	err = r.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.users.InsertTx(ctx, tx, values); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		if err := r.links.UpsertTx(ctx, tx, userUUID, provider, socialID, payload); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not link social account")
		}
		return nil
	})
	if err != nil {
		r.logger.Error("[%s] user creation failed: %v", provider, err)
		r.setLastError("failed to create user account")
		return nil, fmt.Errorf("%w: %v", entrada.ErrRegistrationFailed, err)
	}

	// Re-read to capture storage-generated fields. If the read fails we
	// still have everything we wrote.
	row, err := r.users.FindByUUID(ctx, userUUID)
	if err != nil || row == nil {
		row = values
	}

	r.syncProfile(ctx, provider, row, payload)

	if err := r.dispatchPostRegistration(ctx, userUUID, payload); err != nil {
		r.logger.Error("[%s] user provisioning failed: %v", provider, err)
		r.setLastError("failed to create user account")
		return nil, fmt.Errorf("%w: %v", entrada.ErrRegistrationFailed, err)
	}

	return r.formatUser(row), nil
}

func (r *Resolver) formatUser(row map[string]any) *entrada.ResolvedUser {
	schema := r.cfg.Storage.Users
	return &entrada.ResolvedUser{
		UUID:  schema.StringValue(row, "uuid"),
		Email: schema.StringValue(row, "email"),
		Name:  schema.StringValue(row, "username"),
		Roles: rolesValue(schema.Value(row, "roles")),
	}
}

func (r *Resolver) newUserUUID(payload entrada.Payload) string {
	if r.cfg.DeterministicIDs {
		if email := r.cfg.FieldMapping.ExtractString(payload, "email"); email != "" {
			if id, err := hashid.NewUUID(email); err == nil {
				return id.String()
			}
		}
	}
	return uuid.New().String()
}

func (r *Resolver) setLastError(msg string) {
	r.mu.Lock()
	r.lastError = msg
	r.mu.Unlock()
}

func rolesValue(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	default:
		return []string{}
	}
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
