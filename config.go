package entrada

import "github.com/goliatone/go-errors"

// Config holds the resolution options. It is passed by value into the
// resolver constructor; there is no ambient global state, so tests and
// multi-tenant apps can run different configurations side by side.
type Config struct {
	// AutoRegister creates a new local user when no link or email match
	// exists.
	AutoRegister bool `json:"auto_register" yaml:"auto_register"`
	// LinkAccounts is informational: the email-match path always links,
	// mirroring the behavior applications relied on before this flag
	// existed. It is carried so configuration files round-trip.
	LinkAccounts bool `json:"link_accounts" yaml:"link_accounts"`
	// SyncProfile enables one-time profile enrichment from provider data.
	SyncProfile bool `json:"sync_profile" yaml:"sync_profile"`
	// EnabledProviders lists the providers the resolver accepts. An empty
	// list rejects everything; enablement is an explicit opt-in.
	EnabledProviders []string `json:"enabled_providers" yaml:"enabled_providers"`
	// DeterministicIDs derives the new user uuid from the payload email via
	// hashid instead of random generation. Useful for idempotent seeding.
	DeterministicIDs bool `json:"deterministic_ids" yaml:"deterministic_ids"`

	FieldMapping     FieldMap               `json:"field_mapping" yaml:"field_mapping"`
	Storage          StorageConfig          `json:"storage" yaml:"storage"`
	PostRegistration PostRegistrationConfig `json:"post_registration" yaml:"post_registration"`
}

// PostRegistrationConfig configures the optional post-commit provisioning
// hook. Handler names a constructible unit in a HandlerRegistry; callers can
// instead supply a handler value directly through a resolver option.
type PostRegistrationConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Handler string `json:"handler" yaml:"handler"`
}

// DefaultConfig mirrors the stock provider setup: auto-registration and
// profile sync on, hook off.
func DefaultConfig() Config {
	return Config{
		AutoRegister:     true,
		LinkAccounts:     true,
		SyncProfile:      true,
		EnabledProviders: []string{"google", "facebook", "github", "apple"},
		FieldMapping:     DefaultFieldMap(),
		Storage:          DefaultStorageConfig(),
	}
}

// Validate implements the go-config contract.
func (c Config) Validate() error {
	if c.Storage.Users.Table == "" {
		return errors.New("storage.users.table is required", errors.CategoryValidation)
	}
	return nil
}

// ProviderEnabled reports whether the named provider is configured.
func (c Config) ProviderEnabled(name string) bool {
	for _, p := range c.EnabledProviders {
		if p == name {
			return true
		}
	}
	return false
}
