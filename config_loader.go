package entrada

import (
	"context"

	gconfig "github.com/goliatone/go-config/config"
)

// ConfigLoaderOption customizes the go-config container, e.g.
// gconfig.WithConfigPath to point at a non-default file.
type ConfigLoaderOption = gconfig.Option[*Config]

// LoadConfig loads the resolver configuration through go-config, layering
// the configured sources over DefaultConfig. The default config file is
// optional; absent sources leave the defaults untouched. Applications that
// already manage their own configuration can skip this entirely and pass a
// Config value straight to the resolver.
func LoadConfig(ctx context.Context, opts ...ConfigLoaderOption) (Config, error) {
	def := DefaultConfig()

	container, err := gconfig.New(&def, opts...)
	if err != nil {
		return Config{}, err
	}

	if err := container.Load(ctx); err != nil {
		return Config{}, err
	}

	return *container.Raw(), nil
}
