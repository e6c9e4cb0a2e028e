package entrada

import (
	"context"
	"fmt"
	"sync"
)

// PostRegistrationHandler runs application-specific provisioning exactly once
// after a newly registered user has been committed. The handler may resolve
// its own storage connection; the new user row is visible by the time it
// runs. Any returned error surfaces as a registration failure even though
// the rows persist.
type PostRegistrationHandler interface {
	Invoke(ctx context.Context, userUUID string, payload Payload) error
}

// PostRegistrationFunc adapts a bare function to PostRegistrationHandler.
type PostRegistrationFunc func(ctx context.Context, userUUID string, payload Payload) error

func (f PostRegistrationFunc) Invoke(ctx context.Context, userUUID string, payload Payload) error {
	return f(ctx, userUUID, payload)
}

// HandlerRegistry maps configured handler names to constructors. Handlers
// are resolved once at resolver construction so a misconfigured name fails
// fast instead of on the first registration.
type HandlerRegistry struct {
	mu    sync.RWMutex
	ctors map[string]func() PostRegistrationHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		ctors: map[string]func() PostRegistrationHandler{},
	}
}

// Register associates a handler constructor with a configuration name.
func (r *HandlerRegistry) Register(name string, ctor func() PostRegistrationHandler) {
	if name == "" || ctor == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Resolve constructs the handler registered under name.
func (r *HandlerRegistry) Resolve(name string) (PostRegistrationHandler, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerUnresolved, name)
	}

	handler := ctor()
	if handler == nil {
		return nil, fmt.Errorf("%w: %q constructed nil handler", ErrHandlerUnresolved, name)
	}
	return handler, nil
}
