package resolve

import (
	"context"

	"github.com/goliatone/go-entrada"
)

// dispatchPostRegistration invokes the configured provisioning hook after
// the registration transaction has committed, so handlers resolving their
// own storage connection observe the new row. Errors escalate: a
// half-provisioned user is a registration failure worth surfacing even
// though the rows persist.
func (r *Resolver) dispatchPostRegistration(ctx context.Context, userUUID string, payload entrada.Payload) error {
	if !r.cfg.PostRegistration.Enabled {
		return nil
	}

	if r.hook == nil {
		return entrada.ErrHandlerUnresolved
	}

	return r.hook.Invoke(ctx, userUUID, payload)
}
