package resolve

import (
	"context"
	"time"

	"github.com/goliatone/go-entrada"
	"github.com/rs/xid"
)

// syncProfile runs one-time, non-overwriting profile enrichment. It is best
// effort: every failure is logged and swallowed, never surfaced as the
// resolution result.
func (r *Resolver) syncProfile(ctx context.Context, provider string, userRow map[string]any, payload entrada.Payload) {
	if !r.cfg.SyncProfile || r.profiles == nil {
		return
	}

	schema := r.cfg.Storage.Profiles
	if schema.Table == "" || len(schema.Columns) == 0 {
		return
	}

	userUUID := r.cfg.Storage.Users.StringValue(userRow, "uuid")
	if userUUID == "" {
		return
	}

	values := map[string]any{}
	for _, key := range []string{"first_name", "last_name", "photo_url"} {
		if _, ok := schema.Columns[key]; !ok {
			continue
		}
		if val, ok := r.cfg.FieldMapping.Extract(payload, key); ok {
			values[key] = val
		}
	}

	if len(values) == 0 {
		return
	}

	existing, err := r.profiles.FindByUser(ctx, userUUID)
	if err != nil && !isNotFound(err) {
		r.logger.Error("[%s] profile sync failed: %v", provider, err)
		return
	}
	if existing != nil {
		// Profile already exists; the user owns their data now.
		return
	}

	now := time.Now()
	if _, ok := schema.Columns["uuid"]; ok {
		values["uuid"] = xid.New().String()
	}
	values["user_uuid"] = userUUID
	if _, ok := schema.Columns["created_at"]; ok {
		values["created_at"] = now
	}
	if _, ok := schema.Columns["updated_at"]; ok {
		values["updated_at"] = now
	}
	if _, ok := schema.Columns["status"]; ok {
		if def, ok := schema.Default("status"); ok {
			values["status"] = def
		}
	}

	if err := r.profiles.Insert(ctx, values); err != nil {
		r.logger.Error("[%s] profile sync failed: %v", provider, err)
	}
}
