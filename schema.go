package entrada

// EntitySchema maps one canonical entity (users, profiles) onto the storage
// layout an application actually uses: the table name, a canonical-key to
// column map, and default values applied on insert. Canonical keys without a
// configured column fall back to the key itself, so an empty schema behaves
// like a 1:1 mapping.
type EntitySchema struct {
	Table    string            `json:"table" yaml:"table"`
	Columns  map[string]string `json:"columns" yaml:"columns"`
	Defaults map[string]any    `json:"defaults" yaml:"defaults"`
}

// Column returns the storage column for a canonical key.
func (s EntitySchema) Column(key string) string {
	if col, ok := s.Columns[key]; ok && col != "" {
		return col
	}
	return key
}

// HasColumn reports whether the canonical key is part of the configured
// column set. Defaults-only keys count: PHP-era configs declare password
// exclusively under defaults.
func (s EntitySchema) HasColumn(key string) bool {
	if _, ok := s.Columns[key]; ok {
		return true
	}
	_, ok := s.Defaults[key]
	return ok
}

// Default returns the configured default value for a canonical key.
func (s EntitySchema) Default(key string) (any, bool) {
	val, ok := s.Defaults[key]
	return val, ok
}

// ToRow translates a canonical-keyed value map into a column-keyed row ready
// for insertion.
func (s EntitySchema) ToRow(values map[string]any) map[string]any {
	row := make(map[string]any, len(values))
	for key, val := range values {
		row[s.Column(key)] = val
	}
	return row
}

// CanonicalRow translates a column-keyed storage row back into canonical
// keys. Columns outside the mapping pass through unchanged so callers can
// still reach application-specific fields such as roles.
func (s EntitySchema) CanonicalRow(row map[string]any) map[string]any {
	if row == nil {
		return nil
	}
	out := make(map[string]any, len(row))
	for col, val := range row {
		out[col] = val
	}
	for key, col := range s.Columns {
		if val, ok := row[col]; ok {
			out[key] = val
		}
	}
	return out
}

// Value reads a canonical key from a storage row, preferring the mapped
// column and falling back to the canonical key itself.
func (s EntitySchema) Value(row map[string]any, key string) any {
	if row == nil {
		return nil
	}
	if val, ok := row[s.Column(key)]; ok {
		return val
	}
	return row[key]
}

// StringValue is Value rendered as a string for scalar columns.
func (s EntitySchema) StringValue(row map[string]any, key string) string {
	return stringValue(s.Value(row, key))
}

// StorageConfig carries the per-entity schemas the resolver persists
// through.
type StorageConfig struct {
	Users    EntitySchema `json:"users" yaml:"users"`
	Profiles EntitySchema `json:"profiles" yaml:"profiles"`
}

// DefaultStorageConfig matches the migration files shipped with this
// package (data/sql/migrations).
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Users: EntitySchema{
			Table: "users",
			Columns: map[string]string{
				"uuid":              "uuid",
				"username":          "username",
				"email":             "email",
				"password":          "password",
				"status":            "status",
				"created_at":        "created_at",
				"email_verified_at": "email_verified_at",
			},
			Defaults: map[string]any{
				"status":   "active",
				"password": nil,
			},
		},
		Profiles: EntitySchema{
			Table: "profiles",
			Columns: map[string]string{
				"uuid":       "uuid",
				"user_uuid":  "user_uuid",
				"first_name": "first_name",
				"last_name":  "last_name",
				"photo_url":  "photo_url",
				"status":     "status",
				"created_at": "created_at",
				"updated_at": "updated_at",
			},
			Defaults: map[string]any{
				"status": "active",
			},
		},
	}
}
