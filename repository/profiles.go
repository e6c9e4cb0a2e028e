package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-entrada"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Profiles implements resolve.ProfileStore on Bun, schema-driven like the
// user store.
type Profiles struct {
	db     *bun.DB
	schema entrada.EntitySchema
}

// NewProfiles creates the schema-driven profile store.
func NewProfiles(db *bun.DB, schema entrada.EntitySchema) *Profiles {
	return &Profiles{db: db, schema: schema}
}

// FindByUser implements resolve.ProfileStore.
func (s *Profiles) FindByUser(ctx context.Context, userUUID string) (map[string]any, error) {
	row := map[string]any{}
	err := s.db.NewSelect().
		Model(&row).
		TableExpr("?", bun.Ident(s.schema.Table)).
		Where("? = ?", bun.Ident(s.schema.Column("user_uuid")), userUUID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_uuid": userUUID,
				})
		}
		return nil, err
	}
	return s.schema.CanonicalRow(row), nil
}

// Insert implements resolve.ProfileStore.
func (s *Profiles) Insert(ctx context.Context, values map[string]any) error {
	row := s.schema.ToRow(values)
	_, err := s.db.NewInsert().
		Model(&row).
		TableExpr("?", bun.Ident(s.schema.Table)).
		Exec(ctx)
	return err
}
