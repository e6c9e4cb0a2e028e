package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-entrada"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Users implements resolve.UserStore on Bun. Queries are built dynamically
// from the configured EntitySchema rather than a fixed model, so the store
// works against whatever users table the host application already has.
type Users struct {
	db     *bun.DB
	schema entrada.EntitySchema
}

// NewUsers creates the schema-driven user store.
func NewUsers(db *bun.DB, schema entrada.EntitySchema) *Users {
	return &Users{db: db, schema: schema}
}

// FindByUUID implements resolve.UserStore.
func (s *Users) FindByUUID(ctx context.Context, uuid string) (map[string]any, error) {
	return s.findByColumn(ctx, "uuid", uuid)
}

// FindByEmail implements resolve.UserStore.
func (s *Users) FindByEmail(ctx context.Context, email string) (map[string]any, error) {
	return s.findByColumn(ctx, "email", email)
}

// UsernameTaken implements resolve.UserStore.
func (s *Users) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.db.NewSelect().
		TableExpr("?", bun.Ident(s.schema.Table)).
		Where("? = ?", bun.Ident(s.schema.Column("username")), username).
		Exists(ctx)
}

// Insert writes a canonical-keyed row outside any transaction.
func (s *Users) Insert(ctx context.Context, values map[string]any) error {
	return s.InsertTx(ctx, s.db, values)
}

// InsertTx implements resolve.UserStore.
func (s *Users) InsertTx(ctx context.Context, tx bun.IDB, values map[string]any) error {
	row := s.schema.ToRow(values)
	_, err := tx.NewInsert().
		Model(&row).
		TableExpr("?", bun.Ident(s.schema.Table)).
		Exec(ctx)
	return err
}

func (s *Users) findByColumn(ctx context.Context, key string, value any) (map[string]any, error) {
	row := map[string]any{}
	err := s.db.NewSelect().
		Model(&row).
		TableExpr("?", bun.Ident(s.schema.Table)).
		Where("? = ?", bun.Ident(s.schema.Column(key)), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					key: value,
				})
		}
		return nil, err
	}
	return s.schema.CanonicalRow(row), nil
}
