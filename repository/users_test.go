package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-entrada"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteCreateMembers = `CREATE TABLE members (
    member_id TEXT NOT NULL PRIMARY KEY,
    handle TEXT NOT NULL,
    email_address TEXT,
    password TEXT NULL,
    status TEXT,
    created_at TIMESTAMP,
    email_verified_at TIMESTAMP NULL,
    CONSTRAINT uq_members_handle UNIQUE (handle)
);`

func memberSchema() entrada.EntitySchema {
	return entrada.EntitySchema{
		Table: "members",
		Columns: map[string]string{
			"uuid":              "member_id",
			"username":          "handle",
			"email":             "email_address",
			"password":          "password",
			"status":            "status",
			"created_at":        "created_at",
			"email_verified_at": "email_verified_at",
		},
		Defaults: map[string]any{
			"status": "active",
		},
	}
}

func newTestDB(t *testing.T, ddl ...string) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	for _, stmt := range ddl {
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	return bunDB
}

func TestUsersInsertAndFind(t *testing.T) {
	db := newTestDB(t, sqliteCreateMembers)
	users := NewUsers(db, memberSchema())
	ctx := context.Background()

	err := users.Insert(ctx, map[string]any{
		"uuid":       "m-1",
		"username":   "jane",
		"email":      "jane@example.com",
		"status":     "active",
		"created_at": time.Now(),
	})
	require.NoError(t, err)

	row, err := users.FindByUUID(ctx, "m-1")
	require.NoError(t, err)
	// Rows come back keyed both ways: raw columns and canonical keys.
	assert.Equal(t, "m-1", row["uuid"])
	assert.Equal(t, "jane", row["username"])
	assert.Equal(t, "jane@example.com", row["email"])
	assert.Equal(t, "jane", row["handle"])

	row, err = users.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "m-1", row["uuid"])
}

func TestUsersFindNotFound(t *testing.T) {
	db := newTestDB(t, sqliteCreateMembers)
	users := NewUsers(db, memberSchema())

	_, err := users.FindByUUID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = users.FindByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersUsernameTaken(t *testing.T) {
	db := newTestDB(t, sqliteCreateMembers)
	users := NewUsers(db, memberSchema())
	ctx := context.Background()

	require.NoError(t, users.Insert(ctx, map[string]any{
		"uuid":     "m-1",
		"username": "jane",
	}))

	taken, err := users.UsernameTaken(ctx, "jane")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = users.UsernameTaken(ctx, "jdoe")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUsersUniqueUsernameEnforced(t *testing.T) {
	db := newTestDB(t, sqliteCreateMembers)
	users := NewUsers(db, memberSchema())
	ctx := context.Background()

	require.NoError(t, users.Insert(ctx, map[string]any{"uuid": "m-1", "username": "jane"}))

	err := users.Insert(ctx, map[string]any{"uuid": "m-2", "username": "jane"})
	require.Error(t, err)
}
