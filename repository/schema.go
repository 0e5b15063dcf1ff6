package repository

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-blog-auth"
)

// OpenSQLite opens a bun DB over sqlite. Use "file::memory:?cache=shared"
// for throwaway databases.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates the users, user_roles and user_tokens tables when
// missing
func CreateSchema(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewCreateTable().
			Model((*auth.User)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewCreateTable().
			Model((*auth.UserRoleAssignment)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewCreateTable().
			Model((*auth.UserToken)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewCreateIndex().
			Model((*auth.UserToken)(nil)).
			Index("idx_user_tokens_user_purpose").
			IfNotExists().
			Column("user_id", "purpose").
			Exec(ctx)
		return err
	})
}
