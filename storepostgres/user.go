package storepostgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/notepay/notepay/user"
)

// GetUser reads the user record for the address.
// Returns user.ErrNotFound when no record exists.
func (db DataBase) GetUser(ctx context.Context, address string) (user.User, error) {
	var u user.User
	err := db.inner.QueryRowContext(
		ctx,
		`SELECT user_id, display_name, creation_timestamp FROM users WHERE user_id = $1`,
		address,
	).Scan(&u.Address, &u.DisplayName, &u.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return user.User{}, errors.Join(user.ErrNotFound, err)
	case err != nil:
		return user.User{}, errors.Join(ErrSelectFailed, err)
	}
	return u, nil
}

// UpsertUser creates or refreshes the user record for the address.
func (db DataBase) UpsertUser(ctx context.Context, address, displayName string) (user.User, error) {
	if displayName == "" {
		displayName = user.DefaultDisplayName(address)
	}
	var u user.User
	err := db.inner.QueryRowContext(
		ctx,
		`INSERT INTO users (user_id, display_name, creation_timestamp)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name
			RETURNING user_id, display_name, creation_timestamp`,
		address, displayName, time.Now().UTC(),
	).Scan(&u.Address, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return user.User{}, errors.Join(ErrInsertFailed, err)
	}
	return u, nil
}
