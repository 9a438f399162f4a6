package storepostgres

import (
	"context"
	"errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id            TEXT PRIMARY KEY,
	display_name       TEXT NOT NULL,
	creation_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id   TEXT PRIMARY KEY,
	sender_address   TEXT NOT NULL,
	receiver_address TEXT NOT NULL,
	amount           NUMERIC NOT NULL CHECK (amount >= 0),
	currency         TEXT NOT NULL,
	timestamp        TIMESTAMPTZ NOT NULL DEFAULT now(),
	status           TEXT NOT NULL DEFAULT 'pending',
	notes            TEXT NOT NULL DEFAULT '',
	file_storage_url TEXT NOT NULL DEFAULT '',
	shared_with      TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_address);
CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver_address);
CREATE INDEX IF NOT EXISTS transactions_shared_idx ON transactions USING GIN (shared_with);
`

// RunMigration creates the schema if it does not exist yet.
func (db DataBase) RunMigration(ctx context.Context) error {
	if _, err := db.inner.ExecContext(ctx, schema); err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}
