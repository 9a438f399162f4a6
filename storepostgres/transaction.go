package storepostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/notepay/notepay/transaction"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const selectColumns = `transaction_id, sender_address, receiver_address, amount, currency,
	timestamp, status, notes, file_storage_url, shared_with`

// Partial update keys are whitelisted so a caller cannot patch arbitrary
// columns through the map based contract.
var updatableColumns = map[string]struct{}{
	"notes":            {},
	"status":           {},
	"shared_with":      {},
	"file_storage_url": {},
}

// CreateTransaction persists the transaction and returns the stored record.
// The record identifier is assigned by the store on insert.
func (db DataBase) CreateTransaction(ctx context.Context, trx transaction.Transaction) (transaction.Transaction, error) {
	id := trx.ID
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	shared := trx.SharedWith
	if shared == nil {
		shared = []string{}
	}
	row := db.inner.QueryRowContext(
		ctx,
		`INSERT INTO transactions (
			transaction_id, sender_address, receiver_address, amount, currency,
			timestamp, status, notes, file_storage_url, shared_with
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+selectColumns,
		id, trx.Sender, trx.Receiver, trx.Amount.String(), trx.Currency,
		trx.CreatedAt, string(trx.Status), trx.Notes, trx.FileURL, pq.Array(shared))
	stored, err := scanTransaction(row)
	if err != nil {
		return transaction.Transaction{}, errors.Join(ErrInsertFailed, err)
	}
	return stored, nil
}

// TransactionsFor reads all transactions where the address is the sender,
// the receiver or a member of the shared with set, newest first.
func (db DataBase) TransactionsFor(ctx context.Context, address string) ([]transaction.Transaction, error) {
	rows, err := db.inner.QueryContext(
		ctx,
		`SELECT `+selectColumns+` FROM transactions
			WHERE sender_address = $1 OR receiver_address = $1 OR $1 = ANY(shared_with)
			ORDER BY timestamp DESC`,
		address)
	if err != nil {
		return nil, errors.Join(ErrSelectFailed, err)
	}
	defer rows.Close()

	var trxs []transaction.Transaction
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		trxs = append(trxs, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSelectFailed, err)
	}
	return trxs, nil
}

// UpdateTransaction applies the partial snake case field updates to the
// record with the given identifier and returns the stored record.
func (db DataBase) UpdateTransaction(ctx context.Context, id string, fields map[string]any) (transaction.Transaction, error) {
	set := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	args = append(args, id)
	for column, value := range fields {
		if _, ok := updatableColumns[column]; !ok {
			return transaction.Transaction{}, errors.Join(ErrUpdateFailed, fmt.Errorf("column [ %s ] is not updatable", column))
		}
		if list, ok := value.([]string); ok {
			value = pq.Array(list)
		}
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(set) == 0 {
		return transaction.Transaction{}, errors.Join(ErrUpdateFailed, errors.New("no fields to update"))
	}

	query := fmt.Sprintf(
		`UPDATE transactions SET %s WHERE transaction_id = $1 RETURNING %s`,
		strings.Join(set, ", "), selectColumns)
	row := db.inner.QueryRowContext(ctx, query, args...)
	trx, err := scanTransaction(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return transaction.Transaction{}, errors.Join(ErrTransactionNotFound, err)
	case err != nil:
		return transaction.Transaction{}, errors.Join(ErrUpdateFailed, err)
	}
	return trx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (transaction.Transaction, error) {
	var (
		trx    transaction.Transaction
		amount string
		status string
		shared pq.StringArray
	)
	err := row.Scan(
		&trx.ID, &trx.Sender, &trx.Receiver, &amount, &trx.Currency,
		&trx.CreatedAt, &status, &trx.Notes, &trx.FileURL, &shared)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.Transaction{}, err
		}
		return transaction.Transaction{}, errors.Join(ErrScanFailed, err)
	}
	trx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return transaction.Transaction{}, errors.Join(ErrScanFailed, err)
	}
	trx.Status = transaction.Status(status)
	trx.SharedWith = []string(shared)
	if trx.SharedWith == nil {
		trx.SharedWith = []string{}
	}
	return trx, nil
}
