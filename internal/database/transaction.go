package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs fn as one unit of work. Writes issued through the context
// passed to fn join the same transaction when transactions are enabled.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewTxRunner exposes the database as a TxRunner for fx.
func NewTxRunner(db *MongodbDB) TxRunner {
	return db
}

// WithinTx wraps fn in a multi-document transaction. Standalone servers do not
// support transactions, so without USE_TRANSACTIONS fn runs directly and a
// failure after the first write leaves earlier writes committed.
func (m *MongodbDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.useTransactions {
		return fn(ctx)
	}

	session, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// NoTx runs fn directly. Used by tests and tooling without a replica set.
type NoTx struct{}

func (NoTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
