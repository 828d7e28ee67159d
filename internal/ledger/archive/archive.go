// Package archive implements an optional secondary transaction index: a
// SQL-backed copy of committed transactions, queried by account through
// Store.ForAccount and kept alongside the primary append-only txlog.Log
// (the source of truth, which get_transactions reads). Grounded on
// the teacher's internal/storage/relationaldb/postgres repository layer,
// generalized from XRPL's account_transactions schema to the ledger's
// flat (token, account, index) shape and from database/sql + lib/pq to
// also cover modernc.org/sqlite for single-node deployments.
package archive

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/icrc151/ledgerd/internal/ledger/txlog"
)

// Row is one archived transaction, denormalized for querying by account.
type Row struct {
	Index     uint64
	Op        string
	Token     [32]byte
	From      [32]byte
	To        [32]byte
	Spender   [32]byte
	Amount    string
	Fee       string
	Memo      []byte
	Timestamp uint64
}

// Store archives committed transactions and serves account-scoped history
// queries against the secondary index. Opened over a *sql.DB so the same
// implementation serves both the postgres and sqlite drivers; only the
// placeholder syntax and schema DDL differ between them.
type Store struct {
	db        *sql.DB
	driver    string
	placehold func(n int) string
}

// Open connects to the archive database named by driver ("postgres" or
// "sqlite") and dsn, and ensures its schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var sqlDriver string
	var placehold func(int) string
	switch driver {
	case "postgres":
		sqlDriver = "postgres"
		placehold = func(n int) string { return fmt.Sprintf("$%d", n) }
	case "sqlite":
		sqlDriver = "sqlite"
		placehold = func(int) string { return "?" }
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, placehold: placehold}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS archived_transactions (
	tx_index    BIGINT PRIMARY KEY,
	op          TEXT NOT NULL,
	token_id    BYTEA NOT NULL,
	from_key    BYTEA NOT NULL,
	to_key      BYTEA NOT NULL,
	spender_key BYTEA NOT NULL,
	amount      TEXT NOT NULL,
	fee         TEXT NOT NULL,
	memo        BYTEA,
	timestamp_ns BIGINT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("archive: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e into the archive, ignoring the row if tx_index is
// already present (the archive is best-effort and idempotent: a retried
// Record call after a transient failure must not duplicate the row).
func (s *Store) Record(ctx context.Context, e txlog.Entry) error {
	r := e.Record
	onConflict := "ON CONFLICT (tx_index) DO NOTHING"
	if s.driver == "sqlite" {
		onConflict = "ON CONFLICT(tx_index) DO NOTHING"
	}
	q := fmt.Sprintf(`
INSERT INTO archived_transactions
	(tx_index, op, token_id, from_key, to_key, spender_key, amount, fee, memo, timestamp_ns)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
%s`,
		s.placehold(1), s.placehold(2), s.placehold(3), s.placehold(4), s.placehold(5),
		s.placehold(6), s.placehold(7), s.placehold(8), s.placehold(9), s.placehold(10),
		onConflict)

	_, err := s.db.ExecContext(ctx, q,
		e.Index, r.Op.String(), r.TokenID[:], r.FromKey[:], r.ToKey[:], r.SpenderKey[:],
		r.Amount.String(), r.Fee.String(), e.Memo, r.TimestampNs)
	if err != nil {
		return fmt.Errorf("archive: record tx %d: %w", e.Index, err)
	}
	return nil
}

// ForAccount returns archived transactions touching accountKey (as
// sender, recipient or spender), newest first, capped at limit.
func (s *Store) ForAccount(ctx context.Context, accountKey [32]byte, limit int) ([]Row, error) {
	q := fmt.Sprintf(`
SELECT tx_index, op, token_id, from_key, to_key, spender_key, amount, fee, memo, timestamp_ns
FROM archived_transactions
WHERE from_key = %s OR to_key = %s OR spender_key = %s
ORDER BY tx_index DESC
LIMIT %s`, s.placehold(1), s.placehold(2), s.placehold(3), s.placehold(4))

	rows, err := s.db.QueryContext(ctx, q, accountKey[:], accountKey[:], accountKey[:], limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query account history: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var token, from, to, spender []byte
		if err := rows.Scan(&row.Index, &row.Op, &token, &from, &to, &spender,
			&row.Amount, &row.Fee, &row.Memo, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("archive: scan row: %w", err)
		}
		copy(row.Token[:], token)
		copy(row.From[:], from)
		copy(row.To[:], to)
		copy(row.Spender[:], spender)
		out = append(out, row)
	}
	return out, rows.Err()
}
