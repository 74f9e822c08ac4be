// Package pgstore provides the PostgreSQL-backed [ledger.Store]. Each player
// record is one row keyed by identity, with gear, loot history, and bonus
// loot serialised as JSONB. Mutations run inside a transaction with a
// SELECT … FOR UPDATE row lock so that two racing commands against the same
// record are serialised by the database, never interleaved.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ezloot/ezloot/internal/ledger"
)

// Schema is the SQL DDL for the players table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS players (
    identity   TEXT PRIMARY KEY,
    registered BOOLEAN NOT NULL DEFAULT TRUE,
    gear       JSONB NOT NULL DEFAULT '{}',
    loot       JSONB NOT NULL DEFAULT '[]',
    bonus_loot JSONB NOT NULL DEFAULT '{}',
    pity       INTEGER NOT NULL DEFAULT 0 CHECK (pity >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a [ledger.Store] backed by PostgreSQL.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ ledger.Store = (*Store)(nil)

// New creates a Store over the given connection or pool. Call
// [Store.Migrate] once before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL, creating the players table if it does
// not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping verifies connectivity for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("pgstore: ping: %w: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

const recordColumns = `identity, registered, gear, loot, bonus_loot, pity, created_at, updated_at`

// Create implements [ledger.Store.Create].
func (s *Store) Create(ctx context.Context, rec *ledger.PlayerRecord) error {
	gearJSON, lootJSON, bonusJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO players (identity, registered, gear, loot, bonus_loot, pity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = s.db.Exec(ctx, query,
		rec.Identity, rec.Registered, gearJSON, lootJSON, bonusJSON, rec.Pity,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ledger.ErrAlreadyRegistered, rec.Identity)
		}
		return fmt.Errorf("pgstore: create %q: %w: %v", rec.Identity, ledger.ErrStoreUnavailable, err)
	}
	return nil
}

// Get implements [ledger.Store.Get].
func (s *Store) Get(ctx context.Context, identity string) (*ledger.PlayerRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM players WHERE identity = $1`

	rec, err := scanRecord(s.db.QueryRow(ctx, query, identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ledger.ErrNotRegistered, identity)
		}
		return nil, fmt.Errorf("pgstore: get %q: %w: %v", identity, ledger.ErrStoreUnavailable, err)
	}
	return rec, nil
}

// Update implements [ledger.Store.Update]. The row is locked for the
// duration of the transaction; when mutate fails the transaction rolls back
// and the stored record is untouched.
func (s *Store) Update(ctx context.Context, identity string, mutate func(*ledger.PlayerRecord) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	const query = `SELECT ` + recordColumns + ` FROM players WHERE identity = $1 FOR UPDATE`

	rec, err := scanRecord(tx.QueryRow(ctx, query, identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %q", ledger.ErrNotRegistered, identity)
		}
		return fmt.Errorf("pgstore: update %q: %w: %v", identity, ledger.ErrStoreUnavailable, err)
	}

	if err := mutate(rec); err != nil {
		return err
	}
	rec.UpdatedAt = time.Now().UTC()

	gearJSON, lootJSON, bonusJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	const update = `
		UPDATE players SET registered = $2, gear = $3, loot = $4,
		                   bonus_loot = $5, pity = $6, updated_at = $7
		WHERE identity = $1`

	if _, err := tx.Exec(ctx, update,
		rec.Identity, rec.Registered, gearJSON, lootJSON, bonusJSON, rec.Pity, rec.UpdatedAt,
	); err != nil {
		return fmt.Errorf("pgstore: update %q: %w: %v", identity, ledger.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit %q: %w: %v", identity, ledger.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete implements [ledger.Store.Delete].
func (s *Store) Delete(ctx context.Context, identity string) error {
	const query = `DELETE FROM players WHERE identity = $1`

	tag, err := s.db.Exec(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("pgstore: delete %q: %w: %v", identity, ledger.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ledger.ErrNotRegistered, identity)
	}
	return nil
}

// List implements [ledger.Store.List].
func (s *Store) List(ctx context.Context) ([]*ledger.PlayerRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM players ORDER BY identity`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list: %w: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var recs []*ledger.PlayerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: list scan: %w: %v", ledger.ErrStoreUnavailable, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list: %w: %v", ledger.ErrStoreUnavailable, err)
	}
	return recs, nil
}

// ─── Row mapping ─────────────────────────────────────────────────────────────

// row is the subset of pgx.Row / pgx.Rows needed by scanRecord.
type row interface {
	Scan(dest ...any) error
}

// scanRecord reads one players row into a PlayerRecord.
func scanRecord(r row) (*ledger.PlayerRecord, error) {
	var rec ledger.PlayerRecord
	var gearJSON, lootJSON, bonusJSON []byte

	if err := r.Scan(
		&rec.Identity, &rec.Registered, &gearJSON, &lootJSON, &bonusJSON,
		&rec.Pity, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(gearJSON, &rec.Gear); err != nil {
		return nil, fmt.Errorf("unmarshal gear: %w", err)
	}
	if err := json.Unmarshal(lootJSON, &rec.Loot); err != nil {
		return nil, fmt.Errorf("unmarshal loot: %w", err)
	}
	if err := json.Unmarshal(bonusJSON, &rec.BonusLoot); err != nil {
		return nil, fmt.Errorf("unmarshal bonus_loot: %w", err)
	}
	if rec.Loot == nil {
		rec.Loot = []ledger.LootEntry{}
	}
	if rec.BonusLoot == nil {
		rec.BonusLoot = map[string][]string{}
	}
	return &rec, nil
}

// marshalRecord serialises the JSONB columns. Failures here are programming
// errors, not store outages, so they are not wrapped as unavailable.
func marshalRecord(rec *ledger.PlayerRecord) (gear, loot, bonus []byte, err error) {
	if gear, err = json.Marshal(rec.Gear); err != nil {
		return nil, nil, nil, fmt.Errorf("pgstore: marshal gear: %w", err)
	}
	if loot, err = json.Marshal(rec.Loot); err != nil {
		return nil, nil, nil, fmt.Errorf("pgstore: marshal loot: %w", err)
	}
	if bonus, err = json.Marshal(rec.BonusLoot); err != nil {
		return nil, nil, nil, fmt.Errorf("pgstore: marshal bonus_loot: %w", err)
	}
	return gear, loot, bonus, nil
}

// isDuplicateKeyError checks for a PostgreSQL unique violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
