package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

const entryColumns = `id, amount, kind, category, occurred_at, note, balance, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// entryRepository implements domain.EntryRepository over a querier
type entryRepository struct {
	q       querier
	dialect Dialect
	now     func() time.Time
}

// Store implements domain.EntryStore
type Store struct {
	entryRepository
	db *sql.DB
}

// New creates a Store on an open database whose schema is already migrated
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		entryRepository: entryRepository{q: db, dialect: dialect, now: time.Now},
		db:              db,
	}
}

// WithinTx runs fn inside one database transaction. On postgres the
// transaction first takes the ledger advisory lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.EntryRepository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if stmt := s.dialect.lockStatement(); stmt != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(stmt), ledgerLockID); err != nil {
			return domain.NewStorageError("take ledger advisory lock", err)
		}
	}

	repo := &entryRepository{q: tx, dialect: s.dialect, now: s.now}
	if err := fn(ctx, repo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

// SaveBatch outside a caller's transaction still applies all or nothing
func (s *Store) SaveBatch(ctx context.Context, entries []*domain.Entry) error {
	return s.WithinTx(ctx, func(ctx context.Context, repo domain.EntryRepository) error {
		return repo.SaveBatch(ctx, entries)
	})
}

// Save inserts an entry with a fresh UUIDv7 when its ID is nil and otherwise
// overwrites the stored row.
func (r *entryRepository) Save(ctx context.Context, entry *domain.Entry) (uuid.UUID, error) {
	now := r.now().UTC()

	if entry.ID != uuid.Nil {
		query := `
			UPDATE entries
			SET amount = ?, kind = ?, category = ?, occurred_at = ?, note = ?, balance = ?, updated_at = ?
			WHERE id = ?
		`
		res, err := r.q.ExecContext(ctx, r.dialect.Rebind(query),
			entry.Amount.String(),
			entry.Kind.String(),
			string(entry.Category),
			r.dialect.timeArg(entry.OccurredAt),
			entry.Note,
			entry.Balance.String(),
			r.dialect.timeArg(now),
			entry.ID,
		)
		if err != nil {
			return uuid.Nil, domain.NewStorageError("update entry", err)
		}
		if err := expectRow(res, entry.ID, "update entry"); err != nil {
			return uuid.Nil, err
		}
		entry.UpdatedAt = now
		return entry.ID, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, domain.NewStorageError("generate entry id", err)
	}

	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.q.ExecContext(ctx, r.dialect.Rebind(query),
		id,
		entry.Amount.String(),
		entry.Kind.String(),
		string(entry.Category),
		r.dialect.timeArg(entry.OccurredAt),
		entry.Note,
		entry.Balance.String(),
		r.dialect.timeArg(now),
		r.dialect.timeArg(now),
	)
	if err != nil {
		return uuid.Nil, domain.NewStorageError("insert entry", err)
	}

	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return id, nil
}

// Get retrieves an entry by its ID
func (r *entryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = ?`

	e, err := scanEntry(r.q.QueryRowContext(ctx, r.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(id)
		}
		return nil, domain.NewStorageError("get entry", err)
	}
	return e, nil
}

// Delete removes an entry by its ID
func (r *entryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM entries WHERE id = ?`), id)
	if err != nil {
		return domain.NewStorageError("delete entry", err)
	}
	return expectRow(res, id, "delete entry")
}

// FindInRange returns entries with start <= occurred_at < end in ledger order
func (r *entryRepository) FindInRange(ctx context.Context, start, end time.Time, order domain.SortOrder) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY ` + orderBy(order)

	entries, err := r.query(ctx, query, r.dialect.timeArg(start), r.dialect.timeArg(end))
	if err != nil {
		return nil, domain.NewStorageError("find entries in range", err)
	}
	return entries, nil
}

// FindAll returns every entry in ledger order; limit 0 means unbounded
func (r *entryRepository) FindAll(ctx context.Context, order domain.SortOrder, limit int) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries ORDER BY ` + orderBy(order)
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	entries, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("find entries", err)
	}
	return entries, nil
}

// SaveBatch writes the computed balance of each entry
func (r *entryRepository) SaveBatch(ctx context.Context, entries []*domain.Entry) error {
	query := r.dialect.Rebind(`UPDATE entries SET balance = ?, updated_at = ? WHERE id = ?`)
	now := r.now().UTC()

	for _, e := range entries {
		res, err := r.q.ExecContext(ctx, query, e.Balance.String(), r.dialect.timeArg(now), e.ID)
		if err != nil {
			return domain.NewStorageError("save entry batch", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return domain.NewStorageError("save entry batch", err)
		}
		if n == 0 {
			return domain.NewStorageError("save entry batch", fmt.Errorf("entry %s does not exist", e.ID))
		}
	}
	return nil
}

// List returns a page of entries, most recent first
func (r *entryRepository) List(ctx context.Context, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		ORDER BY ` + orderBy(domain.SortDescending) + `
		LIMIT ? OFFSET ?`

	entries, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, domain.NewStorageError("list entries", err)
	}
	return entries, nil
}

// Count returns the number of stored entries
func (r *entryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, domain.NewStorageError("count entries", err)
	}
	return n, nil
}

func (r *entryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func orderBy(order domain.SortOrder) string {
	if order == domain.SortDescending {
		return `occurred_at DESC, id DESC`
	}
	return `occurred_at ASC, id ASC`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e          domain.Entry
		amountStr  string
		kindStr    string
		category   string
		balanceStr string
	)

	err := row.Scan(
		&e.ID,
		&amountStr,
		&kindStr,
		&category,
		timeValue{&e.OccurredAt},
		&e.Note,
		&balanceStr,
		timeValue{&e.CreatedAt},
		timeValue{&e.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}

	if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if e.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	if e.Kind, err = domain.ParseKind(kindStr); err != nil {
		return nil, fmt.Errorf("failed to parse kind: %w", err)
	}
	if e.Category, err = domain.ParseCategory(category); err != nil {
		return nil, fmt.Errorf("failed to parse category: %w", err)
	}
	return &e, nil
}

func expectRow(res sql.Result, id uuid.UUID, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	if n == 0 {
		return domain.NotFound(id)
	}
	return nil
}
