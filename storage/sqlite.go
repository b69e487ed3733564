package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/blusaccount/maexchen-online/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteRepo is the single-file store used when no Postgres URL is set.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo opens (creating if needed) the database at path and brings
// its schema up to date. ":memory:" gives a private in-memory database.
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: writers serialize and an in-memory db stays the same db
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := migrations.Up(db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func sqliteError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

const liteEnsurePlayer = `INSERT INTO players (name, balance) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`

func (r *SQLiteRepo) Balance(ctx context.Context, player string) (int64, error) {
	if _, err := r.db.ExecContext(ctx, liteEnsurePlayer, player, StartingBalance); err != nil {
		return 0, sqliteError(err)
	}
	var balance int64
	if err := r.db.QueryRowContext(ctx, `SELECT balance FROM players WHERE name = ?`, player).Scan(&balance); err != nil {
		return 0, sqliteError(err)
	}
	return balance, nil
}

func (r *SQLiteRepo) Debit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return r.adjust(ctx, player, -amount, reason)
}

func (r *SQLiteRepo) Credit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return r.adjust(ctx, player, amount, reason)
}

func (r *SQLiteRepo) adjust(ctx context.Context, player string, delta int64, reason string) (int64, error) {
	var balance int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, liteEnsurePlayer, player, StartingBalance); err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id, balance FROM players WHERE name = ?`, player).Scan(&id, &balance); err != nil {
			return err
		}
		if balance+delta < 0 {
			return domain.ErrInsufficientFunds
		}
		balance += delta
		if _, err := tx.ExecContext(ctx, `UPDATE players SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, balance, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO wallet_ledger (player_id, delta, balance_after, reason) VALUES (?, ?, ?, ?)`,
			id, delta, balance, reason)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return 0, err
		}
		return 0, sqliteError(err)
	}
	return balance, nil
}

func (r *SQLiteRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepo) PersistDocumentMutation(ctx context.Context, feature string, m domain.DocumentMutation) error {
	var err error
	switch m.Op {
	case domain.OpPut:
		err = r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM document_items WHERE feature = ? AND collection = ? AND item_key = ?`,
				feature, m.Collection, m.Key); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO document_items (feature, collection, item_key, payload) VALUES (?, ?, ?, ?)`,
				feature, m.Collection, m.Key, string(m.Payload))
			return err
		})
	case domain.OpDelete:
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM document_items WHERE feature = ? AND collection = ? AND item_key = ?`,
			feature, m.Collection, m.Key)
	case domain.OpClear:
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM document_items WHERE feature = ? AND collection = ?`,
			feature, m.Collection)
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
	if err != nil {
		return sqliteError(err)
	}
	return nil
}

func (r *SQLiteRepo) LoadDocumentSnapshot(ctx context.Context, feature string) ([]domain.DocumentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT collection, item_key, payload FROM document_items WHERE feature = ? ORDER BY seq`,
		feature)
	if err != nil {
		return nil, sqliteError(err)
	}
	defer rows.Close()

	var items []domain.DocumentItem
	for rows.Next() {
		var item domain.DocumentItem
		var payload string
		if err := rows.Scan(&item.Collection, &item.Key, &payload); err != nil {
			return nil, sqliteError(err)
		}
		item.Payload = json.RawMessage(payload)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError(err)
	}
	return items, nil
}

func (r *SQLiteRepo) SaveCharacter(ctx context.Context, player string, c domain.Character) error {
	pixels, err := json.Marshal(c.Pixels)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO characters (player, pixels, data_url) VALUES (?, ?, ?)
		 ON CONFLICT (player) DO UPDATE SET pixels = excluded.pixels, data_url = excluded.data_url, updated_at = CURRENT_TIMESTAMP`,
		player, string(pixels), c.DataURL)
	if err != nil {
		return sqliteError(err)
	}
	return nil
}

func (r *SQLiteRepo) GetCharacter(ctx context.Context, player string) (domain.Character, error) {
	var pixels string
	var c domain.Character
	err := r.db.QueryRowContext(ctx, `SELECT pixels, data_url FROM characters WHERE player = ?`, player).Scan(&pixels, &c.DataURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Character{}, domain.ErrPlayerNotFound
		}
		return domain.Character{}, sqliteError(err)
	}
	if err := json.Unmarshal([]byte(pixels), &c.Pixels); err != nil {
		return domain.Character{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return c, nil
}
