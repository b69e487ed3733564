package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StartingBalance is what a player's wallet holds the first time it is read.
const StartingBalance int64 = 1000

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// dbError keeps context errors as they are and marks everything else as
// unexpected.
func dbError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		// check_violation: the balance would go negative
		return domain.ErrInsufficientFunds
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

const pgEnsurePlayer = `INSERT INTO players (name, balance) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`

func (r *PostgresRepo) Balance(ctx context.Context, player string) (int64, error) {
	if _, err := r.pool.Exec(ctx, pgEnsurePlayer, player, StartingBalance); err != nil {
		return 0, dbError(err)
	}
	var balance int64
	if err := r.pool.QueryRow(ctx, `SELECT balance FROM players WHERE name = $1`, player).Scan(&balance); err != nil {
		return 0, dbError(err)
	}
	return balance, nil
}

func (r *PostgresRepo) Debit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return r.adjust(ctx, player, -amount, reason)
}

func (r *PostgresRepo) Credit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return r.adjust(ctx, player, amount, reason)
}

// adjust moves the balance by delta and writes the ledger row in one
// transaction. The row lock keeps concurrent adjustments serialized.
func (r *PostgresRepo) adjust(ctx context.Context, player string, delta int64, reason string) (int64, error) {
	var balance int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgEnsurePlayer, player, StartingBalance); err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRow(ctx, `SELECT id, balance FROM players WHERE name = $1 FOR UPDATE`, player).Scan(&id, &balance); err != nil {
			return err
		}
		if balance+delta < 0 {
			return domain.ErrInsufficientFunds
		}
		balance += delta
		if _, err := tx.Exec(ctx, `UPDATE players SET balance = $1, updated_at = now() WHERE id = $2`, balance, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO wallet_ledger (player_id, delta, balance_after, reason) VALUES ($1, $2, $3, $4)`,
			id, delta, balance, reason)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return 0, err
		}
		return 0, dbError(err)
	}
	return balance, nil
}

func (r *PostgresRepo) PersistDocumentMutation(ctx context.Context, feature string, m domain.DocumentMutation) error {
	var err error
	switch m.Op {
	case domain.OpPut:
		// delete then insert so the item moves to the end of the load order
		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`DELETE FROM document_items WHERE feature = $1 AND collection = $2 AND item_key = $3`,
				feature, m.Collection, m.Key); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO document_items (feature, collection, item_key, payload) VALUES ($1, $2, $3, $4::jsonb)`,
				feature, m.Collection, m.Key, string(m.Payload))
			return err
		})
	case domain.OpDelete:
		_, err = r.pool.Exec(ctx,
			`DELETE FROM document_items WHERE feature = $1 AND collection = $2 AND item_key = $3`,
			feature, m.Collection, m.Key)
	case domain.OpClear:
		_, err = r.pool.Exec(ctx,
			`DELETE FROM document_items WHERE feature = $1 AND collection = $2`,
			feature, m.Collection)
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepo) LoadDocumentSnapshot(ctx context.Context, feature string) ([]domain.DocumentItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT collection, item_key, payload FROM document_items WHERE feature = $1 ORDER BY seq`,
		feature)
	if err != nil {
		return nil, dbError(err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DocumentItem, error) {
		var item domain.DocumentItem
		var payload []byte
		err := row.Scan(&item.Collection, &item.Key, &payload)
		item.Payload = payload
		return item, err
	})
	if err != nil {
		return nil, dbError(err)
	}
	return items, nil
}

func (r *PostgresRepo) SaveCharacter(ctx context.Context, player string, c domain.Character) error {
	pixels, err := json.Marshal(c.Pixels)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO characters (player, pixels, data_url) VALUES ($1, $2::jsonb, $3)
		 ON CONFLICT (player) DO UPDATE SET pixels = EXCLUDED.pixels, data_url = EXCLUDED.data_url, updated_at = now()`,
		player, string(pixels), c.DataURL)
	if err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepo) GetCharacter(ctx context.Context, player string) (domain.Character, error) {
	var pixels []byte
	var c domain.Character
	err := r.pool.QueryRow(ctx, `SELECT pixels, data_url FROM characters WHERE player = $1`, player).Scan(&pixels, &c.DataURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Character{}, domain.ErrPlayerNotFound
		}
		return domain.Character{}, dbError(err)
	}
	if err := json.Unmarshal(pixels, &c.Pixels); err != nil {
		return domain.Character{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return c, nil
}
