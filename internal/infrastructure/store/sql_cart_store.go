package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-cart/internal/domain/cart"
)

const sqlTxAttempts = 3

const (
	cartColumns = `id, owner_id, total_price, created_at, updated_at`
	itemColumns = `id, cart_id, product_id, product_name, quantity, captured_unit_price, captured_discount, added_at, updated_at`
)

// SQLCartStore persists carts in Postgres or SQLite. Transactions lock the
// cart row before touching its items, and the (cart_id, product_id) unique
// key backs the no-duplicate rule.
type SQLCartStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLCartStore(db *sql.DB, dialect Dialect) *SQLCartStore {
	return &SQLCartStore{db: db, dialect: dialect}
}

func (s *SQLCartStore) WithTx(ctx context.Context, fn func(tx cart.Tx) error) error {
	var err error
	for attempt := 0; attempt < sqlTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !errors.Is(err, cart.ErrTxConflict) {
			return err
		}
	}
	return err
}

func (s *SQLCartStore) runTx(ctx context.Context, fn func(tx cart.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqlCartTx{tx: sqlTx, dialect: s.dialect}); err != nil {
		_ = sqlTx.Rollback()
		if isRetryable(err) {
			return cart.ErrTxConflict
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		if isRetryable(err) {
			return cart.ErrTxConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLCartStore) readSnapshot(ctx context.Context, fn func(q queryer) error) error {
	return readSnapshot(ctx, s.db, s.dialect, fn)
}

func (s *SQLCartStore) FindByOwner(ctx context.Context, ownerID string) (*cart.Cart, error) {
	return s.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE owner_id = ?`, ownerID)
}

func (s *SQLCartStore) FindByID(ctx context.Context, cartID string) (*cart.Cart, error) {
	return s.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = ?`, cartID)
}

func (s *SQLCartStore) findOne(ctx context.Context, query, arg string) (*cart.Cart, error) {
	var c *cart.Cart
	err := s.readSnapshot(ctx, func(q queryer) error {
		var err error
		if c, err = scanCart(q.QueryRowContext(ctx, s.dialect.rebind(query), arg)); err != nil {
			return err
		}
		c.Items, err = queryItems(ctx, q, s.dialect, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLCartStore) ListAll(ctx context.Context) ([]*cart.Cart, error) {
	var carts []*cart.Cart
	err := s.readSnapshot(ctx, func(q queryer) error {
		var err error
		carts, err = listAll(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func listAll(ctx context.Context, q queryer) ([]*cart.Cart, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+cartColumns+` FROM carts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query carts: %w", err)
	}
	var carts []*cart.Cart
	byID := map[string]*cart.Cart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		c.Items = []*cart.Item{}
		carts = append(carts, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	itemRows, err := q.QueryContext(ctx, `SELECT `+itemColumns+` FROM cart_items ORDER BY cart_id, added_at, product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		it, err := scanItem(itemRows)
		if err != nil {
			return nil, err
		}
		if c, ok := byID[it.CartID]; ok {
			c.Items = append(c.Items, it)
		}
	}
	return carts, itemRows.Err()
}

func (s *SQLCartStore) CartIDsByProduct(ctx context.Context, productID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT cart_id FROM cart_items WHERE product_id = ? ORDER BY cart_id`), productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query carts for product: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type sqlCartTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlCartTx) FindByOwner(ctx context.Context, ownerID string) (*cart.Cart, error) {
	return scanCart(t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`SELECT `+cartColumns+` FROM carts WHERE owner_id = ?`+t.dialect.forUpdate()), ownerID))
}

func (t *sqlCartTx) FindByID(ctx context.Context, cartID string) (*cart.Cart, error) {
	return scanCart(t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`SELECT `+cartColumns+` FROM carts WHERE id = ?`+t.dialect.forUpdate()), cartID))
}

func (t *sqlCartTx) FindItem(ctx context.Context, cartID, productID string) (*cart.Item, error) {
	return scanItem(t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`SELECT `+itemColumns+` FROM cart_items WHERE cart_id = ? AND product_id = ?`), cartID, productID))
}

func (t *sqlCartTx) Items(ctx context.Context, cartID string) ([]*cart.Item, error) {
	return queryItems(ctx, t.tx, t.dialect, cartID)
}

func (t *sqlCartTx) SaveCart(ctx context.Context, c *cart.Cart) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO carts (`+cartColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_price = excluded.total_price,
			updated_at = excluded.updated_at`),
		c.ID, c.OwnerID, c.TotalPrice, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		// Another transaction created this owner's cart first.
		return cart.ErrTxConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (t *sqlCartTx) SaveItem(ctx context.Context, it *cart.Item) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(`
		INSERT INTO cart_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			product_name = excluded.product_name,
			quantity = excluded.quantity,
			captured_unit_price = excluded.captured_unit_price,
			captured_discount = excluded.captured_discount,
			updated_at = excluded.updated_at`),
		it.ID, it.CartID, it.ProductID, it.ProductName, it.Quantity,
		it.CapturedUnitPrice, it.CapturedDiscount, it.AddedAt, it.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return cart.ErrDuplicateRecord
	}
	if err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

func (t *sqlCartTx) DeleteItem(ctx context.Context, itemID string) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.rebind(`DELETE FROM cart_items WHERE id = ?`), itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cart.ErrRecordNotFound
	}
	return nil
}

func (t *sqlCartTx) DeleteAllItems(ctx context.Context, cartID string) error {
	if _, err := t.tx.ExecContext(ctx, t.dialect.rebind(`DELETE FROM cart_items WHERE cart_id = ?`), cartID); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (*cart.Cart, error) {
	c := &cart.Cart{}
	err := row.Scan(&c.ID, &c.OwnerID, &c.TotalPrice, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart: %w", err)
	}
	return c, nil
}

func scanItem(row rowScanner) (*cart.Item, error) {
	it := &cart.Item{}
	err := row.Scan(
		&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.CapturedUnitPrice, &it.CapturedDiscount, &it.AddedAt, &it.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart item: %w", err)
	}
	return it, nil
}

func queryItems(ctx context.Context, q queryer, dialect Dialect, cartID string) ([]*cart.Item, error) {
	rows, err := q.QueryContext(ctx,
		dialect.rebind(`SELECT `+itemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY added_at, product_id`), cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []*cart.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
