package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
)

const productColumns = `id, name, description, category_id, unit_price, discount_percent, special_price, available_quantity, created_at, updated_at`

const categoryColumns = `id, name, slug, description, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLCatalog is the product and category tables behind the catalog services
// and the cart engine's price lookups.
type SQLCatalog struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLCatalog(db *sql.DB, dialect Dialect) *SQLCatalog {
	return &SQLCatalog{db: db, dialect: dialect}
}

func (c *SQLCatalog) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	p, err := scanProduct(c.db.QueryRowContext(ctx,
		c.dialect.rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts reads the page and its total inside one snapshot.
func (c *SQLCatalog) ListProducts(ctx context.Context, q product.ListQuery) (*product.Page, error) {
	var conditions []string
	var args []any
	if q.Keyword != "" {
		conditions = append(conditions, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Keyword))+"%")
	}
	if q.CategoryID != "" {
		conditions = append(conditions, `category_id = ?`)
		args = append(args, q.CategoryID)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := &product.Page{Products: []*product.Product{}, Number: q.Page, Size: q.Size}
	err := readSnapshot(ctx, c.db, c.dialect, func(tx queryer) error {
		if err := tx.QueryRowContext(ctx,
			c.dialect.rebind(`SELECT COUNT(*) FROM products`+where), args...,
		).Scan(&page.TotalElements); err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}

		query := `SELECT ` + productColumns + ` FROM products` + where +
			` ORDER BY ` + c.dialect.productOrder(q.SortBy, q.SortOrder) + ` LIMIT ? OFFSET ?`
		rows, err := tx.QueryContext(ctx, c.dialect.rebind(query), append(args, q.Size, q.Offset())...)
		if err != nil {
			return fmt.Errorf("failed to query products: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return fmt.Errorf("failed to scan product: %w", err)
			}
			page.Products = append(page.Products, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *SQLCatalog) SaveProduct(ctx context.Context, p *product.Product) error {
	_, err := c.db.ExecContext(ctx, c.dialect.rebind(`
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category_id = excluded.category_id,
			unit_price = excluded.unit_price,
			discount_percent = excluded.discount_percent,
			special_price = excluded.special_price,
			available_quantity = excluded.available_quantity,
			updated_at = excluded.updated_at`),
		p.ID, p.Name, p.Description, nullString(p.CategoryID), p.UnitPrice, p.DiscountPercent, p.SpecialPrice,
		p.AvailableQuantity, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (c *SQLCatalog) DeleteProduct(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, c.dialect.rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

// Categories

func (c *SQLCatalog) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	cat, err := scanCategory(c.db.QueryRowContext(ctx,
		c.dialect.rebind(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

func (c *SQLCatalog) ListCategories(ctx context.Context) ([]*category.Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func (c *SQLCatalog) SaveCategory(ctx context.Context, cat *category.Category) error {
	_, err := c.db.ExecContext(ctx, c.dialect.rebind(`
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			description = excluded.description`),
		cat.ID, cat.Name, cat.Slug, cat.Description, cat.CreatedAt,
	)
	if isUniqueViolation(err) {
		return category.ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// DeleteCategory checks for products and deletes in one transaction so a
// product cannot be filed under the category in between.
func (c *SQLCatalog) DeleteCategory(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		c.dialect.rebind(`SELECT 1 FROM categories WHERE id = ?`+c.dialect.forUpdate()), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return category.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock category: %w", err)
	}

	var products int
	if err := tx.QueryRowContext(ctx,
		c.dialect.rebind(`SELECT COUNT(*) FROM products WHERE category_id = ?`), id).Scan(&products); err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if products > 0 {
		return category.ErrCategoryInUse
	}

	if _, err := tx.ExecContext(ctx, c.dialect.rebind(`DELETE FROM categories WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return tx.Commit()
}

// productOrder renders a whitelisted sort. Prices are TEXT on SQLite and
// would otherwise sort lexically.
func (d Dialect) productOrder(sortBy, order string) string {
	dir := " ASC"
	if order == product.SortDesc {
		dir = " DESC"
	}
	col := "name"
	switch sortBy {
	case product.SortByPrice:
		col = "special_price"
		if d != Postgres {
			col = "CAST(special_price AS REAL)"
		}
	case product.SortByCreatedAt:
		col = "created_at"
	}
	return col + dir + ", id ASC"
}

func scanProduct(row rowScanner) (*product.Product, error) {
	p := &product.Product{}
	var categoryID sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &categoryID, &p.UnitPrice, &p.DiscountPercent, &p.SpecialPrice,
		&p.AvailableQuantity, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.String
	return p, nil
}

func scanCategory(row rowScanner) (*category.Category, error) {
	cat := &category.Category{}
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.CreatedAt); err != nil {
		return nil, err
	}
	return cat, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
