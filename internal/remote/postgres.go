package remote

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"pos_umkm/internal/pos"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres talks to the store database directly.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(ctx context.Context, connString string, logger *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &Postgres{pool: pool, logger: logger.Named("postgres")}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate applies the embedded schema files in lexical order.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := p.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		p.logger.Info("migration applied", zap.String("name", name))
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

const shiftColumns = `id::text, store_id, COALESCE(cashier_id, ''), start_time, end_time,
	start_cash::text, end_cash::text, total_sales::text, status`

func scanShift(row pgx.Row) (pos.Shift, error) {
	var (
		s                   pos.Shift
		startCash           string
		endCash, totalSales *string
		status              string
	)
	if err := row.Scan(&s.ID, &s.StoreID, &s.CashierID, &s.OpenedAt, &s.ClosedAt,
		&startCash, &endCash, &totalSales, &status); err != nil {
		return pos.Shift{}, err
	}
	s.Status = pos.ShiftStatus(status)
	s.StartingCash = parseAmount(startCash)
	s.EndingCash = parseOptionalAmount(endCash)
	s.TotalSales = parseOptionalAmount(totalSales)
	return s, nil
}

func (p *Postgres) FindOpenShift(ctx context.Context, storeID string) (*pos.Shift, error) {
	if storeID == "" {
		return nil, ErrMissingStore
	}
	row := p.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE store_id = $1 AND status = 'open' ORDER BY start_time DESC LIMIT 1`, storeID)
	s, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find open shift", err)
	}
	return &s, nil
}

func (p *Postgres) GetShift(ctx context.Context, id string) (pos.Shift, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1::uuid`, id)
	s, err := scanShift(row)
	if err != nil {
		return pos.Shift{}, classify("get shift", err)
	}
	return s, nil
}

func (p *Postgres) CreateShift(ctx context.Context, shift pos.Shift) (pos.Shift, error) {
	openedAt := shift.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now()
	}
	row := p.pool.QueryRow(ctx, `INSERT INTO shifts (store_id, cashier_id, start_time, start_cash, status)
		VALUES ($1, NULLIF($2, ''), $3, $4::numeric, 'open')
		RETURNING `+shiftColumns,
		shift.StoreID, shift.CashierID, openedAt, shift.StartingCash.String())
	created, err := scanShift(row)
	if err != nil {
		return pos.Shift{}, classify("create shift", err)
	}
	return created, nil
}

func (p *Postgres) CloseShift(ctx context.Context, id string, closing ShiftClose) error {
	tag, err := p.pool.Exec(ctx, `UPDATE shifts
		SET end_time = $2, status = 'closed', total_sales = $3::numeric, end_cash = $4::numeric
		WHERE id = $1::uuid`,
		id, closing.ClosedAt, closing.TotalSales.String(), closing.EndingCash.String())
	if err != nil {
		return classify("close shift", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: shift %s", ErrNotFound, id)
	}
	return nil
}

const orderColumns = `id::text, store_id, COALESCE(shift_id::text, ''), status, customer_name,
	total::text, created_at, COALESCE(client_ref, '')`

func scanOrder(row pgx.Row) (pos.Order, error) {
	var (
		o      pos.Order
		status string
		total  string
	)
	if err := row.Scan(&o.ID, &o.StoreID, &o.ShiftID, &status, &o.CustomerLabel, &total, &o.CreatedAt, &o.ClientRef); err != nil {
		return pos.Order{}, err
	}
	o.Status = pos.OrderStatus(status)
	o.Total = parseAmount(total)
	return o, nil
}

func (p *Postgres) CreateOrder(ctx context.Context, order pos.Order, clientRef string) (pos.Order, bool, error) {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := p.pool.QueryRow(ctx, `INSERT INTO orders (store_id, shift_id, status, customer_name, total, created_at, client_ref)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5::numeric, $6, NULLIF($7, ''))
		ON CONFLICT (client_ref) DO NOTHING
		RETURNING `+orderColumns,
		order.StoreID, order.ShiftID, string(order.Status), order.CustomerLabel, order.Total.String(), createdAt, clientRef)
	created, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) && clientRef != "" {
		existing, err := scanOrder(p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE client_ref = $1`, clientRef))
		if err != nil {
			return pos.Order{}, false, classify("load replayed order", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return pos.Order{}, false, classify("create order", err)
	}
	return created, true, nil
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (pos.Order, error) {
	o, err := scanOrder(p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1::uuid`, id))
	if err != nil {
		return pos.Order{}, classify("get order", err)
	}
	return o, nil
}

func (p *Postgres) UpdateOrder(ctx context.Context, id string, patch OrderPatch) error {
	var status, total, label *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	if patch.Total != nil {
		t := patch.Total.String()
		total = &t
	}
	label = patch.CustomerLabel

	tag, err := p.pool.Exec(ctx, `UPDATE orders SET
		status = COALESCE($2, status),
		total = COALESCE($3::numeric, total),
		customer_name = COALESCE($4, customer_name)
		WHERE id = $1::uuid`, id, status, total, label)
	if err != nil {
		return classify("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return nil
}

func (p *Postgres) DeleteOrder(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1::uuid`, id); err != nil {
		return classify("delete order", err)
	}
	return nil
}

func (p *Postgres) ListOrders(ctx context.Context, storeID, shiftID string) ([]pos.Order, error) {
	if storeID == "" {
		return nil, ErrMissingStore
	}
	rows, err := p.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE store_id = $1 AND ($2 = '' OR shift_id = NULLIF($2, '')::uuid)
		ORDER BY created_at DESC`, storeID, shiftID)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer rows.Close()

	var out []pos.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify("scan order", err)
		}
		out = append(out, o)
	}
	return out, classify("list orders", rows.Err())
}

func (p *Postgres) CreateItems(ctx context.Context, items []pos.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
			VALUES ($1::uuid, $2, $3, $4::numeric, $5)`,
			item.OrderID, item.ProductID, item.Name, item.UnitPrice.String(), item.Quantity)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return classify("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return classify("create items", err)
	}
	return classify("commit items", tx.Commit(ctx))
}

func (p *Postgres) ListItems(ctx context.Context, orderID string) ([]pos.OrderItem, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, order_id::text, product_id, product_name, price::text, quantity
		FROM order_items WHERE order_id = $1::uuid ORDER BY id`, orderID)
	if err != nil {
		return nil, classify("list items", err)
	}
	defer rows.Close()

	var out []pos.OrderItem
	for rows.Next() {
		var (
			item  pos.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, classify("scan item", err)
		}
		item.UnitPrice = parseAmount(price)
		out = append(out, item)
	}
	return out, classify("list items", rows.Err())
}

func (p *Postgres) DeleteItemsByOrder(ctx context.Context, orderID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1::uuid`, orderID); err != nil {
		return classify("delete items", err)
	}
	return nil
}

func (p *Postgres) ReassignItems(ctx context.Context, itemIDs []string, orderID string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, `UPDATE order_items SET order_id = $2::uuid WHERE id::text = ANY($1)`, itemIDs, orderID); err != nil {
		return classify("reassign items", err)
	}
	return nil
}

func (p *Postgres) CreateTransaction(ctx context.Context, txn pos.Transaction, clientRef string) error {
	createdAt := txn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO transactions (order_id, shift_id, store_id, payment_method, amount, created_at, client_ref)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, '')::uuid, $3, $4, $5::numeric, $6, NULLIF($7, ''))
		ON CONFLICT (client_ref) DO NOTHING`,
		txn.OrderID, txn.ShiftID, txn.StoreID, string(txn.Method), txn.Amount.String(), createdAt, clientRef)
	if err != nil {
		return classify("create transaction", err)
	}
	return nil
}

func (p *Postgres) ListTransactionsByShift(ctx context.Context, shiftID string) ([]pos.Transaction, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, COALESCE(order_id::text, ''), shift_id::text, store_id,
		payment_method, amount::text, created_at, COALESCE(client_ref, '')
		FROM transactions WHERE shift_id = $1::uuid ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	var out []pos.Transaction
	for rows.Next() {
		var (
			t      pos.Transaction
			method string
			amount string
		)
		if err := rows.Scan(&t.ID, &t.OrderID, &t.ShiftID, &t.StoreID, &method, &amount, &t.CreatedAt, &t.ClientRef); err != nil {
			return nil, classify("scan transaction", err)
		}
		t.Method = pos.PaymentMethod(method)
		t.Amount = parseAmount(amount)
		out = append(out, t)
	}
	return out, classify("list transactions", rows.Err())
}

func (p *Postgres) ListExpensesByShift(ctx context.Context, shiftID string) ([]pos.Expense, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, shift_id::text, store_id, description, amount::text
		FROM expenses WHERE shift_id = $1::uuid`, shiftID)
	if err != nil {
		return nil, classify("list expenses", err)
	}
	defer rows.Close()

	var out []pos.Expense
	for rows.Next() {
		var (
			e      pos.Expense
			amount string
		)
		if err := rows.Scan(&e.ID, &e.ShiftID, &e.StoreID, &e.Description, &amount); err != nil {
			return nil, classify("scan expense", err)
		}
		e.Amount = parseAmount(amount)
		out = append(out, e)
	}
	return out, classify("list expenses", rows.Err())
}

func (p *Postgres) ListShoppingLists(ctx context.Context, storeID, date string) ([]pos.ShoppingList, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, store_id, date::text, status, total_estimated::text
		FROM shopping_lists WHERE store_id = $1 AND date = $2::date`, storeID, date)
	if err != nil {
		return nil, classify("list shopping lists", err)
	}
	defer rows.Close()

	var out []pos.ShoppingList
	for rows.Next() {
		var (
			l      pos.ShoppingList
			status string
			total  string
		)
		if err := rows.Scan(&l.ID, &l.StoreID, &l.Date, &status, &total); err != nil {
			return nil, classify("scan shopping list", err)
		}
		l.Status = pos.ShoppingListStatus(status)
		l.TotalEstimated = parseAmount(total)
		out = append(out, l)
	}
	return out, classify("list shopping lists", rows.Err())
}

func (p *Postgres) CloseShoppingLists(ctx context.Context, storeID, date string) error {
	_, err := p.pool.Exec(ctx, `UPDATE shopping_lists SET status = 'closed'
		WHERE store_id = $1 AND date = $2::date AND status = 'active'`, storeID, date)
	if err != nil {
		return classify("close shopping lists", err)
	}
	return nil
}

func (p *Postgres) DecrementStock(ctx context.Context, productID string, quantity int) error {
	_, err := p.pool.Exec(ctx, `UPDATE products SET stock = GREATEST(stock - $2, 0)
		WHERE id = $1::uuid AND stock <> -1`, productID, quantity)
	if err != nil {
		return classify("decrement stock", err)
	}
	return nil
}

func (p *Postgres) ListProducts(ctx context.Context, storeID string) ([]pos.Product, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, store_id, COALESCE(category_id::text, ''), name, price::text, stock
		FROM products WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	var out []pos.Product
	for rows.Next() {
		var (
			pr    pos.Product
			price string
		)
		if err := rows.Scan(&pr.ID, &pr.StoreID, &pr.CategoryID, &pr.Name, &price, &pr.Stock); err != nil {
			return nil, classify("scan product", err)
		}
		pr.Price = parseAmount(price)
		out = append(out, pr)
	}
	return out, classify("list products", rows.Err())
}

func (p *Postgres) ListCategories(ctx context.Context, storeID string) ([]pos.Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, store_id, name FROM categories WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	var out []pos.Category
	for rows.Next() {
		var c pos.Category
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name); err != nil {
			return nil, classify("scan category", err)
		}
		out = append(out, c)
	}
	return out, classify("list categories", rows.Err())
}

// classify maps database failures onto the package error taxonomy.
// Integrity and data exceptions are rejections; everything else is treated
// as the database being unreachable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "22", "23":
			return fmt.Errorf("%w: %s: %w", ErrRejected, op, err)
		case "28":
			return fmt.Errorf("%w: %s: %w", ErrUnauthorized, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseOptionalAmount(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d := parseAmount(*s)
	return &d
}
