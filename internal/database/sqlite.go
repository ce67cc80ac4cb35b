package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-service/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SingleWriterDB implements Single Writer Principle for SQLite.
// The register runs one transaction at a time; the mutex keeps every
// mutation (including the multi-statement checkout commit) on a single
// logical sequence.
type SingleWriterDB struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex // Mutex to ensure single writer
}

// NewSingleWriterDB creates a new database connection with single writer principle
func NewSingleWriterDB(cfg *config.Config, logger *zap.Logger) (*SingleWriterDB, error) {
	db, err := sql.Open("sqlite3", cfg.SQLitePath+"?_journal_mode=WAL&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	swdb := &SingleWriterDB{
		db:     db,
		logger: logger,
	}

	// Initialize schema
	if err := swdb.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return swdb, nil
}

// initSchema creates the database schema
func (swdb *SingleWriterDB) initSchema() error {
	schema := `
	-- Products table: the catalog (managed by product CRUD)
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		barcode TEXT,
		description TEXT NOT NULL,
		price REAL NOT NULL DEFAULT 0,
		image_path TEXT,
		category TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(price >= 0),
		CHECK(status IN ('Active', 'Inactive'))
	);

	-- Product stock table: one row per product, created lazily on first read
	CREATE TABLE IF NOT EXISTS product_stock (
		product_id INTEGER PRIMARY KEY,
		stock INTEGER NOT NULL,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
		CHECK(stock >= 0)
	);

	-- Sales table: append-only ledger, one row per completed line item
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_date TEXT NOT NULL,
		product_id INTEGER NOT NULL,
		product TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		total REAL NOT NULL,
		category TEXT,
		invoice_no INTEGER NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		CHECK(quantity > 0)
	);

	-- Users table: register login
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);

	-- Invoice counter: monotonically increasing receipt numbers
	CREATE TABLE IF NOT EXISTS invoice_counter (
		id INTEGER PRIMARY KEY CHECK(id = 1),
		next_no INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO invoice_counter (id, next_no) VALUES (1, 100000);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
	CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_product_id ON sales(product_id);
	`

	_, err := swdb.db.Exec(schema)
	return err
}

// Close closes the database connection
func (swdb *SingleWriterDB) Close() error {
	return swdb.db.Close()
}

// Ping checks the database connection
func (swdb *SingleWriterDB) Ping() error {
	return swdb.db.Ping()
}

// Product represents a catalog row
type Product struct {
	ID          int64
	Barcode     string
	Description string
	Price       float64
	ImagePath   string
	Category    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the product can be sold
func (p *Product) Active() bool {
	return p.Status == "Active"
}

// SaleRow represents one persisted ledger row
type SaleRow struct {
	ID        int64
	SaleDate  string // calendar day, YYYY-MM-DD
	ProductID int64
	Product   string
	Quantity  int
	UnitPrice float64
	Total     float64
	Category  string
	InvoiceNo int64
	CreatedAt time.Time
}

// SaleLine is one cart line handed to CommitSale
type SaleLine struct {
	ProductID   int64
	Description string
	UnitPrice   float64
	Quantity    int
	Total       float64
}

// ProductOrder selects the listing order for products
type ProductOrder int

const (
	// OrderByBrowse sorts by category then description (register browsing view)
	OrderByBrowse ProductOrder = iota
	// OrderByManage sorts by id descending (management view)
	OrderByManage
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrStockConflict      = errors.New("stock conflict - deduction would go negative")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CreateProduct inserts a new catalog row and returns its id
func (swdb *SingleWriterDB) CreateProduct(ctx context.Context, p *Product) (int64, error) {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	query := `
		INSERT INTO products (barcode, description, price, image_path, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := swdb.db.ExecContext(ctx, query,
		p.Barcode, p.Description, p.Price, p.ImagePath, p.Category, p.Status, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get product id: %w", err)
	}

	return id, nil
}

// UpdateProduct updates the editable fields of a catalog row
func (swdb *SingleWriterDB) UpdateProduct(ctx context.Context, p *Product) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	query := `
		UPDATE products
		SET barcode = ?, description = ?, price = ?, image_path = ?, category = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := swdb.db.ExecContext(ctx, query,
		p.Barcode, p.Description, p.Price, p.ImagePath, p.Category, p.Status,
		time.Now().UTC().Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateProductStatus flips a product Active/Inactive
func (swdb *SingleWriterDB) UpdateProductStatus(ctx context.Context, id int64, status string) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	result, err := swdb.db.ExecContext(ctx,
		`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update product status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// DeleteProduct removes a catalog row; its stock row cascades
func (swdb *SingleWriterDB) DeleteProduct(ctx context.Context, id int64) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	result, err := swdb.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// GetProduct retrieves a product by id
func (swdb *SingleWriterDB) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := `
		SELECT id, barcode, description, price, image_path, category, status, created_at, updated_at
		FROM products
		WHERE id = ?
	`

	var p Product
	var barcode, imagePath sql.NullString
	var createdAtStr, updatedAtStr string

	err := swdb.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &barcode, &p.Description, &p.Price, &imagePath,
		&p.Category, &p.Status, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	p.Barcode = barcode.String
	p.ImagePath = imagePath.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)

	return &p, nil
}

// ListProducts retrieves all products in the requested order
func (swdb *SingleWriterDB) ListProducts(ctx context.Context, order ProductOrder) ([]*Product, error) {
	query := `
		SELECT id, barcode, description, price, image_path, category, status, created_at, updated_at
		FROM products
	`
	switch order {
	case OrderByManage:
		query += ` ORDER BY id DESC`
	default:
		query += ` ORDER BY category, description`
	}

	rows, err := swdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*Product, 0)
	for rows.Next() {
		var p Product
		var barcode, imagePath sql.NullString
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&p.ID, &barcode, &p.Description, &p.Price, &imagePath,
			&p.Category, &p.Status, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		p.Barcode = barcode.String
		p.ImagePath = imagePath.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)

		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// CategoryByProductID resolves a product's category by its stable identifier
func (swdb *SingleWriterDB) CategoryByProductID(ctx context.Context, id int64) (string, error) {
	var category string
	err := swdb.db.QueryRowContext(ctx, `SELECT category FROM products WHERE id = ?`, id).Scan(&category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrProductNotFound
		}
		return "", fmt.Errorf("failed to resolve category: %w", err)
	}
	return category, nil
}

// GetStock reads the stock row for a product. The second return reports
// whether a row existed.
func (swdb *SingleWriterDB) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	var stock int
	err := swdb.db.QueryRowContext(ctx,
		`SELECT stock FROM product_stock WHERE product_id = ?`, productID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, true, nil
}

// UpsertStock inserts or overwrites the stock value for a product
func (swdb *SingleWriterDB) UpsertStock(ctx context.Context, productID int64, stock int) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	query := `
		INSERT INTO product_stock (product_id, stock) VALUES (?, ?)
		ON CONFLICT(product_id) DO UPDATE SET stock = excluded.stock
	`

	if _, err := swdb.db.ExecContext(ctx, query, productID, stock); err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}

	return nil
}

// DeductStock conditionally decrements stock for one product. The guard in
// the WHERE clause keeps the row from ever going negative.
func (swdb *SingleWriterDB) DeductStock(ctx context.Context, productID int64, quantity int) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	result, err := swdb.db.ExecContext(ctx,
		`UPDATE product_stock SET stock = stock - ? WHERE product_id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrStockConflict
	}

	return nil
}

// CommitSale performs the checkout commit as one transaction: allocate the
// next invoice number, deduct stock for every line, and append one ledger row
// per line. Any failure rolls the whole commit back, so stock and ledger can
// never diverge mid-checkout.
func (swdb *SingleWriterDB) CommitSale(ctx context.Context, saleDate string, lines []SaleLine) (int64, []SaleRow, error) {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	tx, err := swdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Allocate the invoice number
	var invoiceNo int64
	if err := tx.QueryRowContext(ctx, `SELECT next_no FROM invoice_counter WHERE id = 1`).Scan(&invoiceNo); err != nil {
		return 0, nil, fmt.Errorf("failed to read invoice counter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE invoice_counter SET next_no = next_no + 1 WHERE id = 1`); err != nil {
		return 0, nil, fmt.Errorf("failed to advance invoice counter: %w", err)
	}

	now := time.Now().UTC()
	rows := make([]SaleRow, 0, len(lines))

	for _, line := range lines {
		// Deduct stock, guarded against going negative
		result, err := tx.ExecContext(ctx,
			`UPDATE product_stock SET stock = stock - ? WHERE product_id = ? AND stock >= ?`,
			line.Quantity, line.ProductID, line.Quantity,
		)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to deduct stock for product %d: %w", line.ProductID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return 0, nil, fmt.Errorf("product %d (%s): %w", line.ProductID, line.Description, ErrStockConflict)
		}

		// Resolve category by the stable product identifier
		var category string
		if err := tx.QueryRowContext(ctx,
			`SELECT category FROM products WHERE id = ?`, line.ProductID,
		).Scan(&category); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				category = "OTHER"
			} else {
				return 0, nil, fmt.Errorf("failed to resolve category for product %d: %w", line.ProductID, err)
			}
		}

		// Append the ledger row
		result, err = tx.ExecContext(ctx,
			`INSERT INTO sales (sale_date, product_id, product, quantity, unit_price, total, category, invoice_no, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			saleDate, line.ProductID, line.Description, line.Quantity,
			line.UnitPrice, line.Total, category, invoiceNo, now.Format(time.RFC3339),
		)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to append sale for product %d: %w", line.ProductID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to get sale row id: %w", err)
		}

		rows = append(rows, SaleRow{
			ID:        rowID,
			SaleDate:  saleDate,
			ProductID: line.ProductID,
			Product:   line.Description,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     line.Total,
			Category:  category,
			InvoiceNo: invoiceNo,
			CreatedAt: now,
		})
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	return invoiceNo, rows, nil
}

// ListSales retrieves the full ledger, most recent first
func (swdb *SingleWriterDB) ListSales(ctx context.Context) ([]SaleRow, error) {
	query := `
		SELECT id, sale_date, product_id, product, quantity, unit_price, total, category, invoice_no, created_at
		FROM sales
		ORDER BY sale_date DESC, id DESC
	`

	rows, err := swdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]SaleRow, 0)
	for rows.Next() {
		var s SaleRow
		var category sql.NullString
		var createdAtStr string

		err := rows.Scan(
			&s.ID, &s.SaleDate, &s.ProductID, &s.Product, &s.Quantity,
			&s.UnitPrice, &s.Total, &category, &s.InvoiceNo, &createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}

		s.Category = category.String
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)

		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}

// ValidateUser checks register login credentials against the users table
func (swdb *SingleWriterDB) ValidateUser(ctx context.Context, username, password string) error {
	var id int64
	err := swdb.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ? AND password = ?`,
		username, password,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to validate user: %w", err)
	}
	return nil
}

// CreateUser inserts a register login
func (swdb *SingleWriterDB) CreateUser(ctx context.Context, username, password string) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	if _, err := swdb.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username, password) VALUES (?, ?)`,
		username, password,
	); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
