package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    name VARCHAR(100) NOT NULL,
	    email VARCHAR(254) NOT NULL,
	    phone VARCHAR(20) NOT NULL DEFAULT '',
	    address TEXT NOT NULL,
	    created_at DATETIME(6) NOT NULL,
	    UNIQUE KEY uk_email (email),
	    INDEX idx_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS products (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    name VARCHAR(200) NOT NULL,
	    description TEXT NOT NULL,
	    price DECIMAL(10,2) NOT NULL,
	    category VARCHAR(50) NOT NULL,
	    stock INT UNSIGNED NOT NULL DEFAULT 0,
	    created_at DATETIME(6) NOT NULL,
	    updated_at DATETIME(6) NOT NULL,
	    INDEX idx_category (category),
	    INDEX idx_price (price),
	    INDEX idx_stock (stock),
	    INDEX idx_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS orders (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    customer_id BIGINT NOT NULL,
	    order_date DATETIME(6) NOT NULL,
	    status ENUM('pending', 'processing', 'shipped', 'delivered', 'cancelled') NOT NULL DEFAULT 'pending',
	    updated_at DATETIME(6) NOT NULL,
	    FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE,
	    INDEX idx_customer_id (customer_id),
	    INDEX idx_status (status),
	    INDEX idx_order_date (order_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_items (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    order_id BIGINT NOT NULL,
	    product_id BIGINT NOT NULL,
	    quantity INT UNSIGNED NOT NULL,
	    price DECIMAL(10,2) NOT NULL,
	    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
	    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
	    INDEX idx_order_id (order_id),
	    INDEX idx_product_id (product_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    product_id BIGINT NOT NULL,
	    customer_id BIGINT NOT NULL,
	    rating TINYINT NOT NULL,
	    comment TEXT NOT NULL,
	    created_at DATETIME(6) NOT NULL,
	    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
	    FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE,
	    UNIQUE KEY uk_product_customer (product_id, customer_id),
	    INDEX idx_rating (rating),
	    CONSTRAINT chk_rating CHECK (rating BETWEEN 1 AND 5)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    username VARCHAR(150) NOT NULL,
	    email VARCHAR(254) NOT NULL DEFAULT '',
	    password_hash VARCHAR(255) NOT NULL,
	    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
	    created_at DATETIME(6) NOT NULL,
	    UNIQUE KEY uk_username (username),
	    UNIQUE KEY uk_users_email ((NULLIF(email, '')))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS auth_tokens (
	    token_key VARCHAR(64) PRIMARY KEY,
	    user_id BIGINT NOT NULL,
	    created_at DATETIME(6) NOT NULL,
	    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	    UNIQUE KEY uk_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    name TEXT NOT NULL,
	    email TEXT NOT NULL UNIQUE,
	    phone TEXT NOT NULL DEFAULT '',
	    address TEXT NOT NULL DEFAULT '',
	    created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name)`,

	`CREATE TABLE IF NOT EXISTS products (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    name TEXT NOT NULL,
	    description TEXT NOT NULL DEFAULT '',
	    price NUMERIC NOT NULL,
	    category TEXT NOT NULL,
	    stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	    created_at DATETIME NOT NULL,
	    updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,

	`CREATE TABLE IF NOT EXISTS orders (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	    order_date DATETIME NOT NULL,
	    status TEXT NOT NULL DEFAULT 'pending'
	        CHECK (status IN ('pending', 'processing', 'shipped', 'delivered', 'cancelled')),
	    updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,

	`CREATE TABLE IF NOT EXISTS order_items (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	    product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	    quantity INTEGER NOT NULL CHECK (quantity > 0),
	    price NUMERIC NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,

	`CREATE TABLE IF NOT EXISTS reviews (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	    customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	    comment TEXT NOT NULL DEFAULT '',
	    created_at DATETIME NOT NULL,
	    UNIQUE (product_id, customer_id)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    username TEXT NOT NULL UNIQUE,
	    email TEXT NOT NULL DEFAULT '',
	    password_hash TEXT NOT NULL,
	    is_staff BOOLEAN NOT NULL DEFAULT 0,
	    created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_users_email ON users(email) WHERE email <> ''`,

	`CREATE TABLE IF NOT EXISTS auth_tokens (
	    token_key TEXT PRIMARY KEY,
	    user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	    created_at DATETIME NOT NULL
	)`,
}

// tables in dependency order, children last
var tables = []string{"customers", "products", "orders", "order_items", "reviews", "users", "auth_tokens"}

// SetupSchema creates every table the back office needs
func (db *DB) SetupSchema(ctx context.Context) error {
	statements := mysqlSchema
	if db.Dialect == SQLite {
		statements = sqliteSchema
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

// CleanupData removes all rows (but keeps schema)
func (db *DB) CleanupData(ctx context.Context) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+tables[i]); err != nil {
			return err
		}
	}

	return nil
}

// DropSchema removes all tables
func (db *DB) DropSchema(ctx context.Context) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tables[i]); err != nil {
			return err
		}
	}

	return nil
}
