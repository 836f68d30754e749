package warehouse

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS time_dim (
		time_id INT AUTO_INCREMENT PRIMARY KEY,
		invoice_date DATETIME NOT NULL,
		year INT NOT NULL,
		quarter INT NOT NULL,
		month INT NOT NULL,
		day INT NOT NULL,
		UNIQUE KEY uq_time_invoice_date (invoice_date)
	)`,
	`CREATE TABLE IF NOT EXISTS customer_dim (
		customer_id VARCHAR(32) PRIMARY KEY,
		country VARCHAR(64) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_dim (
		stock_code VARCHAR(32) PRIMARY KEY,
		description VARCHAR(255),
		unit_price DECIMAL(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_fact (
		sales_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		invoice VARCHAR(32) NOT NULL,
		customer_id VARCHAR(32) NOT NULL,
		stock_code VARCHAR(32) NOT NULL,
		time_id INT NOT NULL,
		quantity INT NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		KEY idx_sales_customer (customer_id),
		KEY idx_sales_time (time_id),
		CONSTRAINT fk_sales_time FOREIGN KEY (time_id) REFERENCES time_dim (time_id)
	)`,
	`CREATE TABLE IF NOT EXISTS load_runs (
		run_id CHAR(36) PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		fact_rows INT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL
	)`,
}

// EnsureSchema creates the star-schema tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
