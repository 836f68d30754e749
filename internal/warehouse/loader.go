// Package warehouse loads the cleaned fact table into a MySQL star schema:
// time, customer, and product dimensions plus a sales fact table. Each load
// is recorded in an audit table under a unique run ID.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"retail-analytics/internal/models"
)

type Loader struct {
	db        *sql.DB
	logger    *slog.Logger
	batchSize int
}

// Open connects to the warehouse database. The DSN must enable parseTime.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func NewLoader(db *sql.DB, batchSize int, logger *slog.Logger) *Loader {
	return &Loader{db: db, logger: logger, batchSize: batchSize}
}

// LoadAll loads dimensions then facts, recording the run in the audit table.
func (l *Loader) LoadAll(ctx context.Context, facts []models.Transaction) error {
	runID := uuid.NewString()
	start := time.Now()

	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO load_runs (run_id, started_at, status) VALUES (?, ?, 'running')`,
		runID, start); err != nil {
		return fmt.Errorf("record load run: %w", err)
	}

	l.logger.Info("warehouse load started", "run_id", runID, "facts", len(facts))

	timeIDs, err := l.loadTimeDimension(ctx, facts)
	if err != nil {
		return l.fail(ctx, runID, err)
	}
	if err := l.loadCustomerDimension(ctx, facts); err != nil {
		return l.fail(ctx, runID, err)
	}
	if err := l.loadProductDimension(ctx, facts); err != nil {
		return l.fail(ctx, runID, err)
	}
	loaded, err := l.loadSalesFact(ctx, facts, timeIDs)
	if err != nil {
		return l.fail(ctx, runID, err)
	}

	if _, err := l.db.ExecContext(ctx,
		`UPDATE load_runs SET finished_at = ?, fact_rows = ?, status = 'done' WHERE run_id = ?`,
		time.Now(), loaded, runID); err != nil {
		return fmt.Errorf("finish load run: %w", err)
	}

	l.logger.Info("warehouse load complete",
		"run_id", runID,
		"fact_rows", loaded,
		"duration", time.Since(start))
	return nil
}

func (l *Loader) fail(ctx context.Context, runID string, cause error) error {
	if _, err := l.db.ExecContext(ctx,
		`UPDATE load_runs SET finished_at = ?, status = 'failed' WHERE run_id = ?`,
		time.Now(), runID); err != nil {
		l.logger.Error("failed to mark load run failed", "run_id", runID, "error", err)
	}
	return cause
}

func (l *Loader) loadTimeDimension(ctx context.Context, facts []models.Transaction) (map[time.Time]int64, error) {
	distinct := make(map[time.Time]struct{})
	for _, tx := range facts {
		distinct[tx.Date] = struct{}{}
	}

	dbtx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin time dimension load: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT IGNORE INTO time_dim (invoice_date, year, quarter, month, day) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare time dimension insert: %w", err)
	}
	defer stmt.Close()

	for date := range distinct {
		quarter := (int(date.Month())-1)/3 + 1
		if _, err := stmt.ExecContext(ctx, date, date.Year(), quarter, int(date.Month()), date.Day()); err != nil {
			return nil, fmt.Errorf("insert time dimension: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit time dimension: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, `SELECT time_id, invoice_date FROM time_dim`)
	if err != nil {
		return nil, fmt.Errorf("read time dimension: %w", err)
	}
	defer rows.Close()

	ids := make(map[time.Time]int64, len(distinct))
	for rows.Next() {
		var id int64
		var date time.Time
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("scan time dimension: %w", err)
		}
		ids[date.UTC()] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time dimension: %w", err)
	}

	l.logger.Info("time dimension loaded", "dates", len(distinct))
	return ids, nil
}

func (l *Loader) loadCustomerDimension(ctx context.Context, facts []models.Transaction) error {
	type customer struct{ id, country string }
	distinct := make(map[string]customer)
	for _, tx := range facts {
		distinct[tx.CustomerID] = customer{tx.CustomerID, tx.Country}
	}

	dbtx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin customer dimension load: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT IGNORE INTO customer_dim (customer_id, country) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare customer dimension insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range distinct {
		if _, err := stmt.ExecContext(ctx, c.id, c.country); err != nil {
			return fmt.Errorf("insert customer dimension: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit customer dimension: %w", err)
	}

	l.logger.Info("customer dimension loaded", "customers", len(distinct))
	return nil
}

func (l *Loader) loadProductDimension(ctx context.Context, facts []models.Transaction) error {
	type product struct {
		description string
		price       float64
	}
	distinct := make(map[string]product)
	for _, tx := range facts {
		if _, ok := distinct[tx.StockCode]; !ok {
			distinct[tx.StockCode] = product{tx.Description, tx.UnitPrice}
		}
	}

	dbtx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin product dimension load: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT IGNORE INTO product_dim (stock_code, description, unit_price) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare product dimension insert: %w", err)
	}
	defer stmt.Close()

	for code, p := range distinct {
		if _, err := stmt.ExecContext(ctx, code, p.description, p.price); err != nil {
			return fmt.Errorf("insert product dimension: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit product dimension: %w", err)
	}

	l.logger.Info("product dimension loaded", "products", len(distinct))
	return nil
}

func (l *Loader) loadSalesFact(ctx context.Context, facts []models.Transaction, timeIDs map[time.Time]int64) (int, error) {
	loaded := 0

	for offset := 0; offset < len(facts); offset += l.batchSize {
		end := offset + l.batchSize
		if end > len(facts) {
			end = len(facts)
		}

		dbtx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return loaded, fmt.Errorf("begin fact batch: %w", err)
		}

		stmt, err := dbtx.PrepareContext(ctx,
			`INSERT INTO sales_fact (invoice, customer_id, stock_code, time_id, quantity, total_amount)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			dbtx.Rollback()
			return loaded, fmt.Errorf("prepare fact insert: %w", err)
		}

		for _, tx := range facts[offset:end] {
			timeID, ok := timeIDs[tx.Date.UTC()]
			if !ok {
				// Date missed the dimension load; skip rather than break referential integrity.
				l.logger.Warn("no time dimension entry for fact", "invoice", tx.InvoiceNo, "date", tx.Date)
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				tx.InvoiceNo, tx.CustomerID, tx.StockCode, timeID, tx.Quantity, tx.Amount); err != nil {
				stmt.Close()
				dbtx.Rollback()
				return loaded, fmt.Errorf("insert sales fact: %w", err)
			}
			loaded++
		}

		stmt.Close()
		if err := dbtx.Commit(); err != nil {
			return loaded, fmt.Errorf("commit fact batch: %w", err)
		}

		l.logger.Debug("fact batch committed", "offset", offset, "rows", end-offset)
	}

	return loaded, nil
}
