// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	q  queries
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, q: queries{db: db}}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Portfolios table
	CREATE TABLE IF NOT EXISTS portfolios (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		initial_value TEXT NOT NULL,
		current_value TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);

	-- Holdings table. The version column is the optimistic-concurrency
	-- token for shares_sold updates; the CHECK mirrors the bounds
	-- invariant as a last line of defense.
	CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		company_name TEXT,
		shares INTEGER NOT NULL CHECK (shares > 0),
		shares_sold INTEGER NOT NULL DEFAULT 0 CHECK (shares_sold >= 0 AND shares_sold <= shares),
		purchase_price TEXT NOT NULL,
		current_price TEXT NOT NULL,
		purchased_at DATETIME NOT NULL,
		price_updated DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (portfolio_id) REFERENCES portfolios(id)
	);

	-- Sell transactions table
	CREATE TABLE IF NOT EXISTS sell_transactions (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		holding_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		company_name TEXT,
		shares INTEGER NOT NULL CHECK (shares > 0),
		price TEXT NOT NULL,
		date DATETIME NOT NULL,
		note TEXT,
		created_at DATETIME NOT NULL
	);

	-- Performance snapshots table
	CREATE TABLE IF NOT EXISTS performance_snapshots (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		value TEXT NOT NULL,
		gain_loss TEXT NOT NULL,
		gain_loss_percent TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		FOREIGN KEY (portfolio_id) REFERENCES portfolios(id)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_portfolios_user ON portfolios(user_id);
	CREATE INDEX IF NOT EXISTS idx_holdings_portfolio ON holdings(portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_holding ON sell_transactions(holding_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON sell_transactions(portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_portfolio ON performance_snapshots(portfolio_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ExecTx runs fn inside a single database transaction. SQLite busy and
// locked errors are mapped to errors.ErrConflict so callers treat them
// like a lost optimistic-concurrency race and retry.
func (s *SQLiteStore) ExecTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(err)
	}
	defer tx.Rollback()

	if err := fn(queries{db: tx}); err != nil {
		return mapSQLiteErr(err)
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

// mapSQLiteErr converts lock-contention errors into ErrConflict and leaves
// everything else untouched.
func mapSQLiteErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", errors.ErrConflict, err)
		}
	}
	return err
}

// dbtx is the subset of sql.DB / sql.Tx the query layer needs.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries implements Queries over either a bare connection or a
// transaction.
type queries struct {
	db dbtx
}

var _ Queries = queries{}

// ============================================================================
// Portfolio methods
// ============================================================================

// CreatePortfolio inserts a new portfolio.
func (s *SQLiteStore) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, user_id, name, description, initial_value, current_value, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Name, p.Description, p.InitialValue, p.CurrentValue, p.CreatedAt, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// GetPortfolio retrieves a portfolio by id.
func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, initial_value, current_value, created_at, last_updated
		FROM portfolios WHERE id = ?
	`, id)

	var p models.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.InitialValue, &p.CurrentValue, &p.CreatedAt, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "portfolio %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}
	return &p, nil
}

// ListPortfolios retrieves all portfolios for a user.
func (s *SQLiteStore) ListPortfolios(ctx context.Context, userID string) ([]models.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, initial_value, current_value, created_at, last_updated
		FROM portfolios WHERE user_id = ? ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.InitialValue, &p.CurrentValue, &p.CreatedAt, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// UpdatePortfolioRollup writes the cached rollup value and timestamp.
func (s *SQLiteStore) UpdatePortfolioRollup(ctx context.Context, id string, currentValue decimal.Decimal, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE portfolios SET current_value = ?, last_updated = ? WHERE id = ?
	`, currentValue, at, id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio rollup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "portfolio %s", id)
	}
	return nil
}

// DeletePortfolio removes a portfolio, its holdings and their transactions
// in one transaction.
func (s *SQLiteStore) DeletePortfolio(ctx context.Context, id string) error {
	return s.ExecTx(ctx, func(q Queries) error {
		qq := q.(queries)
		if _, err := qq.db.ExecContext(ctx, `DELETE FROM sell_transactions WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if _, err := qq.db.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete holdings: %w", err)
		}
		if _, err := qq.db.ExecContext(ctx, `DELETE FROM performance_snapshots WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}
		res, err := qq.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(errors.ErrNotFound, "portfolio %s", id)
		}
		return nil
	})
}

// ============================================================================
// Holding methods
// ============================================================================

// CreateHolding inserts a new holding.
func (s *SQLiteStore) CreateHolding(ctx context.Context, h *models.Holding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (id, portfolio_id, symbol, company_name, shares, shares_sold, purchase_price, current_price, purchased_at, price_updated, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.PortfolioID, h.Symbol, h.CompanyName, h.Shares, h.SharesSold, h.PurchasePrice, h.CurrentPrice, h.PurchasedAt, h.PriceUpdated, h.Version)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}

// GetHolding retrieves a holding by id.
func (s *SQLiteStore) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	return s.q.GetHolding(ctx, id)
}

func (q queries) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, portfolio_id, symbol, company_name, shares, shares_sold, purchase_price, current_price, purchased_at, price_updated, version
		FROM holdings WHERE id = ?
	`, id)

	var h models.Holding
	err := row.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.CompanyName, &h.Shares, &h.SharesSold,
		&h.PurchasePrice, &h.CurrentPrice, &h.PurchasedAt, &h.PriceUpdated, &h.Version)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "holding %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	return &h, nil
}

// ListHoldings retrieves all holdings of a portfolio.
func (s *SQLiteStore) ListHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, symbol, company_name, shares, shares_sold, purchase_price, current_price, purchased_at, price_updated, version
		FROM holdings WHERE portfolio_id = ? ORDER BY purchased_at ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.CompanyName, &h.Shares, &h.SharesSold,
			&h.PurchasePrice, &h.CurrentPrice, &h.PurchasedAt, &h.PriceUpdated, &h.Version); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// UpdateHoldingPrice writes the current price and refresh timestamp. Price
// fields are not version-guarded: a lost update here is cosmetic staleness,
// and the sold counter is untouched.
func (s *SQLiteStore) UpdateHoldingPrice(ctx context.Context, id string, price decimal.Decimal, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE holdings SET current_price = ?, price_updated = ? WHERE id = ?
	`, price, at, id)
	if err != nil {
		return fmt.Errorf("failed to update holding price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "holding %s", id)
	}
	return nil
}

// DeleteHolding removes a holding and cascade-deletes its sell
// transactions so the sum invariant stays defined at all times.
func (s *SQLiteStore) DeleteHolding(ctx context.Context, id string) error {
	return s.ExecTx(ctx, func(q Queries) error {
		qq := q.(queries)
		if _, err := qq.db.ExecContext(ctx, `DELETE FROM sell_transactions WHERE holding_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		res, err := qq.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(errors.ErrNotFound, "holding %s", id)
		}
		return nil
	})
}

func (q queries) UpdateHoldingSharesSold(ctx context.Context, id string, sharesSold, expectedVersion int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE holdings SET shares_sold = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, sharesSold, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update shares sold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the holding vanished or someone else won the race.
		var exists int
		if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM holdings WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return errors.Wrapf(errors.ErrNotFound, "holding %s", id)
		}
		return errors.Wrapf(errors.ErrConflict, "holding %s version %d", id, expectedVersion)
	}
	return nil
}

// ============================================================================
// Sell transaction methods
// ============================================================================

// GetTransaction retrieves a sell transaction by id.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.SellTransaction, error) {
	return s.q.GetTransaction(ctx, id)
}

func (q queries) GetTransaction(ctx context.Context, id string) (*models.SellTransaction, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, portfolio_id, holding_id, symbol, company_name, shares, price, date, note, created_at
		FROM sell_transactions WHERE id = ?
	`, id)

	var t models.SellTransaction
	err := row.Scan(&t.ID, &t.PortfolioID, &t.HoldingID, &t.Symbol, &t.CompanyName,
		&t.Shares, &t.Price, &t.Date, &t.Note, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "transaction %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

func (q queries) InsertTransaction(ctx context.Context, t *models.SellTransaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sell_transactions (id, portfolio_id, holding_id, symbol, company_name, shares, price, date, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.PortfolioID, t.HoldingID, t.Symbol, t.CompanyName, t.Shares, t.Price, t.Date, t.Note, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (q queries) UpdateTransaction(ctx context.Context, t *models.SellTransaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE sell_transactions SET shares = ?, price = ?, date = ?, note = ? WHERE id = ?
	`, t.Shares, t.Price, t.Date, t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "transaction %s", t.ID)
	}
	return nil
}

func (q queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sell_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "transaction %s", id)
	}
	return nil
}

// ListTransactions retrieves all sell transactions of a portfolio, newest
// first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, portfolioID string) ([]models.SellTransaction, error) {
	return s.listTransactions(ctx, `portfolio_id`, portfolioID)
}

// ListHoldingTransactions retrieves all sell transactions of one holding,
// newest first.
func (s *SQLiteStore) ListHoldingTransactions(ctx context.Context, holdingID string) ([]models.SellTransaction, error) {
	return s.listTransactions(ctx, `holding_id`, holdingID)
}

func (s *SQLiteStore) listTransactions(ctx context.Context, column, id string) ([]models.SellTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, holding_id, symbol, company_name, shares, price, date, note, created_at
		FROM sell_transactions WHERE `+column+` = ? ORDER BY date DESC, created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.SellTransaction
	for rows.Next() {
		var t models.SellTransaction
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.HoldingID, &t.Symbol, &t.CompanyName,
			&t.Shares, &t.Price, &t.Date, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// SumSoldShares returns the sum of shares across all sell transactions of
// a holding.
func (s *SQLiteStore) SumSoldShares(ctx context.Context, holdingID string) (int64, error) {
	return s.q.SumSoldShares(ctx, holdingID)
}

func (q queries) SumSoldShares(ctx context.Context, holdingID string) (int64, error) {
	var sum sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(shares) FROM sell_transactions WHERE holding_id = ?
	`, holdingID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sold shares: %w", err)
	}
	return sum.Int64, nil
}

// ============================================================================
// Performance snapshot methods
// ============================================================================

// SaveSnapshot inserts a performance snapshot. Snapshots are append-only
// and never updated.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *models.PerformanceSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_snapshots (id, portfolio_id, value, gain_loss, gain_loss_percent, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.PortfolioID, snap.Value, snap.GainLoss, snap.GainLossPercent, snap.TakenAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// ListSnapshots retrieves all snapshots of a portfolio, oldest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, portfolioID string) ([]models.PerformanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, value, gain_loss, gain_loss_percent, taken_at
		FROM performance_snapshots WHERE portfolio_id = ? ORDER BY taken_at ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.PerformanceSnapshot
	for rows.Next() {
		var sn models.PerformanceSnapshot
		if err := rows.Scan(&sn.ID, &sn.PortfolioID, &sn.Value, &sn.GainLoss, &sn.GainLossPercent, &sn.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}
