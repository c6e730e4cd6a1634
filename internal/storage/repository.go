package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fleetledger/internal/core"
	"fleetledger/internal/ledger"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

const selectTransaction = `SELECT id, vehicle_id, transaction_type, category, amount, date, month,
	description, employee_id, invoice_id, purchase_order_id, quote_id, created_at, updated_at
	FROM vehicle_transactions`

// SQLiteRepository stores the ledger and its reference tables in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Store    = (*SQLiteRepository)(nil)
	_ ledger.Resolver = (*SQLiteRepository)(nil)
)

// DSN returns the connection string for dbPath with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps SQLite writers serialized and pragmas applied.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Reference tables

func (r *SQLiteRepository) UpsertVehicle(ctx context.Context, id string) error {
	return r.upsertRef(ctx, "vehicles", id)
}

func (r *SQLiteRepository) UpsertEmployee(ctx context.Context, id string) error {
	return r.upsertRef(ctx, "employees", id)
}

func (r *SQLiteRepository) UpsertInvoice(ctx context.Context, id string) error {
	return r.upsertRef(ctx, "invoices", id)
}

func (r *SQLiteRepository) UpsertPurchaseOrder(ctx context.Context, id string) error {
	return r.upsertRef(ctx, "purchase_orders", id)
}

func (r *SQLiteRepository) UpsertQuote(ctx context.Context, id string) error {
	return r.upsertRef(ctx, "quotes", id)
}

func (r *SQLiteRepository) VehicleExists(ctx context.Context, id string) (bool, error) {
	return r.refExists(ctx, "vehicles", id)
}

func (r *SQLiteRepository) EmployeeExists(ctx context.Context, id string) (bool, error) {
	return r.refExists(ctx, "employees", id)
}

func (r *SQLiteRepository) InvoiceExists(ctx context.Context, id string) (bool, error) {
	return r.refExists(ctx, "invoices", id)
}

func (r *SQLiteRepository) PurchaseOrderExists(ctx context.Context, id string) (bool, error) {
	return r.refExists(ctx, "purchase_orders", id)
}

func (r *SQLiteRepository) QuoteExists(ctx context.Context, id string) (bool, error) {
	return r.refExists(ctx, "quotes", id)
}

// ListVehicleIDs returns every registered vehicle id, sorted.
func (r *SQLiteRepository) ListVehicleIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, core.NewStorageError("list vehicles", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.NewStorageError("scan vehicle", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list vehicles", err)
	}
	return ids, nil
}

// table names are fixed by the callers above, never user input.
func (r *SQLiteRepository) upsertRef(ctx context.Context, table, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &core.RangeError{Message: "id cannot be empty"}
	}
	q := fmt.Sprintf(`INSERT INTO %s (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, table)
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return core.NewStorageError("upsert "+table, err)
	}
	return nil
}

func (r *SQLiteRepository) refExists(ctx context.Context, table, id string) (bool, error) {
	q := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table)
	var one int
	err := r.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, core.NewStorageError("lookup "+table, err)
	}
	return true, nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO vehicle_transactions (
		id, vehicle_id, transaction_type, category, amount, date, month, description,
		employee_id, invoice_id, purchase_order_id, quote_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.VehicleID, string(tx.Type), tx.Category, tx.Amount.String(), tx.Date.String(),
		tx.Month.String(), tx.Description,
		nullable(tx.EmployeeID), nullable(tx.InvoiceID), nullable(tx.PurchaseOrderID), nullable(tx.QuoteID),
		tx.CreatedAt.UTC().Format(timeLayout), tx.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return core.NewStorageError("insert transaction", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"vehicle_id", tx.VehicleID,
		"amount", tx.Amount.String(),
		"month", tx.Month.String())
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: core.EntityTransaction, ID: id}
	}
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get transaction", err)
	}
	return tx, nil
}

// ListTransactions returns matching rows ordered by date, creation time and id.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter ledger.ListFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.Month != nil {
		where = append(where, "month = ?")
		args = append(args, filter.Month.String())
	}
	q := selectTransaction
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.NewStorageError("list transactions", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, core.NewStorageError("scan transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list transactions", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `UPDATE vehicle_transactions SET
		vehicle_id = ?, transaction_type = ?, category = ?, amount = ?, date = ?, month = ?,
		description = ?, employee_id = ?, invoice_id = ?, purchase_order_id = ?, quote_id = ?,
		updated_at = ?
		WHERE id = ?`,
		tx.VehicleID, string(tx.Type), tx.Category, tx.Amount.String(), tx.Date.String(),
		tx.Month.String(), tx.Description,
		nullable(tx.EmployeeID), nullable(tx.InvoiceID), nullable(tx.PurchaseOrderID), nullable(tx.QuoteID),
		tx.UpdatedAt.UTC().Format(timeLayout), tx.ID)
	if err != nil {
		return core.NewStorageError("update transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("update transaction", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: core.EntityTransaction, ID: tx.ID}
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicle_transactions WHERE id = ?`, id)
	if err != nil {
		return false, core.NewStorageError("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, core.NewStorageError("delete transaction", err)
	}
	return n > 0, nil
}

// DeleteVehicle removes the vehicle and its transactions in one transaction.
func (r *SQLiteRepository) DeleteVehicle(ctx context.Context, vehicleID string) (int64, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.NewStorageError("begin delete vehicle", err)
	}
	defer dbtx.Rollback()

	var one int
	err = dbtx.QueryRowContext(ctx, `SELECT 1 FROM vehicles WHERE id = ?`, vehicleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &core.NotFoundError{Entity: core.EntityVehicle, ID: vehicleID}
	}
	if err != nil {
		return 0, core.NewStorageError("lookup vehicle", err)
	}

	res, err := dbtx.ExecContext(ctx, `DELETE FROM vehicle_transactions WHERE vehicle_id = ?`, vehicleID)
	if err != nil {
		return 0, core.NewStorageError("delete vehicle transactions", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStorageError("delete vehicle transactions", err)
	}
	if _, err := dbtx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, vehicleID); err != nil {
		return 0, core.NewStorageError("delete vehicle", err)
	}
	if err := dbtx.Commit(); err != nil {
		return 0, core.NewStorageError("commit delete vehicle", err)
	}
	return removed, nil
}

// NormalizeMonthKeys rewrites legacy unpadded month keys (2025-1) into the
// canonical form. Rows whose key cannot be parsed are re-derived from their
// date. Returns the number of rows rewritten.
func (r *SQLiteRepository) NormalizeMonthKeys(ctx context.Context) (int64, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.NewStorageError("begin normalize months", err)
	}
	defer dbtx.Rollback()

	rows, err := dbtx.QueryContext(ctx, `SELECT id, month, date FROM vehicle_transactions`)
	if err != nil {
		return 0, core.NewStorageError("scan month keys", err)
	}
	fixes := map[string]string{}
	for rows.Next() {
		var id, month, date string
		if err := rows.Scan(&id, &month, &date); err != nil {
			rows.Close()
			return 0, core.NewStorageError("scan month keys", err)
		}
		canonical, err := core.NormalizeMonthKey(month)
		if err != nil {
			d, derr := core.ParseDate(date)
			if derr != nil {
				rows.Close()
				return 0, fmt.Errorf("transaction %s: unusable month %q and date %q: %w", id, month, date, derr)
			}
			canonical = core.MonthOf(d.Time).String()
		}
		if canonical != month {
			fixes[id] = canonical
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, core.NewStorageError("scan month keys", err)
	}
	rows.Close()

	for id, month := range fixes {
		if _, err := dbtx.ExecContext(ctx, `UPDATE vehicle_transactions SET month = ? WHERE id = ?`, month, id); err != nil {
			return 0, core.NewStorageError("normalize month key", err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, core.NewStorageError("commit normalize months", err)
	}

	slog.InfoContext(ctx, "Month keys normalized", "rows", len(fixes))
	return int64(len(fixes)), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                                 core.Transaction
		typ, amount, date, month           string
		created, updated                   string
		employee, invoice, purchase, quote sql.NullString
	)
	if err := s.Scan(&tx.ID, &tx.VehicleID, &typ, &tx.Category, &amount, &date, &month,
		&tx.Description, &employee, &invoice, &purchase, &quote, &created, &updated); err != nil {
		return core.Transaction{}, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: amount %q: %w", tx.ID, amount, err)
	}
	tx.Amount = core.NewMoney(d)
	tx.Type = core.TransactionType(typ)
	if tx.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Month, err = core.ParseMonth(month); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: created_at: %w", tx.ID, err)
	}
	if tx.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: updated_at: %w", tx.ID, err)
	}
	tx.EmployeeID = fromNull(employee)
	tx.InvoiceID = fromNull(invoice)
	tx.PurchaseOrderID = fromNull(purchase)
	tx.QuoteID = fromNull(quote)
	return tx, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
