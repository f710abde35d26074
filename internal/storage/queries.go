package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID          int64
	UserID      string
	Description string
	Amount      decimal.Decimal
	OccurredAt  string
	Category    string
	Type        string
	CreatedAt   string
}

type Forecast struct {
	ID          string
	UserID      string
	Category    string
	ModelType   string
	DaysAhead   int64
	Status      string
	Result      sql.NullString
	Error       string
	CreatedAt   string
	CompletedAt sql.NullString
}

const createTransaction = `INSERT INTO transactions (user_id, description, amount, occurred_at, category, type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, user_id, description, amount, occurred_at, category, type, created_at`

type CreateTransactionParams struct {
	UserID      string
	Description string
	Amount      decimal.Decimal
	OccurredAt  string
	Category    string
	Type        string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.Description,
		arg.Amount,
		arg.OccurredAt,
		arg.Category,
		arg.Type,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Description,
		&i.Amount,
		&i.OccurredAt,
		&i.Category,
		&i.Type,
		&i.CreatedAt,
	)
	return i, err
}

// Empty category or type parameters match every row.
const listTransactions = `SELECT id, user_id, description, amount, occurred_at, category, type, created_at
FROM transactions
WHERE user_id = ?1
  AND (?2 = '' OR category = ?2)
  AND (?3 = '' OR type = ?3)
ORDER BY occurred_at ASC, id ASC
LIMIT ?4`

type ListTransactionsParams struct {
	UserID   string
	Category string
	Type     string
	Limit    int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.UserID, arg.Category, arg.Type, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Description,
			&i.Amount,
			&i.OccurredAt,
			&i.Category,
			&i.Type,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createForecast = `INSERT INTO forecasts (id, user_id, category, model_type, days_ahead, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateForecastParams struct {
	ID        string
	UserID    string
	Category  string
	ModelType string
	DaysAhead int64
	Status    string
	CreatedAt string
}

func (q *Queries) CreateForecast(ctx context.Context, arg CreateForecastParams) error {
	_, err := q.db.ExecContext(ctx, createForecast,
		arg.ID,
		arg.UserID,
		arg.Category,
		arg.ModelType,
		arg.DaysAhead,
		arg.Status,
		arg.CreatedAt,
	)
	return err
}

const finishForecast = `UPDATE forecasts
SET status = ?, result = ?, error = ?, completed_at = ?
WHERE id = ?`

type FinishForecastParams struct {
	Status      string
	Result      sql.NullString
	Error       string
	CompletedAt string
	ID          string
}

func (q *Queries) FinishForecast(ctx context.Context, arg FinishForecastParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, finishForecast,
		arg.Status,
		arg.Result,
		arg.Error,
		arg.CompletedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getForecast = `SELECT id, user_id, category, model_type, days_ahead, status, result, error, created_at, completed_at
FROM forecasts
WHERE id = ?`

func (q *Queries) GetForecast(ctx context.Context, id string) (Forecast, error) {
	row := q.db.QueryRowContext(ctx, getForecast, id)
	var i Forecast
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Category,
		&i.ModelType,
		&i.DaysAhead,
		&i.Status,
		&i.Result,
		&i.Error,
		&i.CreatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const listForecastsByUser = `SELECT id, user_id, category, model_type, days_ahead, status, result, error, created_at, completed_at
FROM forecasts
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`

type ListForecastsByUserParams struct {
	UserID string
	Limit  int64
}

func (q *Queries) ListForecastsByUser(ctx context.Context, arg ListForecastsByUserParams) ([]Forecast, error) {
	rows, err := q.db.QueryContext(ctx, listForecastsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Forecast
	for rows.Next() {
		var i Forecast
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Category,
			&i.ModelType,
			&i.DaysAhead,
			&i.Status,
			&i.Result,
			&i.Error,
			&i.CreatedAt,
			&i.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
