package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	sqlsafe "github.com/shopquery-inc/shopquery-engine/pkg/sql"
)

// Queryer is the read surface of a connection pool. Satisfied by
// *pgxpool.Pool and by pool mocks in tests.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryResult is the transport-ready shape of an executed query.
// Row order follows the database's natural result order.
type QueryResult struct {
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// Executor runs validated statements with a bounded timeout and row cap.
type Executor struct {
	pool     Queryer
	timeout  time.Duration
	rowLimit int
	logger   *zap.Logger
}

// NewExecutor creates an executor over the given pool. rowLimit caps result
// rows; timeout bounds every execution.
func NewExecutor(pool Queryer, timeout time.Duration, rowLimit int, logger *zap.Logger) *Executor {
	return &Executor{
		pool:     pool,
		timeout:  timeout,
		rowLimit: rowLimit,
		logger:   logger.Named("executor"),
	}
}

// Execute runs a validated statement and shapes rows for transport. The
// statement text is executed as-is - no further interpolation or escaping
// happens here; the type system guarantees it already passed validation.
//
// The statement is wrapped with LIMIT rowLimit+1 so truncation can be
// detected: if the extra row comes back, the result is capped at rowLimit
// and flagged Truncated. Zero rows is a success.
func (e *Executor) Execute(ctx context.Context, validated sqlsafe.ValidatedQuery) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", validated.SQL(), e.rowLimit+1)

	start := time.Now()
	rows, err := e.pool.Query(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	truncated := false
	if len(resultRows) > e.rowLimit {
		resultRows = resultRows[:e.rowLimit]
		truncated = true
	}

	e.logger.Debug("query executed",
		zap.Int("rows", len(resultRows)),
		zap.Bool("truncated", truncated),
		zap.Duration("elapsed", time.Since(start)))

	return &QueryResult{
		SQL:       validated.SQL(),
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}
