package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dbrest/internal/database"
)

// RecordRepository executes generated statements against the gateway
// database. Reads run directly on the pool; every write runs in its own
// transaction that is committed before returning.
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *database.DB) *RecordRepository {
	return &RecordRepository{db: db.DB}
}

// Query runs a read and returns each row as a column -> value map.
func (r *RecordRepository) Query(ctx context.Context, stmt database.Statement) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Insert runs an INSERT in a transaction and returns the generated key, or
// nil when the driver cannot report one.
func (r *RecordRepository) Insert(ctx context.Context, stmt database.Statement) (any, error) {
	var id any
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if stmt.Returning {
			return tx.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&id)
		}
		result, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		if last, err := result.LastInsertId(); err == nil && last != 0 {
			id = last
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NormalizeValue(id), nil
}

// Exec runs an UPDATE or DELETE in a transaction and returns the number of
// affected rows.
func (r *RecordRepository) Exec(ctx context.Context, stmt database.Statement) (int64, error) {
	var affected int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

func (r *RecordRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// Start transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = NormalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return resultRows, nil
}

// NormalizeValue converts driver values into JSON friendly ones.
func NormalizeValue(val any) any {
	switch v := val.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return v
	}
}
