package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"dbrest/internal/config"
	"dbrest/internal/logger"
)

// DB is the gateway's handle on the backing database: a database/sql pool
// plus the dialect used to generate SQL for it.
type DB struct {
	*sql.DB
	Dialect Dialect

	pool *pgxpool.Pool
}

// New wraps an already opened *sql.DB.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Close releases the database/sql pool and, for PostgreSQL, the pgx pool
// underneath it.
func (db *DB) Close() error {
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("Database connection pool closed")
	return err
}

// Connect opens and pings the configured database.
func Connect(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	driver := config.NormalizeDriver(cfg.Type)
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	dsn, err := config.BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *DB
	switch driver {
	case "postgres":
		db, err = connectPostgres(ctx, dsn, cfg.MaxConns)
	case "mysql":
		db, err = openSQL("mysql", withMySQLOptions(dsn), cfg.MaxConns)
	case "sqlserver":
		db, err = openSQL("sqlserver", dsn, cfg.MaxConns)
	case "sqlite":
		// a single connection keeps writers from tripping over SQLITE_BUSY and
		// lets :memory: databases survive between requests
		db, err = openSQL("sqlite", withBusyTimeout(dsn), 1)
	}
	if err != nil {
		return nil, err
	}
	db.Dialect = dialect

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection pool established successfully (%s)", driver)
	return db, nil
}

func connectPostgres(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string (check your .env file): %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	logger.Info("Connecting to database: postgres://%s:***@%s:%d/%s",
		config.ConnConfig.User, config.ConnConfig.Host, config.ConnConfig.Port, config.ConnConfig.Database)

	return &DB{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

func openSQL(driver, dsn string, maxConns int) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	if driver != "sqlite" {
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(1 * time.Minute)
	}
	return &DB{DB: sqlDB}, nil
}

// withMySQLOptions makes the MySQL driver return DATETIME columns as
// time.Time and report matched rather than changed rows for UPDATE, so
// repeating an update is not mistaken for a missing row.
func withMySQLOptions(dsn string) string {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		// let sql.Open report the malformed DSN
		return dsn
	}
	mc.ParseTime = true
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

func withBusyTimeout(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}
