package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ReturningStyle says how an INSERT hands back the generated key.
type ReturningStyle int

const (
	// ReturningClause appends RETURNING <key> (PostgreSQL, SQLite).
	ReturningClause ReturningStyle = iota
	// OutputInserted places OUTPUT INSERTED.<key> before VALUES (SQL Server).
	OutputInserted
	// LastInsertID reads the key from sql.Result (MySQL).
	LastInsertID
)

// Dialect holds the engine specific bits of SQL generation. Implementations
// are stateless and safe for concurrent use.
type Dialect interface {
	// Name is the canonical driver key: postgres, mysql, sqlserver or sqlite.
	Name() string

	// QuoteIdent quotes an identifier for safe use in SQL.
	QuoteIdent(ident string) string

	// Placeholder returns the bind parameter marker for position i (1-indexed).
	Placeholder(position int) string

	// Table returns the (optionally schema qualified) quoted table reference.
	Table(schema, table string) string

	InsertReturning() ReturningStyle

	// TimeValue converts a filter bound into the value handed to the driver.
	TimeValue(t time.Time) any

	// TimeColumn wraps a quoted datetime column so it compares in the same
	// form TimeValue produces.
	TimeColumn(ident string) string

	// DefaultSchema is used when no SCHEMA is configured.
	DefaultSchema() string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlserver":
		return SQLServer{}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("dialect not supported: %q", name)
	}
}

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func (Postgres) Placeholder(position int) string { return "$" + strconv.Itoa(position) }

func (d Postgres) Table(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

func (Postgres) InsertReturning() ReturningStyle { return ReturningClause }
func (Postgres) TimeColumn(ident string) string { return ident }
func (Postgres) TimeValue(t time.Time) any      { return t }
func (Postgres) DefaultSchema() string           { return "public" }

type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (d MySQL) Table(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (MySQL) InsertReturning() ReturningStyle { return LastInsertID }
func (MySQL) TimeColumn(ident string) string { return ident }
func (MySQL) TimeValue(t time.Time) any      { return t }

// DefaultSchema is empty: MySQL schemas are databases, so the connection's
// current database is used.
func (MySQL) DefaultSchema() string { return "" }

type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) QuoteIdent(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (SQLServer) Placeholder(position int) string { return "@p" + strconv.Itoa(position) }

func (d SQLServer) Table(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (SQLServer) InsertReturning() ReturningStyle { return OutputInserted }
func (SQLServer) TimeColumn(ident string) string { return ident }
func (SQLServer) TimeValue(t time.Time) any      { return t }
func (SQLServer) DefaultSchema() string           { return "dbo" }

type SQLite struct{}

// sqliteTimeLayout matches strftime('%Y-%m-%d %H:%M:%f'), the form TimeColumn
// normalizes stored values to before they are compared as text.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (SQLite) Placeholder(int) string { return "?" }

// Table ignores the schema unless it names an attached database.
func (d SQLite) Table(schema, table string) string {
	if schema == "" || schema == "main" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (SQLite) InsertReturning() ReturningStyle { return ReturningClause }
func (SQLite) TimeValue(t time.Time) any      { return t.UTC().Format(sqliteTimeLayout) }

// TimeColumn reparses the stored text, so date-only values and values with a
// "T" separator or a zone offset order with the rest.
func (SQLite) TimeColumn(ident string) string {
	return "strftime('%Y-%m-%d %H:%M:%f', " + ident + ")"
}
func (SQLite) DefaultSchema() string           { return "main" }
