package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbrest/internal/database"
	"dbrest/internal/models"
)

// SchemaRepository runs the metadata queries the catalog is built from. The
// information_schema queries are written with unquoted upper-case names, which
// PostgreSQL, MySQL and SQL Server all resolve; SQLite uses its pragma
// table-valued functions instead.
type SchemaRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSchemaRepository(db *database.DB) *SchemaRepository {
	return &SchemaRepository{db: db.DB, dialect: db.Dialect}
}

// CurrentSchema returns the schema unqualified names resolve to.
func (r *SchemaRepository) CurrentSchema(ctx context.Context) (string, error) {
	var query string
	switch r.dialect.Name() {
	case "postgres":
		query = `SELECT current_schema()`
	case "mysql":
		query = `SELECT DATABASE()`
	case "sqlserver":
		query = `SELECT SCHEMA_NAME()`
	default:
		return r.dialect.DefaultSchema(), nil
	}

	var schema sql.NullString
	if err := r.db.QueryRowContext(ctx, query).Scan(&schema); err != nil {
		return "", err
	}
	if !schema.Valid {
		return r.dialect.DefaultSchema(), nil
	}
	return schema.String, nil
}

// GetTables returns all base table names in the specified schema
func (r *SchemaRepository) GetTables(ctx context.Context, schema string) ([]string, error) {
	if r.dialect.Name() == "sqlite" {
		return r.queryStrings(ctx, `
			SELECT name
			FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`)
	}

	query := fmt.Sprintf(`
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = %s
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, r.dialect.Placeholder(1))
	return r.queryStrings(ctx, query, schema)
}

// GetColumns returns all columns for a specific table in a schema
func (r *SchemaRepository) GetColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	if r.dialect.Name() == "sqlite" {
		return r.getColumnsSQLite(ctx, table)
	}

	query := fmt.Sprintf(`
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s
		ORDER BY ORDINAL_POSITION`, r.dialect.Placeholder(1), r.dialect.Placeholder(2))

	rows, err := r.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		var nullable string
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def); err != nil {
			return nil, err
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}

func (r *SchemaRepository) getColumnsSQLite(ctx context.Context, table string) ([]models.Column, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		var notNull, pk int
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &notNull, &def, &pk); err != nil {
			return nil, err
		}
		// key columns are reported as NOT NULL
		col.Nullable = notNull == 0 && pk == 0
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}

// GetPrimaryKeys returns all primary key column names for a specific table,
// in constraint order
func (r *SchemaRepository) GetPrimaryKeys(ctx context.Context, schema, table string) ([]string, error) {
	if r.dialect.Name() == "sqlite" {
		return r.queryStrings(ctx, `
			SELECT name
			FROM pragma_table_info(?)
			WHERE pk > 0
			ORDER BY pk`, table)
	}

	query := fmt.Sprintf(`
		SELECT kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
			AND tc.TABLE_SCHEMA = %s
			AND tc.TABLE_NAME = %s
		ORDER BY kcu.ORDINAL_POSITION`, r.dialect.Placeholder(1), r.dialect.Placeholder(2))
	return r.queryStrings(ctx, query, schema, table)
}

// GetForeignKeys returns all foreign keys for a specific table, one entry per
// referencing column
func (r *SchemaRepository) GetForeignKeys(ctx context.Context, schema, table string) ([]models.ForeignKey, error) {
	var query string
	switch r.dialect.Name() {
	case "sqlite":
		return r.getForeignKeysSQLite(ctx, table)
	case "mysql":
		query = `
			SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
			FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
				AND REFERENCED_TABLE_NAME IS NOT NULL
			ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`
	case "sqlserver":
		query = `
			SELECT fk.name, c.name, OBJECT_SCHEMA_NAME(fkc.referenced_object_id),
				OBJECT_NAME(fkc.referenced_object_id), rc.name
			FROM sys.foreign_keys fk
			JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
			JOIN sys.columns c ON fkc.parent_object_id = c.object_id AND fkc.parent_column_id = c.column_id
			JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
			WHERE OBJECT_SCHEMA_NAME(fk.parent_object_id) = @p1
				AND OBJECT_NAME(fk.parent_object_id) = @p2
			ORDER BY fk.name, fkc.constraint_column_id`
	default:
		query = `
			SELECT tc.constraint_name, kcu.column_name, rkcu.table_schema, rkcu.table_name, rkcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.constraint_schema = kcu.constraint_schema
				AND tc.table_name = kcu.table_name
			JOIN information_schema.referential_constraints rc
				ON tc.constraint_name = rc.constraint_name
				AND tc.constraint_schema = rc.constraint_schema
			JOIN information_schema.key_column_usage rkcu
				ON rc.unique_constraint_name = rkcu.constraint_name
				AND rc.unique_constraint_schema = rkcu.constraint_schema
				AND kcu.position_in_unique_constraint = rkcu.ordinal_position
			WHERE tc.constraint_type = 'FOREIGN KEY'
				AND tc.table_schema = $1
				AND tc.table_name = $2
			ORDER BY tc.constraint_name, kcu.ordinal_position`
	}

	rows, err := r.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []models.ForeignKey
	for rows.Next() {
		var fk models.ForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.FromColumn, &fk.ToSchema, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fks, nil
}

func (r *SchemaRepository) getForeignKeysSQLite(ctx context.Context, table string) ([]models.ForeignKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`, table)
	if err != nil {
		return nil, err
	}

	var fks []models.ForeignKey
	for rows.Next() {
		var id int
		var fk models.ForeignKey
		var to sql.NullString
		if err := rows.Scan(&id, &fk.FromColumn, &fk.ToTable, &to); err != nil {
			rows.Close()
			return nil, err
		}
		fk.ConstraintName = fmt.Sprintf("fk_%s_%d", table, id)
		fk.ToColumn = to.String
		fks = append(fks, fk)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// "REFERENCES parent" without a column list targets the parent's key
	for i := range fks {
		if fks[i].ToColumn != "" {
			continue
		}
		pks, err := r.GetPrimaryKeys(ctx, "", fks[i].ToTable)
		if err != nil {
			return nil, err
		}
		if len(pks) > 0 {
			fks[i].ToColumn = pks[0]
		}
	}

	return fks, nil
}

// CountRows returns the number of records in the table.
func (r *SchemaRepository) CountRows(ctx context.Context, schema, table string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + r.dialect.Table(schema, table)

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

func (r *SchemaRepository) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
