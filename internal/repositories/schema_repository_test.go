package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrest/internal/config"
	"dbrest/internal/database"
	"dbrest/internal/models"
)

func openSQLite(t *testing.T, ddl string) *database.DB {
	t.Helper()
	db, err := database.Connect(context.Background(), config.DBConfig{
		Type:         "sqlite",
		DatabaseName: filepath.Join(t.TempDir(), "repo.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return db
}

const libraryDDL = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	born DATE DEFAULT '1900-01-01'
);
CREATE TABLE books (
	isbn TEXT PRIMARY KEY,
	author_id INTEGER REFERENCES authors,
	title VARCHAR(200) NOT NULL,
	published_at DATETIME
);
CREATE TABLE loans (
	book_isbn TEXT REFERENCES books(isbn),
	member INTEGER,
	due TIMESTAMP,
	PRIMARY KEY (member, book_isbn)
);
`

func TestSchemaRepositorySQLite(t *testing.T) {
	db := openSQLite(t, libraryDDL)
	repo := NewSchemaRepository(db)
	ctx := context.Background()

	schema, err := repo.CurrentSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", schema)

	tables, err := repo.GetTables(ctx, schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books", "loans"}, tables)

	cols, err := repo.GetColumns(ctx, schema, "authors")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].DataType)
	assert.False(t, cols[0].Nullable)
	assert.False(t, cols[1].Nullable)
	assert.True(t, cols[2].Nullable)
	require.NotNil(t, cols[2].Default)
	assert.Equal(t, "'1900-01-01'", *cols[2].Default)

	pks, err := repo.GetPrimaryKeys(ctx, schema, "loans")
	require.NoError(t, err)
	assert.Equal(t, []string{"member", "book_isbn"}, pks, "constraint order, not column order")

	pks, err = repo.GetPrimaryKeys(ctx, schema, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"isbn"}, pks)
}

func TestSchemaRepositoryForeignKeysSQLite(t *testing.T) {
	db := openSQLite(t, libraryDDL)
	repo := NewSchemaRepository(db)
	ctx := context.Background()

	fks, err := repo.GetForeignKeys(ctx, "main", "books")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "author_id", fks[0].FromColumn)
	assert.Equal(t, "authors", fks[0].ToTable)
	assert.Equal(t, "id", fks[0].ToColumn, "implicit reference resolves to the parent key")

	fks, err = repo.GetForeignKeys(ctx, "main", "loans")
	require.NoError(t, err)
	assert.Equal(t, []models.ForeignKey{{
		ConstraintName: "fk_loans_0",
		FromColumn:     "book_isbn",
		ToTable:        "books",
		ToColumn:       "isbn",
	}}, fks)

	fks, err = repo.GetForeignKeys(ctx, "main", "authors")
	require.NoError(t, err)
	assert.Empty(t, fks)
}

func TestCountRows(t *testing.T) {
	db := openSQLite(t, libraryDDL)
	repo := NewSchemaRepository(db)

	_, err := db.Exec(`INSERT INTO authors (id, name) VALUES (1, 'Le Guin'), (2, 'Pratchett')`)
	require.NoError(t, err)

	n, err := repo.CountRows(context.Background(), "main", "authors")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.CountRows(context.Background(), "main", "missing")
	assert.Error(t, err)
}

func TestProceduresUnavailableOnSQLite(t *testing.T) {
	db := openSQLite(t, libraryDDL)

	_, err := NewProcedureRepository(db).GetProcedures(context.Background(), "main")
	assert.ErrorContains(t, err, "not available on sqlite")
}
