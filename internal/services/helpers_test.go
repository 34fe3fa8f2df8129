package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dbrest/internal/config"
	"dbrest/internal/database"
	"dbrest/internal/repositories"
)

const shopSchema = `
CREATE TABLE customers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT,
	created_at DATETIME
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER REFERENCES customers(id),
	total REAL,
	placed_at DATETIME
);
CREATE TABLE regions (
	code TEXT PRIMARY KEY,
	name TEXT
);
CREATE TABLE audit_log (
	message TEXT,
	logged_at DATETIME
);
`

// openShop creates a file backed SQLite database holding the shop schema.
func openShop(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Connect(context.Background(), config.DBConfig{
		Type:         "sqlite",
		DatabaseName: filepath.Join(t.TempDir(), "shop.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(shopSchema)
	require.NoError(t, err)
	return db
}

type shopFixture struct {
	db       *database.DB
	catalog  *Catalog
	registry *Registry
	records  *RecordService
}

func newShop(t *testing.T, tables []config.TableConfig) *shopFixture {
	t.Helper()
	ctx := context.Background()

	db := openShop(t)
	catalog, err := Reflect(ctx, repositories.NewSchemaRepository(db), "", nil)
	require.NoError(t, err)
	registry, err := NewRegistry(catalog, tables)
	require.NoError(t, err)

	pool := NewQueryPool(repositories.NewRecordRepository(db), 4)
	return &shopFixture{
		db:       db,
		catalog:  catalog,
		registry: registry,
		records:  NewRecordService(registry, NewQueryBuilder(db.Dialect, catalog.Schema()), pool),
	}
}

func (f *shopFixture) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(t, err)
}
