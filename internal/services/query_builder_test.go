package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrest/internal/database"
	"dbrest/internal/models"
)

func ordersTable() *models.Table {
	return models.NewTable("sales", "orders", []models.Column{
		{Name: "id", DataType: "integer", Type: models.TypeInteger},
		{Name: "customer_id", DataType: "integer", Type: models.TypeInteger},
		{Name: "placed_at", DataType: "timestamp", Type: models.TypeDateTime},
	}, []string{"id"}, nil)
}

func logTable() *models.Table {
	return models.NewTable("sales", "log", []models.Column{
		{Name: "message", DataType: "text", Type: models.TypeText},
	}, nil, nil)
}

func TestInsertPerDialect(t *testing.T) {
	values := map[string]any{"placed_at": "2024-01-15", "customer_id": 7}

	var tests = []struct {
		dialect   database.Dialect
		sql       string
		returning bool
	}{
		{database.Postgres{}, `INSERT INTO "sales"."orders" ("customer_id", "placed_at") VALUES ($1, $2) RETURNING "id"`, true},
		{database.MySQL{}, "INSERT INTO `sales`.`orders` (`customer_id`, `placed_at`) VALUES (?, ?)", false},
		{database.SQLServer{}, `INSERT INTO [sales].[orders] ([customer_id], [placed_at]) OUTPUT INSERTED.[id] VALUES (@p1, @p2)`, true},
		{database.SQLite{}, `INSERT INTO "sales"."orders" ("customer_id", "placed_at") VALUES (?, ?) RETURNING "id"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			stmt, err := NewQueryBuilder(tt.dialect, "sales").Insert(ordersTable(), values)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, []any{7, "2024-01-15"}, stmt.Args)
			assert.Equal(t, tt.returning, stmt.Returning)
		})
	}
}

func TestInsertWithoutValues(t *testing.T) {
	stmt, err := NewQueryBuilder(database.Postgres{}, "").Insert(ordersTable(), nil)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "orders" DEFAULT VALUES RETURNING "id"`, stmt.SQL)

	stmt, err = NewQueryBuilder(database.MySQL{}, "").Insert(ordersTable(), nil)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `orders` () VALUES ()", stmt.SQL)
}

func TestBuilderRejects(t *testing.T) {
	qb := NewQueryBuilder(database.Postgres{}, "sales")

	var unknown *UnknownColumnError
	_, err := qb.Insert(ordersTable(), map[string]any{"Customer_ID": 1})
	require.ErrorAs(t, err, &unknown, "payload keys match exactly")
	assert.Equal(t, "Customer_ID", unknown.Column)

	_, err = qb.Update(ordersTable(), 1, map[string]any{"status": "paid"})
	assert.ErrorAs(t, err, &unknown)

	_, err = qb.Update(ordersTable(), 1, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	var missingPK *MissingPrimaryKeyError
	_, err = qb.Insert(logTable(), map[string]any{"message": "x"})
	assert.ErrorAs(t, err, &missingPK)
	_, err = qb.SelectByID(logTable(), 1)
	assert.ErrorAs(t, err, &missingPK)
	_, err = qb.Update(logTable(), 1, map[string]any{"message": "x"})
	assert.ErrorAs(t, err, &missingPK)
	_, err = qb.Delete(logTable(), 1)
	assert.ErrorAs(t, err, &missingPK)
}

func TestSelectUpdateDelete(t *testing.T) {
	qb := NewQueryBuilder(database.SQLServer{}, "sales")

	stmt, err := qb.SelectByID(ordersTable(), int64(3))
	require.NoError(t, err)
	assert.Equal(t, `SELECT [id], [customer_id], [placed_at] FROM [sales].[orders] WHERE [id] = @p1`, stmt.SQL)
	assert.Equal(t, []any{int64(3)}, stmt.Args)

	stmt, err = qb.Update(ordersTable(), int64(3), map[string]any{"placed_at": "2024-01-15", "customer_id": 9})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE [sales].[orders] SET [customer_id] = @p1, [placed_at] = @p2 WHERE [id] = @p3`, stmt.SQL)
	assert.Equal(t, []any{9, "2024-01-15", int64(3)}, stmt.Args)

	stmt, err = qb.Delete(ordersTable(), int64(3))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM [sales].[orders] WHERE [id] = @p1`, stmt.SQL)
}

func TestSelectFiltered(t *testing.T) {
	qb := NewQueryBuilder(database.Postgres{}, "sales")
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("no conditions selects everything", func(t *testing.T) {
		stmt := qb.SelectFiltered(ordersTable(), map[string]string{"unknown": "1"})
		assert.Equal(t, `SELECT "id", "customer_id", "placed_at" FROM "sales"."orders"`, stmt.SQL)
		assert.Empty(t, stmt.Args)
	})

	t.Run("datetime becomes a day bucket", func(t *testing.T) {
		stmt := qb.SelectFiltered(ordersTable(), map[string]string{"Placed_At": "2024-01-15"})
		assert.Equal(t, `SELECT "id", "customer_id", "placed_at" FROM "sales"."orders" WHERE "placed_at" >= $1 AND "placed_at" < $2`, stmt.SQL)
		assert.Equal(t, []any{day, day.Add(24 * time.Hour)}, stmt.Args)
	})

	t.Run("unparseable datetime is dropped", func(t *testing.T) {
		stmt := qb.SelectFiltered(ordersTable(), map[string]string{"placed_at": "15/01/2024", "customer_id": "7"})
		assert.Equal(t, `SELECT "id", "customer_id", "placed_at" FROM "sales"."orders" WHERE "customer_id" = $1`, stmt.SQL)
		assert.Equal(t, []any{"7"}, stmt.Args)
	})

	t.Run("sqlite compares formatted times", func(t *testing.T) {
		stmt := NewQueryBuilder(database.SQLite{}, "main").SelectFiltered(ordersTable(), map[string]string{"placed_at": "2024-01-15"})
		assert.Equal(t, `SELECT "id", "customer_id", "placed_at" FROM "orders" WHERE strftime('%Y-%m-%d %H:%M:%f', "placed_at") >= ? AND strftime('%Y-%m-%d %H:%M:%f', "placed_at") < ?`, stmt.SQL)
		assert.Equal(t, []any{"2024-01-15 00:00:00.000", "2024-01-16 00:00:00.000"}, stmt.Args)
	})
}

func TestConvertID(t *testing.T) {
	id, err := ConvertID(ordersTable(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ConvertID(ordersTable(), "4x2")
	assert.ErrorIs(t, err, ErrInvalidID)

	text := models.NewTable("", "regions", []models.Column{{Name: "code", Type: models.TypeText}}, []string{"code"}, nil)
	id, err = ConvertID(text, "EU")
	require.NoError(t, err)
	assert.Equal(t, "EU", id)

	var missingPK *MissingPrimaryKeyError
	_, err = ConvertID(logTable(), "1")
	assert.ErrorAs(t, err, &missingPK)
}

func TestParseISODateTime(t *testing.T) {
	var tests = []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15 10:30", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-13-01", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseISODateTime(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}
