package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"dbrest/internal/logger"
	"dbrest/internal/models"
)

// reflectConcurrency bounds the metadata queries run in parallel at startup.
const reflectConcurrency = 4

// SchemaReader is the metadata source the catalog is reflected from.
type SchemaReader interface {
	CurrentSchema(ctx context.Context) (string, error)
	GetTables(ctx context.Context, schema string) ([]string, error)
	GetColumns(ctx context.Context, schema, table string) ([]models.Column, error)
	GetPrimaryKeys(ctx context.Context, schema, table string) ([]string, error)
	GetForeignKeys(ctx context.Context, schema, table string) ([]models.ForeignKey, error)
}

// Catalog is the reflected, read-only description of the schema. It is built
// once and shared by every request without locking.
type Catalog struct {
	schema string
	tables []*models.Table
	byName map[string]*models.Table
}

// NewCatalog assembles a catalog from already reflected tables.
func NewCatalog(schema string, tables []*models.Table) *Catalog {
	c := &Catalog{
		schema: schema,
		tables: tables,
		byName: make(map[string]*models.Table, len(tables)),
	}
	for _, t := range tables {
		c.byName[t.Name] = t
	}
	return c
}

func (c *Catalog) Schema() string { return c.schema }

// Tables returns the tables in reflection order.
func (c *Catalog) Tables() []*models.Table { return c.tables }

// Table finds a table by name. An exact match wins; otherwise the name is
// compared case-insensitively.
func (c *Catalog) Table(name string) (*models.Table, bool) {
	if t, ok := c.byName[name]; ok {
		return t, true
	}
	for _, t := range c.tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// Reflect builds the catalog for schema. With an empty filter every table in
// the schema is reflected; otherwise only the named tables, each of which
// must exist.
func Reflect(ctx context.Context, reader SchemaReader, schema string, filter []string) (*Catalog, error) {
	if schema == "" {
		current, err := reader.CurrentSchema(ctx)
		if err != nil {
			return nil, &ReflectionError{Err: fmt.Errorf("failed to resolve current schema: %w", err)}
		}
		schema = current
	}

	available, err := reader.GetTables(ctx, schema)
	if err != nil {
		return nil, &ReflectionError{Err: fmt.Errorf("failed to list tables of %q: %w", schema, err)}
	}

	names, err := selectTables(available, filter)
	if err != nil {
		return nil, err
	}

	tables := make([]*models.Table, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reflectConcurrency)
	for i, name := range names {
		g.Go(func() error {
			t, err := reflectTable(gctx, reader, schema, name)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Reflected %d tables from schema %q", len(tables), schema)
	return NewCatalog(schema, tables), nil
}

// selectTables resolves the configured filter against the tables that exist.
func selectTables(available, filter []string) ([]string, error) {
	if len(filter) == 0 {
		return available, nil
	}

	selected := make([]string, 0, len(filter))
	seen := make(map[string]bool, len(filter))
	for _, want := range filter {
		name, ok := matchName(available, want)
		if !ok {
			return nil, &ReflectionError{Table: want, Err: fmt.Errorf("table does not exist")}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, name)
	}
	return selected, nil
}

func matchName(names []string, want string) (string, bool) {
	for _, n := range names {
		if n == want {
			return n, true
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, want) {
			return n, true
		}
	}
	return "", false
}

func reflectTable(ctx context.Context, reader SchemaReader, schema, name string) (*models.Table, error) {
	columns, err := reader.GetColumns(ctx, schema, name)
	if err != nil {
		return nil, &ReflectionError{Table: name, Err: fmt.Errorf("failed to get columns: %w", err)}
	}
	if len(columns) == 0 {
		return nil, &ReflectionError{Table: name, Err: fmt.Errorf("no columns visible")}
	}
	for i := range columns {
		columns[i].Type = ClassifyType(columns[i].DataType)
	}

	pks, err := reader.GetPrimaryKeys(ctx, schema, name)
	if err != nil {
		return nil, &ReflectionError{Table: name, Err: fmt.Errorf("failed to get primary keys: %w", err)}
	}
	switch {
	case len(pks) == 0:
		logger.Warn("Table %s has no primary key; id based endpoints are disabled for it", name)
	case len(pks) > 1:
		logger.Warn("Table %s has a composite primary key %v; only %s is used", name, pks, pks[0])
	}

	fks, err := reader.GetForeignKeys(ctx, schema, name)
	if err != nil {
		return nil, &ReflectionError{Table: name, Err: fmt.Errorf("failed to get foreign keys: %w", err)}
	}

	return models.NewTable(schema, name, columns, pks, fks), nil
}

var (
	booleanTypes = map[string]bool{"boolean": true, "bool": true, "bit": true}
	integerTypes = map[string]bool{
		"int": true, "integer": true, "int2": true, "int4": true, "int8": true,
		"smallint": true, "bigint": true, "tinyint": true, "mediumint": true,
		"serial": true, "smallserial": true, "bigserial": true,
	}
	binaryTypes = map[string]bool{
		"bytea": true, "blob": true, "binary": true, "varbinary": true, "image": true,
		"tinyblob": true, "mediumblob": true, "longblob": true,
	}
)

// ClassifyType maps an engine type name to its semantic family. Plain DATE
// and TIME columns are "other": only types carrying both a date and a time
// get day-bucket filtering.
func ClassifyType(dataType string) models.SemanticType {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(dt, '('); i >= 0 {
		dt = strings.TrimSpace(dt[:i])
	}
	dt = strings.TrimSuffix(dt, " unsigned")

	switch {
	case booleanTypes[dt]:
		return models.TypeBoolean
	case integerTypes[dt], strings.HasSuffix(dt, " int"):
		return models.TypeInteger
	case strings.HasPrefix(dt, "timestamp"), strings.HasPrefix(dt, "datetime"), dt == "smalldatetime":
		return models.TypeDateTime
	case binaryTypes[dt]:
		return models.TypeBinary
	case strings.Contains(dt, "char"), strings.Contains(dt, "text"), strings.Contains(dt, "clob"),
		dt == "uuid", dt == "uniqueidentifier", dt == "string", dt == "name":
		return models.TypeText
	default:
		return models.TypeOther
	}
}
