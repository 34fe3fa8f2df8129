package models

import "strings"

// SemanticType is the coarse type family a column belongs to. Filter and id
// handling branch on it, never on the raw engine type name.
type SemanticType string

const (
	TypeText     SemanticType = "text"
	TypeInteger  SemanticType = "integer"
	TypeBoolean  SemanticType = "boolean"
	TypeDateTime SemanticType = "datetime"
	TypeBinary   SemanticType = "binary"
	TypeOther    SemanticType = "other"
)

// Column describes one reflected column.
type Column struct {
	Name       string       `json:"name"`
	DataType   string       `json:"data_type"` // as reported by the engine
	Type       SemanticType `json:"type"`
	Nullable   bool         `json:"nullable"`
	Default    *string      `json:"default,omitempty"`
	PrimaryKey bool         `json:"primary_key"`
}

// ForeignKey is a single column reference from the owning table.
type ForeignKey struct {
	ConstraintName string `json:"constraint_name,omitempty"`
	FromColumn     string `json:"from_column"`
	ToSchema       string `json:"to_schema,omitempty"`
	ToTable        string `json:"to_table"`
	ToColumn       string `json:"to_column"`
}

// Table is the reflected description of a table. It is built once by the
// catalog and never mutated afterwards.
type Table struct {
	Schema      string       `json:"schema,omitempty"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys,omitempty"` // constraint order
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`

	columnIndex map[string]int
}

// NewTable builds a Table and its column lookup index. Columns named in
// primaryKeys are flagged.
func NewTable(schema, name string, columns []Column, primaryKeys []string, foreignKeys []ForeignKey) *Table {
	t := &Table{
		Schema:      schema,
		Name:        name,
		Columns:     columns,
		PrimaryKeys: primaryKeys,
		ForeignKeys: foreignKeys,
		columnIndex: make(map[string]int, len(columns)),
	}
	for i := range t.Columns {
		t.columnIndex[t.Columns[i].Name] = i
	}
	for _, pk := range primaryKeys {
		if i, ok := t.columnIndex[pk]; ok {
			t.Columns[i].PrimaryKey = true
		}
	}
	return t
}

// PrimaryKey returns the usable key column: the first column of the primary
// key constraint. ok is false for unkeyed tables.
func (t *Table) PrimaryKey() (string, bool) {
	if len(t.PrimaryKeys) == 0 {
		return "", false
	}
	return t.PrimaryKeys[0], true
}

// Column looks a column up by its exact name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnFold looks a column up ignoring case. An exact match wins over a
// case-insensitive one.
func (t *Table) ColumnFold(name string) (Column, bool) {
	if c, ok := t.Column(name); ok {
		return c, true
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AliasBinding ties a client-facing alias to its reflected table.
type AliasBinding struct {
	Alias   string // lower-cased
	Table   *Table
	IDField string // reflected key column, empty for unkeyed tables
}

// Edge is a foreign key relationship: FromTable.FromColumn references
// ToTable.ToColumn.
type Edge struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Label is the edge annotation used in listings and diagrams.
func (e Edge) Label() string {
	return e.FromColumn + " -> " + e.ToColumn
}

// RelationshipGraph is the directed foreign key graph over the catalog.
type RelationshipGraph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Procedure is a stored procedure and its rendered parameter list.
type Procedure struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Parameters string `json:"parameters"`
}
