package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"dbrest/internal/logger"
	"dbrest/internal/models"
)

// RowCounter counts the rows of a table.
type RowCounter interface {
	CountRows(ctx context.Context, schema, table string) (int64, error)
}

// IntrospectionService renders the plain-text descriptions of the exposed
// tables and their relationships.
type IntrospectionService struct {
	schema   string
	registry *Registry
	counter  RowCounter
}

func NewIntrospectionService(schema string, registry *Registry, counter RowCounter) *IntrospectionService {
	return &IntrospectionService{schema: schema, registry: registry, counter: counter}
}

// TablesText lists every alias with its table and id field.
func (s *IntrospectionService) TablesText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SCHEMA: %s\n\n", s.schema)

	w := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAlias\tTable\tID Field")
	fmt.Fprintln(w, "-\t-----\t-----\t--------")
	for i, b := range s.registry.Bindings() {
		id := b.IDField
		if id == "" {
			id = "(no primary key)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, b.Alias, b.Table.Name, id)
	}
	w.Flush()
	return sb.String()
}

// TableDefinitionText describes the columns of the table called name, which
// may also be an alias, followed by its row count. A failing count is logged
// and reported as zero.
func (s *IntrospectionService) TableDefinitionText(ctx context.Context, name string) (string, error) {
	b, ok := s.registry.ResolveTable(name)
	if !ok {
		return "", ErrTableNotFound
	}
	t := b.Table

	count, err := s.counter.CountRows(ctx, t.Schema, t.Name)
	if err != nil {
		logger.Error("Counting rows of %s: %v", t.Name, err)
		count = 0
	}

	headers := []string{"Name", "Type", "Primary Key", "Nullable", "Default"}
	rows := make([][]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := "-"
		if c.Default != nil {
			def = *c.Default
		}
		rows = append(rows, []string{
			c.Name,
			c.DataType,
			strconv.FormatBool(c.PrimaryKey),
			strconv.FormatBool(c.Nullable),
			def,
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, v := range r {
			widths[i] = max(widths[i], len(v))
		}
	}

	line := func(cells []string, sep string) string {
		padded := make([]string, len(cells))
		for i, v := range cells {
			padded[i] = v + strings.Repeat(" ", widths[i]-len(v))
		}
		return strings.TrimRight(strings.Join(padded, sep), " ")
	}
	dashes := make([]string, len(headers))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}

	out := []string{
		fmt.Sprintf("TABLE: %s\t(Records: %d)", t.Name, count),
		line(headers, " | "),
		line(dashes, "-|-"),
	}
	for _, r := range rows {
		out = append(out, line(r, " | "))
	}
	return strings.Join(out, "\n"), nil
}

// Graph builds the relationship graph over the exposed tables. A non-empty
// focus narrows it to the edges touching that table.
func (s *IntrospectionService) Graph(focus string) (models.RelationshipGraph, error) {
	tables := s.registry.Tables()
	if focus == "" {
		return BuildGraph(tables, ""), nil
	}

	if b, ok := s.registry.ResolveTable(focus); ok {
		return BuildGraph(tables, b.Table.Name), nil
	}
	// a referenced table may sit outside the exposed set
	g := BuildGraph(tables, focus)
	if len(g.Edges) == 0 {
		return models.RelationshipGraph{}, ErrTableNotFound
	}
	return g, nil
}

// RelationshipsText lists, per owning table, the tables it references,
// followed by one line per foreign key.
func (s *IntrospectionService) RelationshipsText() string {
	g := BuildGraph(s.registry.Tables(), "")
	owners, refs := Adjacency(g)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SCHEMA: %s\n\n", s.schema)

	w := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Table\tReferences")
	fmt.Fprintln(w, "-----\t----------")
	for _, owner := range owners {
		fmt.Fprintf(w, "%s\t%s\n", owner, strings.Join(refs[owner], ", "))
	}
	w.Flush()

	if len(g.Edges) > 0 {
		sb.WriteString("\n")
		for _, e := range g.Edges {
			fmt.Fprintf(&sb, "%s.%s -> %s.%s\n", e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
		}
	}
	return sb.String()
}

// MermaidText renders the (optionally narrowed) graph as a Mermaid ER diagram.
func (s *IntrospectionService) MermaidText(focus string) (string, error) {
	g, err := s.Graph(focus)
	if err != nil {
		return "", err
	}
	return Mermaid(s.registry.Tables(), g), nil
}
