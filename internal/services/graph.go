package services

import (
	"fmt"
	"strings"

	"dbrest/internal/models"
	"dbrest/internal/utils"
)

const (
	maxJunctionTableColumns = 6
	minJunctionTableFKs     = 2
)

// BuildGraph derives the foreign key graph over tables. Every table is a node;
// referenced tables outside the set are added as nodes too. Edges point from
// the owning table to the referenced table. When focus is not empty only the
// edges incident to that table, in either direction, are kept, and the nodes
// shrink to the focus table and the other endpoints of those edges.
func BuildGraph(tables []*models.Table, focus string) models.RelationshipGraph {
	var g models.RelationshipGraph
	seen := make(map[string]bool)
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}

	if focus == "" {
		for _, t := range tables {
			addNode(t.Name)
		}
	} else {
		addNode(focus)
	}

	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if focus != "" && t.Name != focus && fk.ToTable != focus {
				continue
			}
			addNode(t.Name)
			addNode(fk.ToTable)
			g.Edges = append(g.Edges, models.Edge{
				FromTable:  t.Name,
				FromColumn: fk.FromColumn,
				ToTable:    fk.ToTable,
				ToColumn:   fk.ToColumn,
			})
		}
	}
	return g
}

// Adjacency groups the referenced tables by owning table, in edge order and
// without duplicates.
func Adjacency(g models.RelationshipGraph) ([]string, map[string][]string) {
	var owners []string
	refs := make(map[string][]string)
	for _, e := range g.Edges {
		if _, ok := refs[e.FromTable]; !ok {
			owners = append(owners, e.FromTable)
		}
		if !utils.Contains(refs[e.FromTable], e.ToTable) {
			refs[e.FromTable] = append(refs[e.FromTable], e.ToTable)
		}
	}
	return owners, refs
}

type relationship struct {
	from, to, kind string
}

// Mermaid renders the graph as a Mermaid ER diagram. Tables whose keys are
// made only of foreign keys are drawn as many-to-many links between the
// tables they join.
func Mermaid(tables []*models.Table, g models.RelationshipGraph) string {
	byName := make(map[string]*models.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	var inGraph []*models.Table
	for _, n := range g.Nodes {
		if t, ok := byName[n]; ok {
			inGraph = append(inGraph, t)
		}
	}

	junctions := detectJunctionTables(inGraph)
	var rels []relationship
	for _, t := range inGraph {
		if junctions[t.Name] {
			for i := 0; i < len(t.ForeignKeys); i++ {
				for j := i + 1; j < len(t.ForeignKeys); j++ {
					rels = append(rels, relationship{t.ForeignKeys[i].ToTable, t.ForeignKeys[j].ToTable, "}o--o{"})
				}
			}
		}
	}
	for _, e := range g.Edges {
		if junctions[e.FromTable] {
			continue
		}
		rels = append(rels, relationship{e.ToTable, e.FromTable, "||--o{"})
	}

	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	if len(rels) > 0 {
		seen := make(map[string]bool)
		for _, rel := range rels {
			key := rel.from + ":" + rel.kind + ":" + rel.to
			if seen[key] {
				continue
			}
			seen[key] = true
			// mermaid requires a label, even an empty one
			fmt.Fprintf(&sb, "    %s %s %s : \"\"\n",
				strings.ToUpper(rel.from), rel.kind, strings.ToUpper(rel.to))
		}
		sb.WriteString("\n")
	}

	for _, t := range inGraph {
		fmt.Fprintf(&sb, "    %s {\n", strings.ToUpper(t.Name))
		for _, col := range t.Columns {
			annotations := ""
			if col.PrimaryKey {
				annotations = " PK"
			}
			if isForeignKey(t.ForeignKeys, col.Name) {
				annotations += " FK"
			}
			fmt.Fprintf(&sb, "        %s %s%s\n", simplifyDataType(col.DataType), col.Name, annotations)
		}
		sb.WriteString("    }\n\n")
	}

	return sb.String()
}

func detectJunctionTables(tables []*models.Table) map[string]bool {
	junctions := make(map[string]bool)
	for _, t := range tables {
		if len(t.ForeignKeys) < minJunctionTableFKs ||
			len(t.PrimaryKeys) < minJunctionTableFKs ||
			len(t.Columns) > maxJunctionTableColumns {
			continue
		}

		allFKsInPK := true
		for _, fk := range t.ForeignKeys {
			if !utils.Contains(t.PrimaryKeys, fk.FromColumn) {
				allFKsInPK = false
				break
			}
		}
		fkCountInPK := 0
		for _, pk := range t.PrimaryKeys {
			if isForeignKey(t.ForeignKeys, pk) {
				fkCountInPK++
			}
		}
		if allFKsInPK && fkCountInPK >= minJunctionTableFKs {
			junctions[t.Name] = true
		}
	}
	return junctions
}

func simplifyDataType(dataType string) string {
	dt := strings.ToLower(dataType)

	switch {
	case dt == "integer", dt == "int", dt == "int4":
		return "int"
	case dt == "bigint", dt == "int8":
		return "bigint"
	case dt == "smallint", dt == "int2":
		return "smallint"
	case strings.HasPrefix(dt, "character varying"), strings.HasPrefix(dt, "varchar"), strings.HasPrefix(dt, "nvarchar"):
		return "varchar"
	case strings.HasPrefix(dt, "character"), strings.HasPrefix(dt, "char"), strings.HasPrefix(dt, "nchar"):
		return "char"
	case dt == "text":
		return "text"
	case strings.HasPrefix(dt, "timestamp without time zone"):
		return "timestamp"
	case strings.HasPrefix(dt, "timestamp with time zone"):
		return "timestamptz"
	case strings.HasPrefix(dt, "time without time zone"):
		return "time"
	case dt == "date":
		return "date"
	case dt == "boolean", dt == "bool", dt == "bit":
		return "boolean"
	case strings.HasPrefix(dt, "numeric"):
		return "numeric"
	case strings.HasPrefix(dt, "decimal"):
		return "decimal"
	case dt == "real":
		return "real"
	case dt == "double precision", dt == "double":
		return "double"
	case dt == "json":
		return "json"
	case dt == "jsonb":
		return "jsonb"
	case dt == "uuid", dt == "uniqueidentifier":
		return "uuid"
	case dt == "bytea", dt == "blob", strings.HasPrefix(dt, "varbinary"):
		return "bytea"
	case strings.HasPrefix(dt, "array"):
		return "array"
	case strings.Contains(dt, " "):
		// mermaid attribute types are single words
		return strings.ReplaceAll(dt, " ", "_")
	default:
		return dataType
	}
}

func isForeignKey(fks []models.ForeignKey, colName string) bool {
	for _, fk := range fks {
		if fk.FromColumn == colName {
			return true
		}
	}
	return false
}
