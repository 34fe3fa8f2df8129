package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrest/internal/models"
)

func graphTables() []*models.Table {
	a := models.NewTable("", "A", []models.Column{{Name: "id"}, {Name: "b_id"}}, []string{"id"},
		[]models.ForeignKey{{FromColumn: "b_id", ToTable: "B", ToColumn: "id"}})
	b := models.NewTable("", "B", []models.Column{{Name: "id"}}, []string{"id"}, nil)
	c := models.NewTable("", "C", []models.Column{{Name: "id"}}, []string{"id"}, nil)
	return []*models.Table{a, b, c}
}

func TestBuildGraph(t *testing.T) {
	tables := graphTables()

	g := BuildGraph(tables, "")
	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, models.Edge{FromTable: "A", FromColumn: "b_id", ToTable: "B", ToColumn: "id"}, g.Edges[0])
	assert.Equal(t, "b_id -> id", g.Edges[0].Label())

	t.Run("narrowed to referenced table keeps incoming edge", func(t *testing.T) {
		g := BuildGraph(tables, "B")
		assert.Len(t, g.Edges, 1)
		assert.ElementsMatch(t, []string{"A", "B"}, g.Nodes)
	})

	t.Run("narrowed to owning table keeps outgoing edge", func(t *testing.T) {
		g := BuildGraph(tables, "A")
		assert.Len(t, g.Edges, 1)
	})

	t.Run("unrelated table has no edges", func(t *testing.T) {
		g := BuildGraph(tables, "C")
		assert.Empty(t, g.Edges)
		assert.Equal(t, []string{"C"}, g.Nodes)
	})
}

func TestBuildGraphReferencesOutsideScope(t *testing.T) {
	self := models.NewTable("", "employees", []models.Column{{Name: "id"}, {Name: "manager_id"}, {Name: "dept_id"}}, []string{"id"},
		[]models.ForeignKey{
			{FromColumn: "manager_id", ToTable: "employees", ToColumn: "id"},
			{FromColumn: "dept_id", ToTable: "departments", ToColumn: "id"},
		})

	g := BuildGraph([]*models.Table{self}, "")
	assert.Equal(t, []string{"employees", "departments"}, g.Nodes)
	assert.Len(t, g.Edges, 2)

	owners, refs := Adjacency(g)
	assert.Equal(t, []string{"employees"}, owners)
	assert.Equal(t, []string{"employees", "departments"}, refs["employees"])
}

func TestMermaid(t *testing.T) {
	students := models.NewTable("", "students", []models.Column{{Name: "id", DataType: "integer"}, {Name: "name", DataType: "character varying"}}, []string{"id"}, nil)
	courses := models.NewTable("", "courses", []models.Column{{Name: "id", DataType: "integer"}}, []string{"id"}, nil)
	enrolments := models.NewTable("", "enrolments",
		[]models.Column{{Name: "student_id", DataType: "integer"}, {Name: "course_id", DataType: "integer"}},
		[]string{"student_id", "course_id"},
		[]models.ForeignKey{
			{FromColumn: "student_id", ToTable: "students", ToColumn: "id"},
			{FromColumn: "course_id", ToTable: "courses", ToColumn: "id"},
		})
	grades := models.NewTable("", "grades",
		[]models.Column{{Name: "id", DataType: "bigint"}, {Name: "student_id", DataType: "integer"}},
		[]string{"id"},
		[]models.ForeignKey{{FromColumn: "student_id", ToTable: "students", ToColumn: "id"}})

	tables := []*models.Table{students, courses, enrolments, grades}
	out := Mermaid(tables, BuildGraph(tables, ""))

	assert.True(t, strings.HasPrefix(out, "erDiagram\n"))
	assert.Contains(t, out, `STUDENTS }o--o{ COURSES : ""`)
	assert.Contains(t, out, `STUDENTS ||--o{ GRADES : ""`)
	assert.NotContains(t, out, `STUDENTS ||--o{ ENROLMENTS`)
	assert.Contains(t, out, "        int id PK\n")
	assert.Contains(t, out, "        varchar name\n")
	assert.Contains(t, out, "        int student_id PK FK\n")
}
