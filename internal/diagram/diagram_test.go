package diagram

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrest/internal/models"
)

func sampleGraph() models.RelationshipGraph {
	return models.RelationshipGraph{
		Nodes: []string{"orders", "customers", "products", "employees"},
		Edges: []models.Edge{
			{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
			{FromTable: "orders", FromColumn: "product_id", ToTable: "products", ToColumn: "id"},
			{FromTable: "employees", FromColumn: "manager_id", ToTable: "employees", ToColumn: "id"},
		},
	}
}

func TestRender(t *testing.T) {
	var tests = []struct {
		name          string
		opts          Options
		width, height int
	}{
		{"defaults", Options{}, 1200, 1200},
		{"custom size", Options{Width: 8, Height: 4.5}, 800, 450},
		{"smallest size", Options{Width: 1, Height: 1}, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, sampleGraph(), tt.opts))

			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.width, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())
		})
	}
}

func TestRenderEmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.RelationshipGraph{}, Options{Width: 2, Height: 2}))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestRenderRejectsSize(t *testing.T) {
	for _, opts := range []Options{{Width: -1, Height: 5}, {Width: 5, Height: 0.5}, {Width: 51, Height: 5}} {
		err := Render(&bytes.Buffer{}, sampleGraph(), opts)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestLayout(t *testing.T) {
	g := sampleGraph()

	first := Layout(g, 1000, 800)
	second := Layout(g, 1000, 800)
	assert.Equal(t, first, second, "layout is deterministic")

	require.Len(t, first, len(g.Nodes))
	for name, p := range first {
		assert.True(t, p.X >= 0 && p.X <= 1000, "%s x=%v", name, p.X)
		assert.True(t, p.Y >= 0 && p.Y <= 800, "%s y=%v", name, p.Y)
	}

	single := Layout(models.RelationshipGraph{Nodes: []string{"only"}}, 100, 50)
	assert.Equal(t, Point{50, 25}, single["only"])
}

func TestLayoutBoxOnSmallImages(t *testing.T) {
	pad, w, h := layoutBox(100, 150)
	assert.Equal(t, 25.0, pad)
	assert.Equal(t, 50.0, w)
	assert.Equal(t, 100.0, h)

	pad, w, h = layoutBox(1200, 800)
	assert.Equal(t, margin, pad)
	assert.Equal(t, 1200-2*margin, w)
	assert.Equal(t, 800-2*margin, h)

	_, w, h = layoutBox(100, 100)
	small := Layout(sampleGraph(), w, h)
	seen := make(map[Point]bool)
	for name, p := range small {
		assert.True(t, p.X >= 0 && p.X <= w && p.Y >= 0 && p.Y <= h, "%s at %v", name, p)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1, "a one inch image still spreads the nodes")
}
