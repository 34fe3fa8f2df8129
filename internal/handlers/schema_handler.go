package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dbrest/internal/diagram"
	"dbrest/internal/responses"
	"dbrest/internal/services"
)

const welcomeBanner = "Welcome to the database REST gateway!"

type SchemaHandler struct {
	introspectionService *services.IntrospectionService
}

func NewSchemaHandler(introspectionService *services.IntrospectionService) *SchemaHandler {
	return &SchemaHandler{introspectionService: introspectionService}
}

// Root handles GET /
func (h *SchemaHandler) Root(c *gin.Context) {
	responses.Text(c, http.StatusOK, welcomeBanner)
}

// Tables handles GET /tables
func (h *SchemaHandler) Tables(c *gin.Context) {
	responses.Text(c, http.StatusOK, h.introspectionService.TablesText())
}

// TableDefinition handles GET /table_definition/:tableName
func (h *SchemaHandler) TableDefinition(c *gin.Context) {
	text, err := h.introspectionService.TableDefinitionText(c.Request.Context(), c.Param("tableName"))
	if err != nil {
		respondError(c, err, "Table not found")
		return
	}
	responses.Text(c, http.StatusOK, text)
}

// Relationships handles GET /table_relationships
func (h *SchemaHandler) Relationships(c *gin.Context) {
	responses.Text(c, http.StatusOK, h.introspectionService.RelationshipsText())
}

// Diagram handles GET /schema_diagram?width=&height=&table_name=&format=
func (h *SchemaHandler) Diagram(c *gin.Context) {
	focus := c.Query("table_name")

	if c.DefaultQuery("format", "png") == "mermaid" {
		text, err := h.introspectionService.MermaidText(focus)
		if err != nil {
			respondError(c, err, "Failed to build schema diagram")
			return
		}
		responses.Text(c, http.StatusOK, text)
		return
	}

	width, err := inchesParam(c, "width")
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid width")
		return
	}
	height, err := inchesParam(c, "height")
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid height")
		return
	}

	graph, err := h.introspectionService.Graph(focus)
	if err != nil {
		respondError(c, err, "Failed to build schema diagram")
		return
	}

	var buf bytes.Buffer
	if err := diagram.Render(&buf, graph, diagram.Options{Width: width, Height: height}); err != nil {
		respondError(c, err, "Failed to render schema diagram")
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func inchesParam(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return diagram.DefaultInches, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of inches: %w", name, err)
	}
	return v, nil
}
