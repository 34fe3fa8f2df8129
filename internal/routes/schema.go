package routes

import (
	"github.com/gin-gonic/gin"

	"dbrest/internal/handlers"
)

type SchemaRoutes struct {
	handler *handlers.SchemaHandler
}

func NewSchemaRoutes(handler *handlers.SchemaHandler) *SchemaRoutes {
	return &SchemaRoutes{handler: handler}
}

func (r *SchemaRoutes) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tables", r.handler.Tables)
	router.GET("/table_definition/:tableName", r.handler.TableDefinition)
	router.GET("/table_relationships", r.handler.Relationships)
	router.GET("/schema_diagram", r.handler.Diagram)
}
