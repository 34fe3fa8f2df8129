package routes

import (
	"github.com/gin-gonic/gin"

	"dbrest/internal/handlers"
)

// RegisterRoutes mounts the gateway. The introspection routes are registered
// before the record routes; gin prefers their static segments over the
// :alias parameter.
func RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc, schemaHandler *handlers.SchemaHandler, procedureHandler *handlers.ProcedureHandler, recordHandler *handlers.RecordHandler) {
	router.GET("/", schemaHandler.Root)

	protected := router.Group("/")
	protected.Use(auth)

	schemaRoutes := NewSchemaRoutes(schemaHandler)
	schemaRoutes.RegisterRoutes(protected)

	procedureRoutes := NewProcedureRoutes(procedureHandler)
	procedureRoutes.RegisterRoutes(protected)

	recordRoutes := NewRecordRoutes(recordHandler)
	recordRoutes.RegisterRoutes(protected)
}
