package routes

import (
	"github.com/gin-gonic/gin"

	"dbrest/internal/handlers"
)

type ProcedureRoutes struct {
	handler *handlers.ProcedureHandler
}

func NewProcedureRoutes(handler *handlers.ProcedureHandler) *ProcedureRoutes {
	return &ProcedureRoutes{handler: handler}
}

func (r *ProcedureRoutes) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stored_procedures", r.handler.List)
	router.GET("/procedure/:name", r.handler.Execute)
}
