package routes

import (
	"github.com/gin-gonic/gin"

	"dbrest/internal/handlers"
)

type RecordRoutes struct {
	handler *handlers.RecordHandler
}

func NewRecordRoutes(handler *handlers.RecordHandler) *RecordRoutes {
	return &RecordRoutes{handler: handler}
}

func (r *RecordRoutes) RegisterRoutes(router *gin.RouterGroup) {
	records := router.Group("/:alias")
	{
		records.POST("", r.handler.Create)
		records.GET("", r.handler.List)
		records.GET("/:id", r.handler.Get)
		records.PUT("/:id", r.handler.Update)
		records.DELETE("/:id", r.handler.Delete)
	}
}
