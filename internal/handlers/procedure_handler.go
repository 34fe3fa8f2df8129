package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dbrest/internal/responses"
	"dbrest/internal/services"
)

type ProcedureHandler struct {
	procedureService *services.ProcedureService
}

func NewProcedureHandler(procedureService *services.ProcedureService) *ProcedureHandler {
	return &ProcedureHandler{procedureService: procedureService}
}

// List handles GET /stored_procedures
func (h *ProcedureHandler) List(c *gin.Context) {
	text, err := h.procedureService.ListText(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list stored procedures")
		return
	}
	responses.Text(c, http.StatusOK, text)
}

// Execute handles GET /procedure/:name; every query parameter is passed to
// the procedure as a named argument.
func (h *ProcedureHandler) Execute(c *gin.Context) {
	params, err := services.ParseProcedureParams(c.Request.URL.RawQuery)
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid procedure parameters")
		return
	}

	rows, err := h.procedureService.Execute(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		respondError(c, err, "Failed to execute stored procedure")
		return
	}
	responses.Data(c, http.StatusOK, rows)
}
