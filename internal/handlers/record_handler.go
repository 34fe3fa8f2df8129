package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dbrest/internal/responses"
	"dbrest/internal/services"
)

type RecordHandler struct {
	recordService *services.RecordService
}

func NewRecordHandler(recordService *services.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// Create handles POST /:alias
func (h *RecordHandler) Create(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body: a JSON object is required")
		return
	}

	row, err := h.recordService.Create(c.Request.Context(), c.Param("alias"), payload)
	if err != nil {
		respondError(c, err, "Failed to create item")
		return
	}
	responses.Data(c, http.StatusOK, row)
}

// List handles GET /:alias with optional column filters in the query string.
func (h *RecordHandler) List(c *gin.Context) {
	params := make(map[string]string)
	for name, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[name] = values[len(values)-1]
		}
	}

	rows, err := h.recordService.List(c.Request.Context(), c.Param("alias"), params)
	if err != nil {
		respondError(c, err, "Failed to read items")
		return
	}
	responses.Data(c, http.StatusOK, rows)
}

// Get handles GET /:alias/:id
func (h *RecordHandler) Get(c *gin.Context) {
	row, err := h.recordService.Get(c.Request.Context(), c.Param("alias"), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to read item")
		return
	}
	responses.Data(c, http.StatusOK, row)
}

// Update handles PUT /:alias/:id
func (h *RecordHandler) Update(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body: a JSON object is required")
		return
	}

	row, err := h.recordService.Update(c.Request.Context(), c.Param("alias"), c.Param("id"), payload)
	if err != nil {
		respondError(c, err, "Failed to update item")
		return
	}
	responses.Data(c, http.StatusOK, row)
}

// Delete handles DELETE /:alias/:id
func (h *RecordHandler) Delete(c *gin.Context) {
	row, err := h.recordService.Delete(c.Request.Context(), c.Param("alias"), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to delete item")
		return
	}
	responses.Data(c, http.StatusOK, row)
}

// bindPayload decodes the body as a JSON object. Numbers keep their integer
// form and nested values are stored as their JSON text.
func bindPayload(c *gin.Context) (map[string]any, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("body must be a JSON object")
	}

	for k, v := range payload {
		normalized, err := normalizeJSONValue(v)
		if err != nil {
			return nil, err
		}
		payload[k] = normalized
	}
	return payload, nil
}

func normalizeJSONValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return val, nil
	}
}
