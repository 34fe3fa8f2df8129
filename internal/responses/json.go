package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Data writes v as the bare JSON body. Row and row-list responses are not
// wrapped so clients receive exactly the stored values.
func Data(c *gin.Context, statusCode int, v any) {
	c.JSON(statusCode, v)
}

// Text writes a plain-text body.
func Text(c *gin.Context, statusCode int, body string) {
	c.String(statusCode, "%s", body)
}

func Fail(c *gin.Context, statusCode int, err error, message string) {
	resp := APIResponse{
		Status:  "error",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

// Forbidden rejects the request with 403.
func Forbidden(c *gin.Context, err error) {
	Fail(c, http.StatusForbidden, err, "Invalid JWT token")
}
