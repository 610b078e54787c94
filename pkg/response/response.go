package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Detail is the error body shape used by every REST endpoint.
type Detail struct {
	Detail string `json:"detail"`
}

func Error(c *gin.Context, code int, detail string) {
	c.JSON(code, Detail{Detail: detail})
}

func BadRequest(c *gin.Context, detail string) {
	Error(c, http.StatusBadRequest, detail)
}

func Unauthorized(c *gin.Context, detail string) {
	Error(c, http.StatusUnauthorized, detail)
}

func Forbidden(c *gin.Context, detail string) {
	Error(c, http.StatusForbidden, detail)
}

func NotFound(c *gin.Context, detail string) {
	Error(c, http.StatusNotFound, detail)
}

func Unprocessable(c *gin.Context, detail string) {
	Error(c, http.StatusUnprocessableEntity, detail)
}

func ServerError(c *gin.Context, detail string) {
	Error(c, http.StatusInternalServerError, detail)
}

func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

func Accepted(c *gin.Context, body interface{}) {
	c.JSON(http.StatusAccepted, body)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
