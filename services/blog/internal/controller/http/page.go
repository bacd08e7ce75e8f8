package http

import (
	"net/http"
	"strconv"

	"tutorial-blog/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// renderPage adds the signed-in user, if any, to data before rendering.
func renderPage(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if identity, ok := middleware.CurrentUser(c); ok {
		data["user"] = &identity
	}
	c.HTML(status, name, data)
}

// NotFound renders the HTML 404 page.
func NotFound(c *gin.Context) {
	renderPage(c, http.StatusNotFound, "errors/not_found.html", gin.H{"title": "Not Found"})
}

func serverError(c *gin.Context) {
	renderPage(c, http.StatusInternalServerError, "errors/server_error.html", gin.H{"title": "Server Error"})
}

// parsePostID accepts only plain decimal ids.
func parsePostID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
