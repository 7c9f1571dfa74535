package ginserver

import (
	_ "embed"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const (
	apiDocPath    = "/swagger/doc.json"
	apiDocUIPath  = "/swagger"
	docURLMarker  = "{{SPEC_URL}}"
	htmlMediaType = "text/html; charset=utf-8"
)

var (
	//go:embed swagger/openapi.json
	openAPIDocument []byte

	//go:embed swagger/index.html
	apiDocPage string
)

// mountAPIDocs serves the OpenAPI description of /api/v1 and a Swagger UI
// page that loads it.
func mountAPIDocs(router gin.IRoutes) {
	page := []byte(strings.ReplaceAll(apiDocPage, docURLMarker, apiDocPath))
	router.GET(apiDocPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	router.GET(apiDocUIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, htmlMediaType, page)
	})
}
