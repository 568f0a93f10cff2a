package http

import (
	"embed"
	"html/template"
	stdhttp "net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/presence-hub/internal/core"
)

//go:embed templates/index.html
var templatesFS embed.FS

var channelPattern = regexp.MustCompile(`^\w*$`)

func validChannel(name string) bool {
	return channelPattern.MatchString(name)
}

func loadTemplates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/index.html"))
}

// PageHandlers serves the per-channel page.
type PageHandlers struct {
	hub *core.Hub
}

// NewPageHandlers creates page handlers bound to hub.
func NewPageHandlers(hub *core.Hub) *PageHandlers {
	return &PageHandlers{hub: hub}
}

// Channel renders the page for a channel.
// GET / and GET /:channel
func (h *PageHandlers) Channel(c *gin.Context) {
	name := c.Param("channel")
	if !validChannel(name) {
		c.String(stdhttp.StatusNotFound, "404 page not found")
		return
	}

	// Start the channel so it exists before the socket connects.
	h.hub.Channel(name)

	c.HTML(stdhttp.StatusOK, "index.html", gin.H{
		"Channel":       name,
		"VerifyEnabled": h.hub.VerifyEnabled(),
	})
}
