package http

import (
	"net"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/config"
	"github.com/vovakirdan/presence-hub/internal/core"
)

// NewServer builds the HTTP server serving pages, health and websockets.
// The returned server listens on cfg.TLS.Addr when TLS is enabled.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) (*stdhttp.Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(loadTemplates())

	router.GET("/health", healthHandler)

	wsHandler := NewWSHandler(hub, cfg.RateLimit, logger)
	router.GET("/ws", wsHandler.Handle)
	router.GET("/ws/:channel", wsHandler.Handle)

	channels := NewChannelHandlers(hub, logger)
	api := router.Group("/api")
	api.GET("/channels", channels.ListChannels)
	api.GET("/channels/:channel", channels.GetChannel)

	if cfg.StaticDir != "" {
		router.Static("/static", cfg.StaticDir)
	}

	pages := NewPageHandlers(hub)
	router.GET("/", pages.Channel)
	router.GET("/:channel", pages.Channel)

	addr := cfg.Addr
	if cfg.TLS.Enabled {
		addr = cfg.TLS.Addr
	}
	return &stdhttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}

// NewRedirectServer builds the plaintext server that sends every request to
// the HTTPS listener.
func NewRedirectServer(cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.NoRoute(redirectHandler(httpsPort(cfg.TLS.Addr)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func redirectHandler(port string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host
		if port != "" && port != "443" {
			target += ":" + port
		}
		c.Redirect(stdhttp.StatusFound, target+c.Request.URL.RequestURI())
	}
}

func httpsPort(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
