// Package web exposes the catalog over HTTP with gin: HTML pages for
// browsing and editing products, a JSON listing, thumbnails, attachment
// downloads, health and metrics.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"productblog/internal/catalog"
	"productblog/internal/metrics"
	"productblog/internal/views"
)

const sessionName = "catalog_session"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Service       *catalog.Service
	Health        Pinger
	Logger        *slog.Logger
	SessionSecret string
	// SecureCookies marks the session cookie Secure; set it behind TLS.
	SecureCookies bool
	// MaxUploadBytes caps request bodies and multipart memory.
	MaxUploadBytes int64
}

type Handler struct {
	svc       *catalog.Service
	health    Pinger
	log       *slog.Logger
	maxUpload int64
}

// NewRouter wires middleware and routes.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.SessionSecret == "" {
		return nil, fmt.Errorf("web: session secret is empty")
	}
	tmpl, err := views.Templates()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		svc:       opts.Service,
		health:    opts.Health,
		log:       opts.Logger,
		maxUpload: opts.MaxUploadBytes,
	}

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	r := gin.New()
	r.MaxMultipartMemory = opts.MaxUploadBytes
	r.SetHTMLTemplate(tmpl)
	r.Use(
		RequestID(),
		RequestLogger(opts.Logger),
		metrics.Middleware(),
		sessions.Sessions(sessionName, store),
		h.recovery,
		limitBody(opts.MaxUploadBytes),
	)

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/products") })
	r.GET("/health", h.healthz)
	r.GET("/metrics", metrics.Handler())
	r.GET("/api/products", h.apiIndex)

	p := r.Group("/products")
	{
		p.GET("", h.index)
		p.GET("/thumbnail", h.thumbnail)
		p.GET("/thumbnail/:id", h.thumbnail)

		details := h.showProduct("details.tmpl", "Product details")
		p.GET("/details", details)
		p.GET("/details/:id", details)

		p.GET("/create", h.createForm)
		p.POST("/create", h.csrf, h.create)

		p.GET("/edit", h.editForm)
		p.GET("/edit/:id", h.editForm)
		p.POST("/edit", h.csrf, h.update)

		confirm := h.showProduct("delete.tmpl", "Delete product")
		p.GET("/delete", confirm)
		p.GET("/delete/:id", confirm)
		p.POST("/delete", h.csrf, h.deleteMany)

		p.GET("/attachments", h.attachmentList)
		p.GET("/attachments/:id", h.attachmentList)
		p.GET("/attachments/:id/:name", h.attachmentDownload)
	}

	r.NoRoute(func(c *gin.Context) {
		h.html(c, http.StatusNotFound, "error.tmpl", ViewData{
			"Title":   http.StatusText(http.StatusNotFound),
			"Message": "Page not found.",
		})
	})

	return r, nil
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
