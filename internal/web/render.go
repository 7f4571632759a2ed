package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"productblog/internal/attachments"
	"productblog/internal/catalog"
	"productblog/internal/logging"
)

type ViewData map[string]any

// html renders a page with the session's flash messages and csrf token.
func (h *Handler) html(c *gin.Context, status int, name string, data ViewData) {
	if data == nil {
		data = ViewData{}
	}
	sess := sessions.Default(c)
	data["CSRF"] = csrfToken(sess)
	data["Flashes"] = sess.Flashes()
	if err := sess.Save(); err != nil {
		logging.From(c.Request.Context(), h.log).Warn("session save failed", "error", err)
	}
	c.HTML(status, name, data)
}

// redirectToList sends the browser back to the listing with a flash message.
func (h *Handler) redirectToList(c *gin.Context, flash string) {
	sess := sessions.Default(c)
	sess.AddFlash(flash)
	if err := sess.Save(); err != nil {
		logging.From(c.Request.Context(), h.log).Warn("session save failed", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/products")
}

// fail renders the error page for err. Unexpected errors are logged and
// reported to Sentry.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Something went wrong."
	switch {
	case errors.Is(err, catalog.ErrBadRequest), errors.Is(err, attachments.ErrInvalidName):
		status, msg = http.StatusBadRequest, "The request is missing a valid product id or file name."
	case errors.Is(err, catalog.ErrNotFound):
		status, msg = http.StatusNotFound, "The product was not found."
	case errors.Is(err, context.Canceled):
		logging.From(c.Request.Context(), h.log).Debug("request canceled", "error", err)
	default:
		logging.From(c.Request.Context(), h.log).Error("request failed",
			"error", err,
			"route", c.FullPath(),
		)
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("request_id", c.GetString(requestIDKey))
		hub.Scope().SetTag("route", c.FullPath())
		hub.CaptureException(err)
	}

	h.html(c, status, "error.tmpl", ViewData{"Title": http.StatusText(status), "Message": msg})
	c.Abort()
}
