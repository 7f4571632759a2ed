package web

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"productblog/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey = "request_id"
	csrfKey      = "csrf_token"
)

// RequestID reuses an upstream X-Request-ID or generates a new one, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger injects a logger tagged with the request id into the request
// context and logs one line per request. Wire it after RequestID.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := base.With("request_id", c.GetString(requestIDKey))
		c.Request = c.Request.WithContext(logging.Inject(c.Request.Context(), log))

		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}

// recovery turns a panic into a logged, reported 500 page. It needs the
// session middleware in front of it.
func (h *Handler) recovery(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.From(c.Request.Context(), h.log).Error("panic recovered",
				"error", fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetTag("request_id", c.GetString(requestIDKey))
			hub.Recover(rec)

			if !c.Writer.Written() {
				h.html(c, http.StatusInternalServerError, "error.tmpl", ViewData{
					"Title":   http.StatusText(http.StatusInternalServerError),
					"Message": "Something went wrong.",
				})
			}
			c.Abort()
		}
	}()
	c.Next()
}

// limitBody caps every request body at n bytes.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// csrf parses the submitted form and checks its csrf_token against the
// session. Forms get their token from html.
func (h *Handler) csrf(c *gin.Context) {
	if err := parseForm(c.Request, h.maxUpload); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.html(c, status, "error.tmpl", ViewData{"Title": http.StatusText(status), "Message": "The form could not be read."})
		c.Abort()
		return
	}

	want, _ := sessions.Default(c).Get(csrfKey).(string)
	got := c.PostForm(csrfKey)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		h.html(c, http.StatusForbidden, "error.tmpl", ViewData{
			"Title":   http.StatusText(http.StatusForbidden),
			"Message": "The form has expired. Reload the page and try again.",
		})
		c.Abort()
		return
	}
	c.Next()
}

func parseForm(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// csrfToken returns the session's token, creating one on first use.
func csrfToken(sess sessions.Session) string {
	if tok, ok := sess.Get(csrfKey).(string); ok && tok != "" {
		return tok
	}
	tok := uuid.NewString()
	sess.Set(csrfKey, tok)
	return tok
}
