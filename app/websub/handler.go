package websub

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/parser"
)

// Handler exposes the subscriber's callback endpoint: GET answers hub
// verification challenges, POST receives content notifications.
type Handler struct {
	subscriber *Subscriber
	onItems    func(topic string, items []feed.Item)
}

func NewHandler(subscriber *Subscriber, onItems func(topic string, items []feed.Item)) *Handler {
	return &Handler{subscriber: subscriber, onItems: onItems}
}

// Register mounts the callback endpoint on the router. Methods other
// than GET and POST are rejected with 405.
func (h *Handler) Register(r gin.IRouter, path string) {
	r.GET(path, h.Verify)
	r.POST(path, h.Notify)
	r.Match([]string{http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions}, path, func(c *gin.Context) {
		c.Header("Allow", "GET, POST")
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (h *Handler) Verify(c *gin.Context) {
	challenge, err := h.subscriber.VerifyChallenge(c.Request.URL.Query())
	if err != nil {
		var verr *VerificationError
		if errors.As(err, &verr) && verr.Missing {
			c.String(http.StatusBadRequest, "missing verification parameters")
			return
		}
		slog.Warn("Rejected hub verification", "error", err)
		c.String(http.StatusForbidden, "verification rejected")
		return
	}

	// The challenge must be echoed back verbatim.
	c.String(http.StatusOK, challenge)
}

func (h *Handler) Notify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read request body")
		return
	}

	topic, items, err := h.subscriber.HandleNotification(body, c.Request.Header)
	if err != nil {
		var sigErr *SignatureError
		var parseErr *parser.ParseError
		switch {
		case errors.As(err, &sigErr):
			slog.Warn("Rejected notification", "topic", topic, "error", err)
			c.String(http.StatusBadRequest, "invalid signature")
		case errors.As(err, &parseErr):
			slog.Warn("Unparseable notification", "topic", topic, "error", err)
			c.String(http.StatusBadRequest, "invalid feed content")
		default:
			slog.Error("Failed to handle notification", "topic", topic, "error", err)
			c.String(http.StatusBadRequest, "invalid notification")
		}
		return
	}

	if len(items) > 0 && h.onItems != nil {
		h.onItems(topic, items)
	}

	c.Status(http.StatusNoContent)
}
