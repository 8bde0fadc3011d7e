package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Duduxlll/banca-xand/notify"
)

const pingInterval = 25 * time.Second

// StreamHandler serves the operator's live change feed over SSE.
type StreamHandler struct {
	notifier *notify.Broadcaster
}

func NewStreamHandler(notifier *notify.Broadcaster) *StreamHandler {
	return &StreamHandler{notifier: notifier}
}

// Stream pushes named change events plus periodic pings until the client
// disconnects. Unsubscribing on context done is what cleans the viewer up;
// send failures alone never do.
func (h *StreamHandler) Stream(c *gin.Context) {
	id, ch := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, gin.H{"reason": msg.Reason})
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{})
			return true
		}
	})
}
