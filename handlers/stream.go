package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"lokals/services/broadcast"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamHandler serves live booking updates over server-sent events.
type StreamHandler struct {
	Broadcaster broadcast.Broadcaster
	Logger      *zap.Logger
}

func NewStreamHandler(b broadcast.Broadcaster, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{Broadcaster: b, Logger: logger}
}

// Stream holds the connection open and forwards every status event for the
// booking until the client disconnects.
func (h *StreamHandler) Stream(c *gin.Context) {
	bookingID := c.Param("id")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	events, cancel := h.Broadcaster.Subscribe(c.Request.Context(), bookingID)
	defer cancel()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.Logger.Warn("failed to marshal event for stream",
					zap.String("bookingID", bookingID), zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
