package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// prepareSSE sets the response headers a text/event-stream reply needs and
// returns the writer to stream chunks through, plus a Flusher when the
// underlying ResponseWriter supports one (it always does under net/http).
func prepareSSE(c *gin.Context) (io.Writer, http.Flusher) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	return c.Writer, flusher
}
