package llmswitch

import (
	"bufio"
	"bytes"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/metrics"
)

// sseFrameWriter wraps an io.PipeWriter with the "data: ...\n\n" framing
// every dialect's SSE wire format shares, matching the teacher's inline
// pw.Write(...) sequences but collected in one place since this switch has
// many more transform pairs than the teacher's single Gemini-to-OpenAI one.
type sseFrameWriter struct {
	pw       *io.PipeWriter
	from, to Format
}

func (w sseFrameWriter) writeData(jsonLine []byte) {
	w.pw.Write([]byte("data: "))
	w.pw.Write(jsonLine)
	w.pw.Write([]byte("\n\n"))
	metrics.SSEFramesForwarded.WithLabelValues(string(w.from), string(w.to)).Inc()
}

func (w sseFrameWriter) writeDone() {
	w.pw.Write([]byte("data: [DONE]\n\n"))
}

func (w sseFrameWriter) closeWithError(err error) {
	_ = w.pw.CloseWithError(err)
}

// eachSSEDataLine scans upstream line by line, invoking onData with the
// payload of every "data: ..." line (excluding the literal "[DONE]" and
// blank keep-alive lines). onDone is invoked once, either on a "data:
// [DONE]" line or when the scan ends (EOF or a read error), whichever
// comes first.
func eachSSEDataLine(upstream io.Reader, onData func(payload []byte), onDone func()) {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		payload := bytes.TrimPrefix(line, []byte("data: "))
		if bytes.Equal(bytes.TrimSpace(payload), []byte("[DONE]")) {
			onDone()
			return
		}
		onData(payload)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Debug("llmswitch: SSE scan ended with error")
	}
	onDone()
}
