package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/monitoring"
)

// SSEWriter serializes frame writes and the heartbeat onto one client
// connection. The heartbeat timer re-arms after every write, so a comment
// line goes out only when the stream has been idle a full interval.
type SSEWriter struct {
	mu      sync.Mutex
	w       gin.ResponseWriter
	flusher http.Flusher
	surface string

	timer  *time.Timer
	ticks  time.Duration
	done   chan struct{}
	closed bool
}

// NewSSEWriter sets the streaming headers and starts the heartbeat.
// Callers must Close it on every exit path.
func NewSSEWriter(c *gin.Context, interval time.Duration, surface string) *SSEWriter {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)
	s := &SSEWriter{
		w:       c.Writer,
		flusher: flusher,
		surface: surface,
		ticks:   interval,
		done:    make(chan struct{}),
	}
	s.timer = time.NewTimer(interval)
	go s.heartbeatLoop()
	return s
}

func (s *SSEWriter) heartbeatLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.timer.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			_, err := s.w.Write([]byte(": heartbeat\n\n"))
			if err == nil && s.flusher != nil {
				s.flusher.Flush()
			}
			monitoring.SSEHeartbeatsTotal.WithLabelValues(s.surface).Inc()
			s.timer.Reset(s.ticks)
			s.mu.Unlock()
		}
	}
}

// Write sends one pre-framed SSE payload and re-arms the heartbeat.
func (s *SSEWriter) Write(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(s.ticks)
	return nil
}

// Close stops the heartbeat. Safe to call more than once.
func (s *SSEWriter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.timer.Stop()
	close(s.done)
}
