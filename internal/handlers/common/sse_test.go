package common

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSSEContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/v1/chat/completions", nil)
	return c, w
}

func countHeartbeats(body string) int {
	return strings.Count(body, ": heartbeat\n\n")
}

func TestHeartbeatFiresWhenIdle(t *testing.T) {
	c, w := newSSEContext(t)
	interval := 50 * time.Millisecond
	s := NewSSEWriter(c, interval, "openai")

	// one idle interval plus slack must produce a heartbeat
	time.Sleep(interval + 50*time.Millisecond)
	s.Close()

	require.GreaterOrEqual(t, countHeartbeats(w.Body.String()), 1)
	require.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	require.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}

func TestWritesKeepHeartbeatQuiet(t *testing.T) {
	c, w := newSSEContext(t)
	interval := 80 * time.Millisecond
	s := NewSSEWriter(c, interval, "openai")

	// writes every half interval re-arm the timer, so it never fires
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Write([]byte("data: {}\n\n")))
		time.Sleep(interval / 2)
	}
	s.Close()

	require.Zero(t, countHeartbeats(w.Body.String()))
	require.Equal(t, 5, strings.Count(w.Body.String(), "data: {}"))
}

func TestCloseStopsHeartbeat(t *testing.T) {
	c, w := newSSEContext(t)
	interval := 40 * time.Millisecond
	s := NewSSEWriter(c, interval, "claude")
	s.Close()
	s.Close() // idempotent

	time.Sleep(2*interval + 20*time.Millisecond)
	require.Zero(t, countHeartbeats(w.Body.String()))

	// writes after close are swallowed, not raced onto the wire
	require.NoError(t, s.Write([]byte("data: late\n\n")))
	require.NotContains(t, w.Body.String(), "late")
}
