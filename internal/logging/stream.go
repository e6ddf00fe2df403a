package logging

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
)

// LogHub broadcasts log records to connected WebSocket clients and keeps
// a bounded in-memory history for catch-up reads.
type LogHub struct {
	clients         map[*websocket.Conn]*clientInfo
	broadcast       chan LogRecord
	mu              sync.RWMutex
	stopCh          chan struct{}
	history         []LogRecord
	historyMu       sync.RWMutex
	seq             uint64
	historyCap      int
	maxConnections  int
	idleTimeout     time.Duration
	cleanupInterval time.Duration
}

type clientInfo struct {
	conn         *websocket.Conn
	lastActivity time.Time
	connected    time.Time
}

// LogRecord is the wire shape pushed to log stream subscribers.
type LogRecord struct {
	ID        uint64                 `json:"id,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	globalHub *LogHub
	hubOnce   sync.Once
)

// GetLogHub returns the process-wide hub, starting it on first use.
func GetLogHub() *LogHub {
	hubOnce.Do(func() {
		globalHub = NewLogHub()
		globalHub.Start()
	})
	return globalHub
}

// NewLogHub creates an unstarted hub with default limits.
func NewLogHub() *LogHub {
	return &LogHub{
		clients:         make(map[*websocket.Conn]*clientInfo),
		broadcast:       make(chan LogRecord, constants.WSLogBroadcastBuffer),
		stopCh:          make(chan struct{}),
		history:         make([]LogRecord, 0, constants.WSLogHistorySize),
		historyCap:      constants.WSLogHistorySize,
		maxConnections:  constants.WSLogMaxConnections,
		idleTimeout:     30 * time.Minute,
		cleanupInterval: 2 * time.Minute,
	}
}

// Start launches the broadcast and idle-cleanup goroutines.
func (h *LogHub) Start() {
	go func() {
		for {
			select {
			case record := <-h.broadcast:
				h.mu.RLock()
				for conn, info := range h.clients {
					go func(c *websocket.Conn, rec LogRecord) {
						if err := c.WriteJSON(rec); err != nil {
							h.Detach(c)
						}
					}(conn, record)
					info.lastActivity = time.Now()
				}
				h.mu.RUnlock()

			case <-h.stopCh:
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(h.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.cleanupIdle()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the hub and closes every client connection.
func (h *LogHub) Stop() {
	close(h.stopCh)

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]*clientInfo)
}

// ErrMaxConnectionsReached is returned when the subscriber limit is hit.
var ErrMaxConnectionsReached = errors.New("maximum WebSocket connections reached")

// Attach registers a subscriber connection.
func (h *LogHub) Attach(conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxConnections {
		log.Warnf("log stream connection limit reached (%d), rejecting new connection", h.maxConnections)
		return ErrMaxConnectionsReached
	}

	now := time.Now()
	h.clients[conn] = &clientInfo{conn: conn, lastActivity: now, connected: now}
	log.Infof("log stream client connected (total: %d)", len(h.clients))
	return nil
}

// Detach removes and closes a subscriber connection.
func (h *LogHub) Detach(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		conn.Close()
		log.Infof("log stream client disconnected (remaining: %d)", len(h.clients))
	}
}

func (h *LogHub) cleanupIdle() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for conn, info := range h.clients {
		if now.Sub(info.lastActivity) > h.idleTimeout {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ConnectionCount returns the current number of subscribers.
func (h *LogHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast appends a record to history and pushes it to subscribers.
// The push is dropped when the buffer is full.
func (h *LogHub) Broadcast(level, message string, fields map[string]interface{}) {
	record := LogRecord{
		ID:        atomic.AddUint64(&h.seq, 1),
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Fields:    fields,
	}

	h.appendHistory(record)

	select {
	case h.broadcast <- record:
	default:
	}
}

func (h *LogHub) appendHistory(rec LogRecord) {
	if h.historyCap <= 0 {
		return
	}
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	h.history = append(h.history, rec)
	if len(h.history) > h.historyCap {
		excess := len(h.history) - h.historyCap
		h.history = append([]LogRecord(nil), h.history[excess:]...)
	}
}

// History returns records newer than the cursor, up to limit.
func (h *LogHub) History(cursor uint64, limit int) ([]LogRecord, uint64, bool) {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()

	if limit <= 0 || limit > h.historyCap {
		limit = h.historyCap
	}

	total := len(h.history)
	if total == 0 {
		return []LogRecord{}, cursor, false
	}

	start := 0
	if cursor == 0 {
		if total > limit {
			start = total - limit
		}
	} else {
		start = total
		for i, rec := range h.history {
			if rec.ID > cursor {
				start = i
				break
			}
		}
		if start >= total {
			return []LogRecord{}, cursor, false
		}
	}

	end := start + limit
	if end > total {
		end = total
	}

	out := make([]LogRecord, end-start)
	copy(out, h.history[start:end])

	next := cursor
	if len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, end < total
}

// HubHook is a logrus hook that mirrors every entry into the hub.
type HubHook struct {
	hub *LogHub
}

// NewHubHook creates a hook bound to the global hub.
func NewHubHook() *HubHook {
	return &HubHook{hub: GetLogHub()}
}

// Levels returns the log levels this hook fires for.
func (hook *HubHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire forwards the entry to the hub.
func (hook *HubHook) Fire(entry *log.Entry) error {
	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		fields[k] = v
	}
	hook.hub.Broadcast(entry.Level.String(), entry.Message, fields)
	return nil
}

// InstallStreamHook mirrors logrus output into the WebSocket hub.
func InstallStreamHook() {
	log.AddHook(NewHubHook())
	log.Info("log stream hook installed")
}
