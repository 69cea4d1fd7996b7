package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeWait bounds every push to a connected stream client: a slow or
// stalled client is dropped rather than blocking the synchronous event
// bus emit that every other subscriber rides along with.
const writeWait = 5 * time.Second

// logPollInterval is how often the memory writer is polled for new log
// lines to replay over the stream, matching the teacher's StartLogStreamer.
const logPollInterval = 2 * time.Second

// streamEnvelope discriminates the two event kinds multiplexed onto
// GET /jobs/stream: job-status transitions pushed synchronously off the
// event bus, and recent log lines replayed from arbor's memory writer.
type streamEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LogEntry is one replayed log line, parsed from arbor's memory writer
// format ("LEVEL|Date Time|Message with fields").
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// StreamHandler upgrades GET /jobs/stream to a websocket connection and
// pushes a JSON envelope per job.status event emitted on the bus, plus
// recent log lines replayed from arbor's memory writer. Grounded on the
// teacher's WebSocketHandler client-registry and log-streaming pattern,
// trimmed to the one status topic this system streams.
type StreamHandler struct {
	logger  arbor.ILogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	logKeysMu   sync.Mutex
	lastLogKeys map[string]bool
}

// NewStreamHandler subscribes to bus's TopicJobStatus, starts the log
// replay poller, and returns a handler ready to serve connections.
func NewStreamHandler(bus *events.Bus, logger arbor.ILogger) *StreamHandler {
	h := &StreamHandler{
		logger:      logger,
		clients:     map[*websocket.Conn]*sync.Mutex{},
		lastLogKeys: map[string]bool{},
	}
	bus.Subscribe(TopicJobStatus, func(payload interface{}) {
		h.broadcast("status", payload)
	})
	h.startLogStreamer()
	return h
}

// startLogStreamer polls arbor's memory writer on logPollInterval and
// replays any log lines not yet seen as "log" events, so a client
// connecting to the stream also gets recent log context alongside
// status transitions.
func (h *StreamHandler) startLogStreamer() {
	ticker := time.NewTicker(logPollInterval)
	go func() {
		for range ticker.C {
			h.mu.RLock()
			clientCount := len(h.clients)
			h.mu.RUnlock()
			if clientCount > 0 {
				h.sendLogs()
			}
		}
	}()
}

// sendLogs retrieves new log entries from arbor's memory writer (falling
// back to the logger's own accessor if no writer is registered) and
// broadcasts each one not already replayed.
func (h *StreamHandler) sendLogs() {
	memWriter := arbor.GetRegisteredMemoryWriter(arbor.WRITER_MEMORY)
	if memWriter != nil {
		entries, err := memWriter.GetEntriesWithLimit(50)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to get log entries from memory writer")
			return
		}
		h.replayNewEntries(entries)
		return
	}

	if h.logger == nil {
		return
	}
	entries, err := h.logger.GetMemoryLogsWithLimit(50)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to get log entries")
		return
	}
	h.replayNewEntries(entries)
}

func (h *StreamHandler) replayNewEntries(entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	h.logKeysMu.Lock()
	newKeys := make(map[string]bool, len(entries))
	var fresh []string
	for key, line := range entries {
		newKeys[key] = true
		if !h.lastLogKeys[key] {
			fresh = append(fresh, line)
		}
	}
	h.lastLogKeys = newKeys
	h.logKeysMu.Unlock()

	for _, line := range fresh {
		if entry, ok := parseLogLine(line); ok {
			h.broadcast("log", entry)
		}
	}
}

// parseLogLine parses arbor's memory writer format
// ("LEVEL|Date Time|Message with fields") into a LogEntry.
func parseLogLine(line string) (LogEntry, bool) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return LogEntry{}, false
	}

	level := "info"
	switch strings.TrimSpace(parts[0]) {
	case "ERR", "ERROR", "FATAL", "PANIC":
		level = "error"
	case "WRN", "WARN":
		level = "warn"
	}

	timestamp := time.Now().Format("15:04:05")
	if fields := strings.Fields(strings.TrimSpace(parts[1])); len(fields) >= 3 {
		timestamp = fields[len(fields)-1]
	}

	return LogEntry{
		Timestamp: timestamp,
		Level:     level,
		Message:   strings.TrimSpace(parts[2]),
	}, true
}

// ServeHTTP handles GET /jobs/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *StreamHandler) broadcast(kind string, payload interface{}) {
	data, err := json.Marshal(streamEnvelope{Type: kind, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", kind).Msg("failed to marshal stream event")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
		mutexes = append(mutexes, h.clients[c])
	}
	h.mu.RUnlock()

	for i, c := range conns {
		mutexes[i].Lock()
		c.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			h.logger.Warn().Err(err).Msg("dropping stream client: write deadline exceeded or connection closed")
			h.drop(c)
		}
	}
}

// drop removes a client from the registry and closes its connection.
// Called when a write deadline is exceeded, so one stalled client never
// blocks delivery to the rest.
func (h *StreamHandler) drop(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}
