package handlers

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/events"
)

func TestStreamHandler_BroadcastsJobStatusEventsToConnectedClients(t *testing.T) {
	bus := events.New(arbor.NewLogger())
	stream := NewStreamHandler(bus, arbor.NewLogger())

	server := httptest.NewServer(stream)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the server a moment to register the connection before emitting.
	time.Sleep(20 * time.Millisecond)

	bus.Emit(TopicJobStatus, JobStatusEvent{JobID: "job-1", Status: "APPROVED"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if !strings.Contains(string(data), "job-1") || !strings.Contains(string(data), "APPROVED") {
		t.Errorf("message = %s, want job-1/APPROVED", data)
	}
}

func TestStreamHandler_BroadcastWithNoClientsIsANoop(t *testing.T) {
	bus := events.New(arbor.NewLogger())
	NewStreamHandler(bus, arbor.NewLogger())

	bus.Emit(TopicJobStatus, JobStatusEvent{JobID: "job-1", Status: "QUEUED"})
}

func TestStreamHandler_StatusEventIsWrappedInEnvelope(t *testing.T) {
	bus := events.New(arbor.NewLogger())
	stream := NewStreamHandler(bus, arbor.NewLogger())

	server := httptest.NewServer(stream)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	bus.Emit(TopicJobStatus, JobStatusEvent{JobID: "job-2", Status: "COMPLETED"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if !strings.Contains(string(data), `"type":"status"`) {
		t.Errorf("message = %s, want a status-type envelope", data)
	}
}

func TestParseLogLine(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		wantOK    bool
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "info line",
			line:      "INF|Oct  2 16:27:13|Stored pages count=25",
			wantOK:    true,
			wantLevel: "info",
			wantMsg:   "Stored pages count=25",
		},
		{
			name:      "warn line",
			line:      "WRN|Oct  2 16:27:14|job cache mirror failed",
			wantOK:    true,
			wantLevel: "warn",
			wantMsg:   "job cache mirror failed",
		},
		{
			name:      "error line",
			line:      "ERR|Oct  2 16:27:15|failed to upgrade websocket connection",
			wantOK:    true,
			wantLevel: "error",
			wantMsg:   "failed to upgrade websocket connection",
		},
		{
			name:   "malformed line missing separators",
			line:   "not a log line",
			wantOK: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			entry, ok := parseLogLine(c.line)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if !ok {
				return
			}
			if entry.Level != c.wantLevel {
				t.Errorf("level = %s, want %s", entry.Level, c.wantLevel)
			}
			if entry.Message != c.wantMsg {
				t.Errorf("message = %s, want %s", entry.Message, c.wantMsg)
			}
			if entry.Timestamp == "" {
				t.Error("expected a non-empty timestamp")
			}
		})
	}
}

func TestStreamHandler_ReplayNewEntriesDedupsAcrossCalls(t *testing.T) {
	h := &StreamHandler{
		logger:      arbor.NewLogger(),
		clients:     map[*websocket.Conn]*sync.Mutex{},
		lastLogKeys: map[string]bool{},
	}

	h.replayNewEntries(map[string]string{
		"k1": "INF|Oct  2 16:27:13|first line",
	})
	h.logKeysMu.Lock()
	seenAfterFirst := len(h.lastLogKeys)
	h.logKeysMu.Unlock()
	if seenAfterFirst != 1 {
		t.Fatalf("seen keys after first call = %d, want 1", seenAfterFirst)
	}

	// Same key resubmitted plus one new key: only the new key should be
	// considered fresh, and the seen set should track both afterward.
	h.replayNewEntries(map[string]string{
		"k1": "INF|Oct  2 16:27:13|first line",
		"k2": "INF|Oct  2 16:27:14|second line",
	})
	h.logKeysMu.Lock()
	defer h.logKeysMu.Unlock()
	if len(h.lastLogKeys) != 2 {
		t.Fatalf("seen keys after second call = %d, want 2", len(h.lastLogKeys))
	}
	if !h.lastLogKeys["k1"] || !h.lastLogKeys["k2"] {
		t.Errorf("expected both k1 and k2 to be tracked as seen, got %+v", h.lastLogKeys)
	}
}
