package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
)

func dialEvents(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", want, hub.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	return event
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop())
	server := httptest.NewServer(NewRouter(&fakeController{}, nil, hub, zerolog.Nop()))
	defer server.Close()

	first := dialEvents(t, server)
	second := dialEvents(t, server)
	waitSubscribers(t, hub, 2)

	hub.SessionStateChanged(domain.PhaseActive, domain.SessionReasonStarted)
	hub.TranscriptAppended(domain.TranscriptEntry{Role: domain.RoleInterviewer, Text: "Hello"})

	for _, conn := range []*websocket.Conn{first, second} {
		state := readEvent(t, conn)
		if state.Type != "session_state" || state.Phase != domain.PhaseActive || state.Reason != domain.SessionReasonStarted {
			t.Fatalf("unexpected state event: %+v", state)
		}
		entry := readEvent(t, conn)
		if entry.Type != "transcript" || entry.Entry == nil || entry.Entry.Text != "Hello" {
			t.Fatalf("unexpected transcript event: %+v", entry)
		}
	}
}

func TestHubEventShapes(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop())
	server := httptest.NewServer(NewRouter(&fakeController{}, nil, hub, zerolog.Nop()))
	defer server.Close()

	conn := dialEvents(t, server)
	waitSubscribers(t, hub, 1)

	hub.SpeechStateChanged(domain.SpeechIdle, domain.SpeechInterviewerSpeaking)
	hub.PartialTranscript("so I")
	hub.DeviceChanged(domain.DeviceCapability{Kind: domain.DeviceMicrophone, Granted: true})
	hub.SessionError(domain.ErrorCodeSynthesis, "tts down")
	hub.InterviewCompleted(domain.InterviewResult{SessionID: "s-1", Score: 80})

	checks := []func(Event) bool{
		func(e Event) bool {
			return e.Type == "speech_state" && e.From == domain.SpeechIdle && e.To == domain.SpeechInterviewerSpeaking
		},
		func(e Event) bool { return e.Type == "partial_transcript" && e.Text == "so I" },
		func(e Event) bool { return e.Type == "device" && e.Device != nil && e.Device.Granted },
		func(e Event) bool { return e.Type == "error" && e.Code == domain.ErrorCodeSynthesis && e.Detail == "tts down" },
		func(e Event) bool { return e.Type == "completed" && e.Result != nil && e.Result.Score == 80 },
	}
	for i, check := range checks {
		if event := readEvent(t, conn); !check(event) {
			t.Fatalf("event %d has unexpected shape: %+v", i, event)
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop())
	slow := hub.subscribe()

	for i := 0; i < subscriberBuffer+1; i++ {
		hub.PartialTranscript("word")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("slow subscriber should be dropped")
	}

	drained := 0
	for range slow.send {
		drained++
	}
	if drained != subscriberBuffer {
		t.Fatalf("expected buffered events to remain readable, got %d", drained)
	}
	hub.unsubscribe(slow)
}

func TestHubUnsubscribesOnClientClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop())
	server := httptest.NewServer(NewRouter(&fakeController{}, nil, hub, zerolog.Nop()))
	defer server.Close()

	conn := dialEvents(t, server)
	waitSubscribers(t, hub, 1)
	_ = conn.Close()
	waitSubscribers(t, hub, 0)
}
