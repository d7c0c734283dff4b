package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
)

const (
	subscriberBuffer = 64
	writeWait        = 5 * time.Second
)

// Event is one sink callback as sent to websocket subscribers.
type Event struct {
	Type   string                    `json:"type"`
	Phase  domain.SessionPhase       `json:"phase,omitempty"`
	Reason domain.SessionStateReason `json:"reason,omitempty"`
	From   domain.SpeechState        `json:"from,omitempty"`
	To     domain.SpeechState        `json:"to,omitempty"`
	Text   string                    `json:"text,omitempty"`
	Code   domain.ErrorCode          `json:"code,omitempty"`
	Detail string                    `json:"detail,omitempty"`
	Entry  *domain.TranscriptEntry   `json:"entry,omitempty"`
	Device *domain.DeviceCapability  `json:"device,omitempty"`
	Result *domain.InterviewResult   `json:"result,omitempty"`
}

// Hub implements ports.EventSink by broadcasting every event to connected
// websocket clients. A subscriber whose buffer fills is disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "event_hub").Logger(),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (h *Hub) SessionStateChanged(phase domain.SessionPhase, reason domain.SessionStateReason) {
	h.broadcast(Event{Type: "session_state", Phase: phase, Reason: reason})
}

func (h *Hub) SpeechStateChanged(from domain.SpeechState, to domain.SpeechState) {
	h.broadcast(Event{Type: "speech_state", From: from, To: to})
}

func (h *Hub) TranscriptAppended(entry domain.TranscriptEntry) {
	h.broadcast(Event{Type: "transcript", Entry: &entry})
}

func (h *Hub) PartialTranscript(text string) {
	h.broadcast(Event{Type: "partial_transcript", Text: text})
}

func (h *Hub) DeviceChanged(capability domain.DeviceCapability) {
	h.broadcast(Event{Type: "device", Device: &capability})
}

func (h *Hub) SessionError(code domain.ErrorCode, detail string) {
	h.broadcast(Event{Type: "error", Code: code, Detail: detail})
}

func (h *Hub) InterviewCompleted(result domain.InterviewResult) {
	h.broadcast(Event{Type: "completed", Result: &result})
}

// Subscribers reports how many clients are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			delete(h.subs, sub)
			sub.close()
			h.logger.Warn().Str("type", event.Type).Msg("dropping slow event subscriber")
		}
	}
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Serve upgrades the request and streams events until either side closes.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("event stream upgrade failed")
		return nil
	}
	defer func() { _ = conn.Close() }()

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"),
					time.Now().Add(writeWait))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}
