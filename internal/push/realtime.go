package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

const (
	joinEvent      = "phx_join"
	leaveEvent     = "phx_leave"
	replyEvent     = "phx_reply"
	errorEvent     = "phx_error"
	closeEvent     = "phx_close"
	heartbeatEvent = "heartbeat"
	insertEvent    = "INSERT"

	heartbeatInterval = 25 * time.Second
	writeTimeout      = 10 * time.Second
)

// frame is the phoenix-style wire envelope used by the realtime service.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// RealtimeClient subscribes to message-insert events over a websocket feed.
type RealtimeClient struct {
	baseURL string
	apiKey  string
	dialer  *websocket.Dialer
	logger  *logging.Logger
}

// NewRealtimeClient builds a websocket push channel. baseURL is the ws(s)
// endpoint of the realtime service.
func NewRealtimeClient(baseURL, apiKey string, logger *logging.Logger) *RealtimeClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &RealtimeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

var _ Channel = (*RealtimeClient)(nil)

// Topic returns the server-side filter topic for a conversation's inserts.
func Topic(conversationID string) string {
	return fmt.Sprintf("realtime:public:messages:conversation_id=eq.%s", conversationID)
}

// Subscribe dials the realtime endpoint and joins the conversation topic.
// The returned subscription reports StatusConnecting immediately, then the
// transitions observed on the wire.
func (c *RealtimeClient) Subscribe(ctx context.Context, conversationID string) (Subscription, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("push: dial realtime: %w", err)
	}

	sub := &realtimeSubscription{
		conn:   conn,
		topic:  Topic(conversationID),
		logger: c.logger,
		events: make(chan Event, 16),
		status: make(chan Status, 4),
		done:   make(chan struct{}),
	}
	sub.publishStatus(StatusConnecting)

	join := frame{Topic: sub.topic, Event: joinEvent, Payload: json.RawMessage(`{}`), Ref: "1"}
	if err := sub.write(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("push: join topic: %w", err)
	}

	go sub.readLoop()
	go sub.heartbeatLoop()
	return sub, nil
}

func (c *RealtimeClient) endpoint() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("push: invalid realtime url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("apikey", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type realtimeSubscription struct {
	conn    *websocket.Conn
	topic   string
	logger  *logging.Logger
	writeMu sync.Mutex
	events  chan Event
	status  chan Status
	done    chan struct{}
}

func (s *realtimeSubscription) Events() <-chan Event  { return s.events }
func (s *realtimeSubscription) Status() <-chan Status { return s.status }

// Unsubscribe leaves the topic and tears down the connection. Safe to call
// more than once.
func (s *realtimeSubscription) Unsubscribe() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	// Best effort; the server drops the topic when the socket closes anyway.
	_ = s.write(frame{Topic: s.topic, Event: leaveEvent, Payload: json.RawMessage(`{}`)})
	_ = s.conn.Close()
}

func (s *realtimeSubscription) readLoop() {
	defer func() {
		close(s.events)
		close(s.status)
	}()
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("push: read failed", "topic", s.topic, "error", err)
				s.publishStatus(StatusDisconnected)
			}
			return
		}
		if st, ev, ok := decodeFrame(f, s.topic); ok {
			if st != "" {
				s.publishStatus(st)
			}
			if ev != nil {
				select {
				case s.events <- *ev:
				case <-s.done:
					return
				}
			}
		}
	}
}

func (s *realtimeSubscription) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			hb := frame{Topic: "phoenix", Event: heartbeatEvent, Payload: json.RawMessage(`{}`)}
			if err := s.write(hb); err != nil {
				s.logger.Debug("push: heartbeat failed", "topic", s.topic, "error", err)
				return
			}
		}
	}
}

// write sends one frame. The connection allows only one writer at a time,
// and Unsubscribe can race the heartbeat ticker, so writes serialize here.
func (s *realtimeSubscription) write(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(f)
}

func (s *realtimeSubscription) publishStatus(st Status) {
	select {
	case s.status <- st:
	default:
		// Drop rather than block; consumers only care about the latest state.
	}
}

// decodeFrame maps one wire frame onto a status transition and/or an insert
// event. Frames for other topics are ignored.
func decodeFrame(f frame, topic string) (Status, *Event, bool) {
	if f.Topic != topic && f.Topic != "phoenix" {
		return "", nil, false
	}
	switch f.Event {
	case replyEvent:
		var payload struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(f.Payload, &payload); err != nil {
			return StatusError, nil, true
		}
		if f.Topic == "phoenix" {
			// Heartbeat acknowledgement; no transition.
			return "", nil, false
		}
		if payload.Status == "ok" {
			return StatusSubscribed, nil, true
		}
		return StatusError, nil, true
	case errorEvent:
		return StatusError, nil, true
	case closeEvent:
		return StatusDisconnected, nil, true
	case insertEvent:
		var ev Event
		if err := json.Unmarshal(f.Payload, &ev); err != nil || ev.New.ID == "" {
			return "", nil, false
		}
		return "", &ev, true
	default:
		return "", nil, false
	}
}
