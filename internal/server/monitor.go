package server

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
)

var _ messaging.Observer = (*Monitor)(nil)

// StatsSource is anything that can report dispatcher counters.
type StatsSource interface {
	Stats() messaging.Stats
}

// EventView is the JSON form of a dispatcher event sent to monitor clients.
type EventView struct {
	Kind        string  `json:"kind"`
	Dispatcher  string  `json:"dispatcher"`
	MessageType string  `json:"message_type,omitempty"`
	Timing      string  `json:"timing,omitempty"`
	Sender      string  `json:"sender,omitempty"`
	Receiver    string  `json:"receiver,omitempty"`
	Receivers   int     `json:"receivers"`
	Time        float64 `json:"time"`
	Tick        int64   `json:"tick"`
	Error       string  `json:"error,omitempty"`
}

func newEventView(e messaging.Event) EventView {
	v := EventView{
		Kind:        string(e.Kind),
		Dispatcher:  e.Dispatcher,
		MessageType: e.MessageType,
		Sender:      e.Sender,
		Receiver:    e.Receiver,
		Receivers:   e.Receivers,
		Time:        e.Time,
		Tick:        e.Tick,
	}
	if e.MessageType != "" {
		v.Timing = e.Timing.String()
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

type encodedEvent struct {
	kind messaging.EventKind
	data []byte
}

type MonitorConfig struct {
	Path         string
	Backlog      int
	MaxClients   int
	WriteTimeout time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Path:         "/events",
		Backlog:      256,
		MaxClients:   64,
		WriteTimeout: 5 * time.Second,
	}
}

// Monitor streams dispatcher events to websocket clients. It only observes,
// nothing received from a client is ever routed into a dispatcher.
type Monitor struct {
	config MonitorConfig
	logger log.Log
	stats  StatsSource

	mu      sync.Mutex
	clients map[*client]struct{}
	backlog []encodedEvent
	closed  bool

	serverMu sync.Mutex
	server   *serverHandle

	dropped atomic.Uint64
}

// NewMonitor builds a monitor. stats may be nil, in which case /stats only
// reports monitor counters.
func NewMonitor(config MonitorConfig, logger log.Log, stats StatsSource) *Monitor {
	def := DefaultMonitorConfig()
	if config.Path == "" {
		config.Path = def.Path
	}
	if config.Backlog < 0 {
		config.Backlog = 0
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = log.Provide()
	}
	return &Monitor{
		config:  config,
		logger:  logger.With(log.String("component", "monitor")),
		stats:   stats,
		clients: make(map[*client]struct{}),
	}
}

// OnEvent encodes e once and queues it for every interested client. Clients
// that cannot keep up lose the event rather than stall the dispatcher.
func (m *Monitor) OnEvent(e messaging.Event) {
	b, err := json.Marshal(newEventView(e))
	if err != nil {
		m.logger.Error("failed to encode event", log.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.config.Backlog > 0 {
		if len(m.backlog) == m.config.Backlog {
			m.backlog = append(m.backlog[:0], m.backlog[1:]...)
		}
		m.backlog = append(m.backlog, encodedEvent{kind: e.Kind, data: b})
	}
	for c := range m.clients {
		if !c.accepts(e.Kind) {
			continue
		}
		select {
		case c.send <- b:
		default:
			m.dropped.Add(1)
		}
	}
}

// Clients returns how many clients are connected.
func (m *Monitor) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Dropped returns how many events were not delivered to slow clients.
func (m *Monitor) Dropped() uint64 { return m.dropped.Load() }

// reserve registers c and replays the backlog into it. The replay and the
// registration happen under one lock so no event is seen twice or missed.
func (m *Monitor) reserve(c *client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrServerClosed
	}
	if len(m.clients) >= m.config.MaxClients {
		return ErrMaxClientsReached
	}
	for _, ev := range m.backlog {
		if !c.accepts(ev.kind) {
			continue
		}
		select {
		case c.send <- ev.data:
		default:
			m.dropped.Add(1)
		}
	}
	m.clients[c] = struct{}{}
	return nil
}

func (m *Monitor) release(c *client) {
	m.mu.Lock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.send)
	}
	m.mu.Unlock()
}

// Close disconnects every client and rejects new ones.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	clients := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.disconnect()
	}
	m.logger.Info("monitor closed", log.Int("clients", len(clients)))
	return nil
}
