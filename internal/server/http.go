package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
)

type serverHandle struct {
	http     *http.Server
	listener net.Listener
	done     chan error
}

// StatsView is served on /stats.
type StatsView struct {
	Dispatcher *messaging.Stats `json:"dispatcher,omitempty"`
	Clients    int              `json:"clients"`
	Dropped    uint64           `json:"dropped"`
}

func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case m.config.Path:
		m.handleEvents(w, r)
	case "/stats":
		m.handleStats(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view := StatsView{Clients: m.Clients(), Dropped: m.Dropped()}
	if m.stats != nil {
		st := m.stats.Stats()
		view.Dispatcher = &st
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		m.logger.Debug("failed to write stats", log.Error(err))
	}
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr asks for port 0.
func (m *Monitor) Start(addr string) (net.Addr, error) {
	m.serverMu.Lock()
	defer m.serverMu.Unlock()
	if m.server != nil {
		return nil, ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	h := &serverHandle{
		http:     &http.Server{Handler: m},
		listener: ln,
		done:     make(chan error, 1),
	}
	go func() {
		err := h.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		h.done <- err
	}()
	m.server = h
	m.logger.Info("monitor listening", log.String("addr", ln.Addr().String()), log.String("path", m.config.Path))
	return ln.Addr(), nil
}

// Stop shuts the listener down and disconnects every client.
func (m *Monitor) Stop(ctx context.Context) error {
	m.serverMu.Lock()
	h := m.server
	m.server = nil
	m.serverMu.Unlock()
	if h == nil {
		return ErrServerNotRunning
	}

	_ = m.Close()
	if err := h.http.Shutdown(ctx); err != nil {
		return err
	}
	return <-h.done
}

// ListenAndServe runs the monitor until ctx is done.
func (m *Monitor) ListenAndServe(ctx context.Context, addr string) error {
	if _, err := m.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), m.config.WriteTimeout)
	defer cancel()
	return m.Stop(stopCtx)
}
