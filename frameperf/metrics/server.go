package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Endpoint        = "/metrics"
	shutdownTimeout = 5 * time.Second
)

// Server exposes a registry over HTTP.
type Server struct {
	server *http.Server
	addr   net.Addr
	stopCh chan struct{}
}

// Serve starts serving gatherer on addr until ctx is done or Shutdown is
// called. It returns once the listener is bound.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(Endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &Server{
		server: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   listener.Addr(),
		stopCh: make(chan struct{}),
	}

	go func() {
		defer close(s.stopCh)

		slog.Info("Metrics server listening", "addr", s.addr.String(), "endpoint", Endpoint)
		if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.stopCh:
		}
	}()

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}
	<-s.stopCh
}
