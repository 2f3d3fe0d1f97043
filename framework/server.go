package framework

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const httpListenerTimeout = time.Second * 10

// Server is an HTTP listener started by StartServer.
type Server struct {
	server *http.Server
	addr   string
	errCh  chan error
}

// StartServer begins serving the handler on the specified address (such as ":8080") and
// waits until the listener is definitely accepting requests. HEAD requests to any path
// are answered with a 200 status without reaching the handler.
func StartServer(addr string, handler http.Handler, logger Logger) (*Server, error) {
	if logger == nil {
		logger = NullLogger()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		addr:  listener.Addr().String(),
		errCh: make(chan error, 1),
		server: &http.Server{
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodHead {
					w.WriteHeader(200)
					return
				}
				handler.ServeHTTP(w, r)
			}),
			ReadHeaderTimeout: httpListenerTimeout,
		},
	}
	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Server at %s stopped: %s", s.addr, err)
		}
		s.errCh <- err
	}()

	deadline := time.NewTimer(httpListenerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Millisecond * 10)
	defer ticker.Stop()
	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-deadline.C:
			_ = s.server.Close()
			return nil, fmt.Errorf("could not detect own listener at %s", s.addr)
		case err := <-s.errCh:
			return nil, err
		case <-ticker.C:
			resp, err := client.Head(s.URL())
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == 200 {
					return s, nil
				}
			}
		}
	}
}

// Addr is the actual address being listened on, which is useful if the port was 0.
func (s *Server) Addr() string {
	return s.addr
}

// URL is a base URL for reaching the server from the local host.
func (s *Server) URL() string {
	_, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		return "http://" + s.addr
	}
	return "http://localhost:" + port
}

// Done is signaled with the result of Serve once the server stops.
func (s *Server) Done() <-chan error {
	return s.errCh
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
