// Package server wires transports, hub, dispatcher and router into the
// running chat service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"
)

// Server owns the TCP listener and, when configured, the HTTP listener
// for the WebSocket transport. All connections feed one hub.
type Server struct {
	cfg        *config.Config
	hub        *Hub
	listener   net.Listener
	httpServer *http.Server
}

func New(cfg *config.Config, hub *Hub) *Server {
	return &Server{cfg: cfg, hub: hub}
}

// Start begins accepting connections. The hub must be running already
// (or started shortly after); accepted connections block on registration
// until it is.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr, err)
	}
	s.listener = ln
	logger.Info("Server listening on %s", ln.Addr())

	go s.acceptLoop()

	if s.cfg.Server.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", NewWSHandler(s.hub))
		s.httpServer = &http.Server{
			Addr:         s.cfg.Server.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  s.cfg.Server.ReadTimeout,
			WriteTimeout: 0, // WebSocket writes manage their own deadlines
		}
		go func() {
			logger.Info("WebSocket endpoint on ws://%s/ws", s.cfg.Server.HTTPAddr)
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error: %v", err)
			}
		}()
	}

	return nil
}

// Addr returns the TCP listen address, useful when configured with
// port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Error("Accept error: %v", err)
			}
			return
		}
		logger.Info("Incoming connection from %s", netConn.RemoteAddr())

		c := newConn(s.hub, netConn, s.cfg.Server.WriteTimeout)
		s.hub.Register <- c

		go c.WritePump()
		go c.ReadPump()
	}
}

// Shutdown stops accepting and closes the listeners. Connected endpoints
// are closed by the hub when its context is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			firstErr = err
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
