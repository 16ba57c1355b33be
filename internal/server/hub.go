package server

import (
	"context"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/dispatch"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/router"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"
)

// Endpoint is a connected transport. Push and Close are only ever called
// from the hub goroutine; transports deliver pushed frames to the peer
// from their own writer.
type Endpoint interface {
	session.Handler
	Close() error
}

// Inbound is one raw frame received from an endpoint, before decoding.
type Inbound struct {
	From  Endpoint
	Frame []byte
}

// Hub is the single execution context of the server. All decoding,
// dispatch, store access and broadcast fan-out happen on its goroutine,
// one request at a time, which is what makes the registry and the
// whole-file store safe without locks.
type Hub struct {
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher

	Register   chan Endpoint
	Unregister chan Endpoint
	Requests   chan Inbound

	// done is closed when Run returns, releasing pumps still trying to
	// hand their endpoint back.
	done chan struct{}
}

func NewHub(registry *session.Registry, dispatcher *dispatch.Dispatcher) *Hub {
	return &Hub{
		registry:   registry,
		dispatcher: dispatcher,
		Register:   make(chan Endpoint),
		Unregister: make(chan Endpoint),
		Requests:   make(chan Inbound, 64),
		done:       make(chan struct{}),
	}
}

// Run services the hub until ctx is cancelled, then closes every
// connected endpoint.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, s := range h.registry.All() {
				if ep, ok := s.Handler.(Endpoint); ok {
					ep.Close()
				}
			}
			return

		case ep := <-h.Register:
			h.registry.Add(ep)
			logger.Debug("Connection registered, %d sessions", h.registry.Len())

		case ep := <-h.Unregister:
			if s := h.registry.Remove(ep); s != nil {
				logger.Debug("Connection for %q removed, %d sessions", s.Username, h.registry.Len())
			}
			ep.Close()

		case in := <-h.Requests:
			h.handle(ctx, in)
		}
	}
}

func (h *Hub) handle(ctx context.Context, in Inbound) {
	req, err := protocol.DecodeRequest(in.Frame)
	if err != nil {
		// Malformed frame: the connection is not trustworthy anymore.
		logger.Error("Dropping connection on malformed frame: %v", err)
		h.drop(in.From)
		return
	}

	if req.Version != protocol.Version {
		// Fatal for the connection. The 330 goes only to the offender.
		logger.Info("Protocol version mismatch: got %v, want %v", req.Version, protocol.Version)
		if frame, err := protocol.EncodeResponse(dispatch.VersionMismatch()); err == nil {
			in.From.Push(frame)
		}
		h.drop(in.From)
		return
	}

	sess := h.registry.ByHandler(in.From)
	if sess == nil {
		// Raced with its own disconnect.
		return
	}

	resp, err := h.dispatcher.Dispatch(ctx, req, sess)
	if err != nil {
		logger.Error("Dispatch %s failed: %v", req.Command, err)
		return
	}

	if err := router.Route(h.registry, req, resp, sess); err != nil {
		logger.Error("Routing %s response failed: %v", req.Command, err)
	}
}

// drop removes and closes an endpoint.
func (h *Hub) drop(ep Endpoint) {
	h.registry.Remove(ep)
	ep.Close()
}

// unregister hands a disconnected endpoint back to the hub. If the hub
// has already stopped the endpoint was closed during shutdown and the
// handoff is skipped, so reader goroutines never block on a dead hub.
func (h *Hub) unregister(ep Endpoint) {
	select {
	case h.Unregister <- ep:
	case <-h.done:
	}
}
