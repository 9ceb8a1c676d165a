package mywebsocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MarcGrol/storefront/lib/mylog"
)

const (
	sendBufferSize      = 16
	broadcastBufferSize = 256
)

// MessageHandler receives every message a connected client sends.
type MessageHandler func(c context.Context, message []byte)

// Hub fans out messages to every connected websocket client.
type Hub struct {
	logger     mylog.Logger
	handler    MessageHandler
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

func NewHub(logger mylog.Logger, handler MessageHandler) *Hub {
	return &Hub{
		logger:     logger,
		handler:    handler,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBufferSize),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until c is cancelled.
func (h *Hub) Run(c context.Context) {
	defer func() {
		for cl := range h.clients {
			close(cl.send)
		}
		h.clients = map[*client]bool{}
		close(h.done)
	}()

	for {
		select {
		case <-c.Done():
			return

		case cl := <-h.register:
			h.clients[cl] = true
			h.sendInitial(c, cl)
			h.logger.Log(c, "", mylog.SeverityDebug, "Websocket client registered (%d connected)", len(h.clients))

		case cl := <-h.unregister:
			if h.clients[cl] {
				delete(h.clients, cl)
				close(cl.send)
			}
			h.logger.Log(c, "", mylog.SeverityDebug, "Websocket client unregistered (%d connected)", len(h.clients))

		case message := <-h.broadcast:
			for cl := range h.clients {
				select {
				case cl.send <- message:
				default:
					// slow consumer
					delete(h.clients, cl)
					close(cl.send)
					h.logger.Log(c, "", mylog.SeverityWarn, "Websocket client send buffer full, disconnecting")
				}
			}
		}
	}
}

// Broadcast queues msg as json for every connected client. Messages are dropped when the hub is congested.
func (h *Hub) Broadcast(c context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshalling websocket message: %w", err)
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Log(c, "", mylog.SeverityWarn, "Websocket broadcast channel full, message dropped")
	}
	return nil
}

// ServeWS upgrades the request and registers the client. initial is evaluated by the hub at registration, so
// every change after that point reaches the client as a broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial func() any) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied to the client
		return fmt.Errorf("error upgrading to websocket: %w", err)
	}

	cl := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		initial: initial,
	}

	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return fmt.Errorf("websocket hub is stopped")
	}

	// pumps outlive the handler
	c := context.WithoutCancel(r.Context())
	go cl.writePump(c)
	go cl.readPump(c)

	return nil
}

func (h *Hub) sendInitial(c context.Context, cl *client) {
	if cl.initial == nil {
		return
	}
	data, err := json.Marshal(cl.initial())
	if err != nil {
		h.logger.Log(c, "", mylog.SeverityWarn, "Error marshalling initial websocket message: %s", err)
		return
	}
	// fresh client, the send buffer is empty
	cl.send <- data
}
