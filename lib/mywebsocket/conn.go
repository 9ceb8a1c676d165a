package mywebsocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MarcGrol/storefront/lib/mylog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024
)

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	initial func() any
}

func (cl *client) readPump(c context.Context) {
	defer func() {
		select {
		case cl.hub.unregister <- cl:
		case <-cl.hub.done:
		}
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				cl.hub.logger.Log(c, "", mylog.SeverityWarn, "Websocket read error: %s", err)
			}
			return
		}
		if cl.hub.handler != nil {
			cl.hub.handler(c, message)
		}
	}
}

func (cl *client) writePump(c context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case message, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err := cl.conn.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				cl.hub.logger.Log(c, "", mylog.SeverityWarn, "Websocket write error: %s", err)
				return
			}

		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
