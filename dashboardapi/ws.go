package dashboardapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/notepay/notepay/dashboard"
	"github.com/notepay/notepay/logger"
)

const (
	hubInnerChannelsBufferSize      = 100
	socketTickerInterval            = 100 * time.Millisecond
	socketWriteWait                 = 10 * time.Second
	socketPongWait                  = 20 * time.Second
	socketPingPeriod                = (socketPongWait * 4) / 5
	socketReadBufferSize            = 5012
	socketMaxMessageSize            = socketReadBufferSize * 4
	clientMessageChannelsBufferSize = 512
	clientsCountLimit               = 100
)

const (
	CommandEcho  = "echo"
	CommandEvent = "command_event"
)

// Message is the message that is used to exchange information between
// the server and the client.
type Message struct {
	Command string           `json:"command"`         // Command is the command that refers to the action handler in websocket protocol.
	Error   string           `json:"error,omitempty"` // Error is the error message that is sent to the client.
	Event   *dashboard.Event `json:"event,omitempty"` // Event is the dashboard state change pushed to the client.
}

type socket struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
	log  logger.Logger
}

func (a *app) wsWrapper(ctx context.Context, c *fiber.Ctx) error {
	if !a.validToken(c.Get("Token")) {
		a.log.Error(
			fmt.Sprintf("websocket server, no valid token provided from address: %s", c.IP()))
		return fiber.ErrForbidden
	}

	client := &socket{
		hub:  a.hub,
		conn: nil,
		send: make(chan []byte, clientMessageChannelsBufferSize),
		log:  a.log,
	}

	ctxx, cancel := context.WithCancel(ctx)
	serveWs := func(conn *websocket.Conn) {
		client.conn = conn
		client.hub.register <- client
		go client.writePump(ctxx, cancel)
		client.readPump(ctxx, cancel)
	}
	a.log.Info(fmt.Sprintf("websocket server, new connection from address: %s accepted", c.IP()))

	return websocket.New(serveWs)(c)
}

func (c *socket) readPump(ctx context.Context, cancel context.CancelFunc) {
	c.conn.SetReadLimit(socketMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(socketPongWait)); return nil })

	tc := time.NewTicker(socketTickerInterval)
	defer tc.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tc.C:
			var msg Message
			err := c.conn.ReadJSON(&msg)
			if err != nil {
				switch {
				case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
					c.log.Info(fmt.Sprintf("socket closing connection due to unexpected error %s", err))
				default:
					c.log.Info(fmt.Sprintf("socket closing connection due to error %s", err))
				}
				cancel()
				return
			}
			c.process(&msg)
		}
	}
}

func (c *socket) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister <- c
		err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "dashboard stopped"))
		if err != nil {
			c.log.Error(fmt.Sprintf("socket write closing msg error, %s", err.Error()))
		}
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				c.log.Info("socket closing connection due to channel close")
				cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.log.Error(fmt.Sprintf("socket closing connection due to %s", err))
				cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Error(fmt.Sprintf("socket closing connection due to %s", err))
				cancel()
				return
			}
		}
	}
}

type hub struct {
	clients    map[*socket]struct{}
	broadcast  chan *Message
	register   chan *socket
	unregister chan *socket
	log        logger.Logger
}

func newHub(log logger.Logger) *hub {
	return &hub{
		broadcast:  make(chan *Message, hubInnerChannelsBufferSize),
		register:   make(chan *socket, hubInnerChannelsBufferSize),
		unregister: make(chan *socket, hubInnerChannelsBufferSize),
		clients:    make(map[*socket]struct{}, hubInnerChannelsBufferSize),
		log:        log,
	}
}

func (h *hub) run(ctx context.Context) {
outer:
	for {
		select {
		case client := <-h.register:
			if len(h.clients) >= clientsCountLimit {
				client.conn.WriteMessage(websocket.CloseMessage, []byte("Max number of clients reached."))
				continue
			}
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			delete(h.clients, client)
		case message := <-h.broadcast:
			raw, err := json.Marshal(&message)
			if err != nil {
				h.log.Error(fmt.Sprintf("hub failed to marshal message: %s", err.Error()))
				continue outer
			}
			for client := range h.clients {
				client.send <- raw
			}
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
			}
			break outer
		}
	}
}

func (c *socket) process(msg *Message) {
	switch msg.Command {
	case CommandEcho:
		c.sendCommand(msg)
	default:
		c.log.Info(fmt.Sprintf("socket received unknown command %s", msg.Command))
		msg.Error = fmt.Sprintf("unknown command %s", msg.Command)
		c.sendCommand(msg)
	}
}

func (c *socket) sendCommand(msg *Message) {
	raw, err := json.Marshal(&msg)
	if err != nil {
		c.log.Error(fmt.Sprintf("socket failed to marshal message: %s", err.Error()))
		return
	}
	c.send <- raw
}
