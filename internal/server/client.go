package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/as00paf/kpoker/internal/models"
	"github.com/as00paf/kpoker/internal/room"
)

var (
	errSendBufferFull = errors.New("client send buffer full")
	errClientClosed   = errors.New("client connection closed")
)

// Client is one websocket connection. PlayerID is a fresh uuid for anonymous
// connections and the account id once the session authenticates.
type Client struct {
	server *Server
	conn   *websocket.Conn
	send   chan models.GameMessage

	closed    chan struct{}
	closeOnce sync.Once

	PlayerID   string
	PlayerName string
	authed     bool

	room *room.Room
	log  *logrus.Entry
}

func newClient(s *Server, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	return &Client{
		server:   s,
		conn:     conn,
		send:     make(chan models.GameMessage, 64),
		closed:   make(chan struct{}),
		PlayerID: id,
		log:      logrus.WithField("client", id),
	}
}

// Send queues a message for the write pump. It never blocks; a full buffer
// or a closed connection drops the message with an error so broadcasts stay
// best-effort. Safe to call from any goroutine, including after teardown.
func (c *Client) Send(msg models.GameMessage) error {
	select {
	case <-c.closed:
		return errClientClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// readPump decodes inbound envelopes until the connection drops, then cleans
// up room membership.
func (c *Client) readPump() {
	defer func() {
		c.server.detach(c)
		if c.room != nil {
			c.room.Leave(c.PlayerID)
			c.room = nil
		}
		c.conn.Close()
	}()

	for {
		var msg models.GameMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.server.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.closed:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) sendError(text string) {
	if err := c.Send(models.ErrorMessage(text)); err != nil {
		c.log.WithError(err).Debug("dropping error message")
	}
}
