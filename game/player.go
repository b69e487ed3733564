package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	sendBufferSize = 256
	pingPeriod     = 50 * time.Second
)

// Client is one websocket connection. The hotel only ever calls Send; the
// socket is read by ReadPump and written by WritePump.
type Client struct {
	id     string
	addr   string
	socket WebsocketConnection
	inbox  chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewClient(id, addr string, socket WebsocketConnection) *Client {
	return &Client{
		id:     id,
		addr:   addr,
		socket: socket,
		inbox:  make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) RemoteAddr() string {
	return c.addr
}

// Send queues data for the writer. A client that cannot keep up loses the
// frame instead of stalling the hotel.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrSendBufferFull
	default:
	}
	select {
	case c.inbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Serve registers the client with the hotel and pumps until the socket
// goes away. It returns after the hotel has been told about the disconnect.
func (c *Client) Serve(ctx context.Context, hotel *Hotel) {
	if err := hotel.Connect(ctx, c); err != nil {
		c.socket.Close("server-shutting-down")
		return
	}
	go c.WritePump(pingPeriod)
	c.ReadPump(ctx, hotel)
	hotel.Disconnect(c)
}

func (c *Client) ReadPump(ctx context.Context, hotel *Hotel) {
	defer c.close()
	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		ev, err := DecodeClientEvent(data)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("ignoring frame")
			continue
		}
		if err := hotel.Receive(ctx, c, ev); err != nil {
			if !errors.Is(err, ErrHotelStopped) {
				log.Warn().Err(err).Str("conn", c.id).Msg("hotel did not take event")
			}
			return
		}
	}
}

func (c *Client) WritePump(every time.Duration) {
	ping := time.NewTicker(every)
	defer ping.Stop()
	defer c.socket.Close("bye")

	for {
		select {
		case data := <-c.inbox:
			if err := c.socket.Write(data); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			if err := c.socket.Ping(); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.closed) })
}
