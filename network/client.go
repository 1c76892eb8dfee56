package network

import (
	"context"
	"sort"
	"sync"

	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/protocol"
)

var ErrNotConnected = eris.New("not connected")

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// EntityUpdate is one replicated entity of a world snapshot with its
// components decoded.
type EntityUpdate struct {
	ID         esync.NetworkId
	Components []any
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	conn      *websocket.Conn

	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins
	closed     chan struct{}
	closeOnce  sync.Once

	log zerolog.Logger
}

func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		snapshotCh: make(chan esync.WorldSnapshot, 1),
		closed:     make(chan struct{}),
		log:        logging.For("client"),
	}
}

// Connect dials the server in a background goroutine and sends the join
// request once the connection is up.
func (c *Client) Connect(address string, join messages.JoinRequest) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("addr", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.SendMessage(join); err != nil {
			c.setError(eris.Wrap(err, "send join request"))
		}
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snapshot
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.log.Info().Err(err).Msg("disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
		c.markClosed()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Warn().Err(err).Msg("router error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(eris.Wrap(err, "connection failed"))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}
	c.markClosed()

	router.ResetRouter()
}

// Closed is closed once the connection is gone for good. The simulation uses
// it to cancel in-flight replays.
func (c *Client) Closed() <-chan struct{} {
	return c.closed
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// LatestSnapshot returns the most recent WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

// LatestUpdates returns the most recent snapshot decoded, or nil if none
// arrived since the last call.
func (c *Client) LatestUpdates() []EntityUpdate {
	snap := c.LatestSnapshot()
	if snap == nil {
		return nil
	}
	return c.Decode(*snap)
}

// Decode turns a snapshot into entity updates. Components that fail to
// deserialize are skipped; components are ordered by sync id.
func (c *Client) Decode(snapshot esync.WorldSnapshot) []EntityUpdate {
	updates := make([]EntityUpdate, 0, len(snapshot))
	for _, ent := range snapshot {
		u := EntityUpdate{ID: ent.Id}
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				c.log.Debug().Err(err).Msg("skip undecodable component")
				continue
			}
			u.Components = append(u.Components, instance)
		}
		sort.Slice(u.Components, func(i, j int) bool {
			return syncID(u.Components[i]) < syncID(u.Components[j])
		})
		updates = append(updates, u)
	}
	return updates
}

func syncID(v any) uint {
	if info, ok := protocol.ForValue(v); ok {
		return info.SyncID
	}
	return ^uint(0)
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return eris.Wrap(err, "serialize")
	}

	if err := conn.Write(context.Background(), websocket.MessageBinary, payload); err != nil {
		return eris.Wrap(err, "write")
	}
	return nil
}

// SendInput sends one input message. Safe to call before the connection is
// up; the message is dropped and the redundancy of later ones covers it.
func (c *Client) SendInput(msg messages.InputMessage) error {
	err := c.SendMessage(msg)
	if eris.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Client) setError(err error) {
	c.log.Error().Err(err).Msg("client error")
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
	c.markClosed()
}

func (c *Client) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}
