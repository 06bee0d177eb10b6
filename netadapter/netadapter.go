// Package netadapter is the narrow external P2P transport collaborator:
// it dials and accepts raw connections and hands the connection manager
// a uniform Connection handle, leaving wire framing to app/appmessage and
// routing policy to connmanager. Grounded on the netadapter usage pattern
// in connmanager/connmanager.go (Connect, Connections, Connection.Disconnect)
// and rebuilt from scratch since no concrete router implementation was
// available as a reference.
package netadapter

import (
	"net"
	"sync"

	"github.com/pkg/errors"
)

// Connection is one live peer socket.
type Connection struct {
	conn       net.Conn
	isOutbound bool

	mu         sync.Mutex
	disconnect chan struct{}
	closed     bool
}

// Address returns the remote endpoint in host:port form.
func (c *Connection) Address() string {
	return c.conn.RemoteAddr().String()
}

// IsOutbound reports whether this node initiated the connection.
func (c *Connection) IsOutbound() bool {
	return c.isOutbound
}

// Disconnect closes the underlying socket, idempotently.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.disconnect)
	return c.conn.Close()
}

// Done returns a channel closed once Disconnect has run.
func (c *Connection) Done() <-chan struct{} {
	return c.disconnect
}

// Conn exposes the underlying net.Conn for app/appmessage's framed codec.
func (c *Connection) Conn() net.Conn {
	return c.conn
}

// NetAdapter owns the listener and the set of live connections.
type NetAdapter struct {
	listener net.Listener

	mu          sync.RWMutex
	connections map[string]*Connection

	onConnected func(*Connection)
}

// New creates a NetAdapter listening on listenAddr. An empty listenAddr
// disables inbound connections (useful for outbound-only test harnesses).
func New(listenAddr string) (*NetAdapter, error) {
	a := &NetAdapter{connections: make(map[string]*Connection)}
	if listenAddr == "" {
		return a, nil
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", listenAddr)
	}
	a.listener = listener
	return a, nil
}

// SetOnConnectedHandler registers the callback invoked for every new
// connection, inbound or outbound.
func (a *NetAdapter) SetOnConnectedHandler(handler func(*Connection)) {
	a.onConnected = handler
}

// Start begins accepting inbound connections. A no-op if New was called
// with an empty listenAddr.
func (a *NetAdapter) Start() {
	if a.listener == nil {
		return
	}
	go a.acceptLoop()
}

func (a *NetAdapter) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}
		a.register(&Connection{conn: conn, isOutbound: false, disconnect: make(chan struct{})})
	}
}

// Connect dials address and registers the resulting outbound connection.
func (a *NetAdapter) Connect(address string) (*Connection, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", address)
	}
	c := &Connection{conn: conn, isOutbound: true, disconnect: make(chan struct{})}
	a.register(c)
	return c, nil
}

func (a *NetAdapter) register(c *Connection) {
	a.mu.Lock()
	a.connections[c.Address()] = c
	a.mu.Unlock()
	if a.onConnected != nil {
		a.onConnected(c)
	}
}

// Connections returns a snapshot of the currently live connections.
func (a *NetAdapter) Connections() []*Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Connection, 0, len(a.connections))
	for _, c := range a.connections {
		out = append(out, c)
	}
	return out
}

// Forget removes a connection from the live set, called once its
// Disconnect has completed.
func (a *NetAdapter) Forget(c *Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.connections[c.Address()]; ok && existing == c {
		delete(a.connections, c.Address())
	}
}

// Stop closes the listener and disconnects every live connection.
func (a *NetAdapter) Stop() error {
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for _, c := range a.Connections() {
		_ = c.Disconnect()
	}
	return nil
}

// LocalAddr is a convenience accessor used in log lines.
func (a *NetAdapter) LocalAddr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}
