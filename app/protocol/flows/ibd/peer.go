// Package ibd implements the Initial Block Download state machine:
// common-chain-segment negotiation, IBD type determination, and the
// headers-proof bootstrap path (pruning proof, trusted pruning-point
// anticone, header and UTXO-set streaming) into a staging consensus.
// Block-body sync is out of scope: this module has no block-body type
// (see DESIGN.md's "Not wired" section). New subsystem, built in the
// header processor's idiom (explicit staging/commit) enriched by
// app/appmessage's opcode set. Flow failures are returned as wrapped
// github.com/pkg/errors values; they are not classified through ruleerrors.
package ibd

import (
	"time"

	"github.com/pkg/errors"

	"github.com/kasparite/node/app/appmessage"
	"github.com/kasparite/node/netadapter"
)

// PeerConn adapts a raw netadapter.Connection to typed, timeout-bounded
// message exchange using app/appmessage's length-delimited codec.
type PeerConn struct {
	conn *netadapter.Connection
}

// NewPeerConn wraps conn for IBD message exchange.
func NewPeerConn(conn *netadapter.Connection) *PeerConn {
	return &PeerConn{conn: conn}
}

// Send writes one message to the peer.
func (p *PeerConn) Send(msg appmessage.Message) error {
	return appmessage.Encode(p.conn.Conn(), msg)
}

// Receive reads one message, returning a wrapped error (not a
// ruleerrors.ProtocolError) if none arrives within timeout or the frame
// cannot be decoded.
func (p *PeerConn) Receive(timeout time.Duration) (appmessage.Message, error) {
	if err := p.conn.Conn().SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(err, "setting read deadline")
	}
	msg, err := appmessage.Decode(p.conn.Conn())
	if err != nil {
		return nil, errors.Wrap(err, "receiving message")
	}
	return msg, nil
}

// Address identifies the peer for logging and drop decisions.
func (p *PeerConn) Address() string {
	return p.conn.Address()
}

// Drop disconnects the peer, used whenever the flow hits a protocol error.
func (p *PeerConn) Drop() error {
	return p.conn.Disconnect()
}
