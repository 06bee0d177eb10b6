package appmessage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// maxPayloadSize bounds a single frame, guarding against a malformed
// length prefix requesting an unbounded allocation.
const maxPayloadSize = 32 * 1024 * 1024

// factories maps each opcode to a zero-value constructor so Decode can
// produce the right concrete type before gob-decoding into it.
var factories = map[MessageCommand]func() Message{
	CmdVersion: func() Message { return &VersionMessage{} },
	CmdVerack:  func() Message { return &VerackMessage{} },
	CmdReady:   func() Message { return &ReadyMessage{} },
	CmdPing:    func() Message { return &PingMessage{} },
	CmdPong:    func() Message { return &PongMessage{} },

	CmdAddresses:        func() Message { return &AddressesMessage{} },
	CmdRequestAddresses: func() Message { return &RequestAddressesMessage{} },

	CmdInvRelayBlock:      func() Message { return &InvRelayBlockMessage{} },
	CmdRequestRelayBlocks: func() Message { return &RequestRelayBlocksMessage{} },
	CmdRequestIBDBlocks:   func() Message { return &RequestIBDBlocksMessage{} },

	CmdBlockHeaders:      func() Message { return &BlockHeadersMessage{} },
	CmdRequestHeaders:    func() Message { return &RequestHeadersMessage{} },
	CmdRequestNextHeaders: func() Message { return &RequestNextHeadersMessage{} },
	CmdDoneHeaders:       func() Message { return &DoneHeadersMessage{} },

	CmdBlockLocator:                       func() Message { return &BlockLocatorMessage{} },
	CmdRequestBlockLocator:                func() Message { return &RequestBlockLocatorMessage{} },
	CmdIBDBlockLocatorHighestHash:         func() Message { return &IBDBlockLocatorHighestHashMessage{} },
	CmdIBDBlockLocatorHighestHashNotFound: func() Message { return &IBDBlockLocatorHighestHashNotFoundMessage{} },

	CmdPruningPoints:            func() Message { return &PruningPointsMessage{} },
	CmdRequestPruningPointProof: func() Message { return &RequestPruningPointProofMessage{} },
	CmdPruningPointProof:        func() Message { return &PruningPointProofMessage{} },

	CmdRequestPruningPointAndItsAnticone:           func() Message { return &RequestPruningPointAndItsAnticoneMessage{} },
	CmdRequestAnticone:                             func() Message { return &RequestAnticoneMessage{} },
	CmdTrustedData:                                 func() Message { return &TrustedDataMessage{} },
	CmdBlockWithTrustedData:                        func() Message { return &BlockWithTrustedDataMessage{} },
	CmdBlockWithTrustedDataV4:                      func() Message { return &BlockWithTrustedDataV4Message{} },
	CmdDoneBlocksWithTrustedData:                   func() Message { return &DoneBlocksWithTrustedDataMessage{} },
	CmdRequestNextPruningPointAndItsAnticoneBlocks: func() Message { return &RequestNextPruningPointAndItsAnticoneBlocksMessage{} },

	CmdPruningPointUTXOSetChunk:             func() Message { return &PruningPointUTXOSetChunkMessage{} },
	CmdRequestPruningPointUTXOSet:           func() Message { return &RequestPruningPointUTXOSetMessage{} },
	CmdRequestNextPruningPointUTXOSetChunk:  func() Message { return &RequestNextPruningPointUTXOSetChunkMessage{} },
	CmdDonePruningPointUTXOSetChunks:        func() Message { return &DonePruningPointUTXOSetChunksMessage{} },

	CmdUnexpectedPruningPoint: func() Message { return &UnexpectedPruningPointMessage{} },
	CmdReject:                 func() Message { return &RejectMessage{} },
}

// Encode writes msg to w as a length-delimited frame: a 4-byte opcode, a
// 4-byte big-endian payload length, then the gob-encoded payload. The
// wire format here is this module's own framing rather than the upstream
// protobuf-style schema references - see DESIGN.md for why a
// from-scratch reimplementation of that schema was not attempted.
func Encode(w io.Writer, msg Message) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(msg); err != nil {
		return errors.Wrapf(err, "encoding %s payload", msg.Command())
	}
	if payload.Len() > maxPayloadSize {
		return errors.Errorf("%s payload too large: %d bytes", msg.Command(), payload.Len())
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(msg.Command()))
	binary.BigEndian.PutUint32(header[4:8], uint32(payload.Len()))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "writing frame header")
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return errors.Wrap(err, "writing frame payload")
	}
	return nil
}

// Decode reads one frame from r and returns the decoded Message.
func Decode(r io.Reader) (Message, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "reading frame header")
	}
	command := MessageCommand(binary.BigEndian.Uint32(header[0:4]))
	length := binary.BigEndian.Uint32(header[4:8])
	if length > maxPayloadSize {
		return nil, errors.Errorf("frame payload too large: %d bytes", length)
	}

	factory, ok := factories[command]
	if !ok {
		return nil, errors.Errorf("unknown opcode %d", command)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "reading frame payload")
	}

	msg := factory()
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(msg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s payload", command)
	}
	return msg, nil
}
