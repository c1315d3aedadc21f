//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/markkurossi/mpc/p2p"
	"golang.org/x/crypto/chacha20poly1305"
)

// Message is a single framed exchange: the local result id a
// Network operation was declared for, and the payload mirroring one
// of the ResultValue variants (spec.md §6.2).
type Message struct {
	ID      ResultId
	Payload Value
}

// Transport is the wire-transport collaborator that spec.md §6.2
// leaves external to the core: any length-delimited, reliable,
// in-order, private channel between the two parties. Connection
// loss is fatal.
type Transport interface {
	Send(Message) error
	Receive() (Message, error)
	Flush() error
	Close() error
}

// PipeTransport adapts a *p2p.Conn, the framed connection type from
// the MPC preprocessing/OT library, into a Transport. p2p.Conn
// already frames discrete messages (SendData/ReceiveData), so this
// adapter only needs to encode/decode the {id, payload} pair within
// one such frame, following the same send-then-Flush discipline
// crypto/spdz.sendField uses.
type PipeTransport struct {
	conn *p2p.Conn
}

// NewPipeTransport wraps conn as a Transport.
func NewPipeTransport(conn *p2p.Conn) *PipeTransport {
	return &PipeTransport{conn: conn}
}

func (t *PipeTransport) Send(m Message) error {
	payload := m.Payload.Encode()
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(m.ID))
	copy(buf[8:], payload)
	if err := t.conn.SendData(buf); err != nil {
		return &NetworkError{Msg: "send", Err: err}
	}
	return nil
}

func (t *PipeTransport) Receive() (Message, error) {
	buf, err := t.conn.ReceiveData()
	if err != nil {
		return Message{}, &NetworkError{Msg: "receive", Err: err}
	}
	if len(buf) < 8 {
		return Message{}, &NetworkError{Msg: "truncated message"}
	}
	id := ResultId(binary.BigEndian.Uint64(buf[:8]))
	val, err := DecodeValue(buf[8:])
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, Payload: val}, nil
}

func (t *PipeTransport) Flush() error {
	if err := t.conn.Flush(); err != nil {
		return &NetworkError{Msg: "flush", Err: err}
	}
	return nil
}

func (t *PipeTransport) Close() error {
	return nil
}

// SecureTransport is the "authenticated encrypted channel"
// spec.md §6.2 requires: it frames {id, payload} messages over any
// io.ReadWriter (typically a net.Conn) and seals each one with
// ChaCha20-Poly1305, deriving the per-message nonce the same way
// cmd/fs-tool's block cipher loop does — a fixed random base nonce
// XORed with a monotonically increasing sequence counter, with the
// counter also authenticated as associated data.
type SecureTransport struct {
	rw        io.ReadWriter
	aead      cipherAEAD
	baseNonce [chacha20poly1305.NonceSize]byte

	mu      sync.Mutex
	sendSeq uint64
	recvSeq uint64
}

// cipherAEAD is the subset of cipher.AEAD that SecureTransport needs;
// declared locally so tests can substitute a fake.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	Overhead() int
}

// NewSecureTransport wraps rw, sealing every message with key (must
// be chacha20poly1305.KeySize bytes) and the given shared base
// nonce. Both parties must agree on key and baseNonce out of band
// (e.g. via a key exchange outside this package's scope).
func NewSecureTransport(rw io.ReadWriter, key []byte,
	baseNonce [chacha20poly1305.NonceSize]byte) (*SecureTransport, error) {

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &SetupError{Msg: "chacha20poly1305 init", Err: err}
	}
	return &SecureTransport{rw: rw, aead: aead, baseNonce: baseNonce}, nil
}

func (t *SecureTransport) nonce(seq uint64) [chacha20poly1305.NonceSize]byte {
	var n [chacha20poly1305.NonceSize]byte
	copy(n[:], t.baseNonce[:])
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	for i := 0; i < len(seqBytes); i++ {
		n[chacha20poly1305.NonceSize-8+i] ^= seqBytes[i]
	}
	return n
}

func (t *SecureTransport) Send(m Message) error {
	t.mu.Lock()
	seq := t.sendSeq
	t.sendSeq++
	t.mu.Unlock()

	idPayload := make([]byte, 8)
	binary.BigEndian.PutUint64(idPayload, uint64(m.ID))
	plaintext := append(idPayload, m.Payload.Encode()...)

	var aad [8]byte
	binary.BigEndian.PutUint64(aad[:], seq)

	nonce := t.nonce(seq)
	sealed := t.aead.Seal(nil, nonce[:], plaintext, aad[:])

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(sealed)))

	if _, err := t.rw.Write(lenPrefix[:]); err != nil {
		return &NetworkError{Msg: "write length prefix", Err: err}
	}
	if _, err := t.rw.Write(sealed); err != nil {
		return &NetworkError{Msg: "write sealed frame", Err: err}
	}
	return nil
}

func (t *SecureTransport) Receive() (Message, error) {
	t.mu.Lock()
	seq := t.recvSeq
	t.recvSeq++
	t.mu.Unlock()

	var lenPrefix [4]byte
	if _, err := io.ReadFull(t.rw, lenPrefix[:]); err != nil {
		return Message{}, &NetworkError{Msg: "read length prefix", Err: err}
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	sealed := make([]byte, n)
	if _, err := io.ReadFull(t.rw, sealed); err != nil {
		return Message{}, &NetworkError{Msg: "read sealed frame", Err: err}
	}

	var aad [8]byte
	binary.BigEndian.PutUint64(aad[:], seq)

	nonce := t.nonce(seq)
	plaintext, err := t.aead.Open(nil, nonce[:], sealed, aad[:])
	if err != nil {
		return Message{}, &NetworkError{Msg: "authentication failed", Err: err}
	}
	if len(plaintext) < 8 {
		return Message{}, &NetworkError{Msg: "truncated message"}
	}
	id := ResultId(binary.BigEndian.Uint64(plaintext[:8]))
	val, err := DecodeValue(plaintext[8:])
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, Payload: val}, nil
}

func (t *SecureTransport) Flush() error {
	return nil
}

func (t *SecureTransport) Close() error {
	if c, ok := t.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
