package network

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"
)

// cipherSuite is the DH25519/ChaChaPoly/SHA256 suite named by
// HandshakePattern.
var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// transportState holds both directional cipher states behind one mutex,
// mirroring the shared, lock-guarded transport state that ConnReader and
// ConnWriter each hold a handle to.
type transportState struct {
	mu   sync.Mutex
	send *noise.CipherState
	recv *noise.CipherState
}

func (t *transportState) encrypt(plaintext []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.send.Encrypt(nil, nil, plaintext)
}

func (t *transportState) decrypt(ciphertext []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recv.Decrypt(nil, nil, ciphertext)
}

// writeHandshakeSegment writes buf prefixed with a one-byte length, the
// framing used only during the handshake itself.
func writeHandshakeSegment(conn net.Conn, buf []byte) error {
	if len(buf) > 0xff {
		return fmt.Errorf("%w: handshake segment too large", ErrInvalidHandshake)
	}
	if _, err := conn.Write([]byte{byte(len(buf))}); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	_, err := conn.Write(buf)
	return err
}

// readHandshakeSegment reads a one-byte-length-prefixed handshake segment.
// A zero-length segment is rejected.
func readHandshakeSegment(conn net.Conn) ([]byte, error) {
	var lenBuf [1]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	if lenBuf[0] == 0 {
		return nil, fmt.Errorf("%w: zero-length handshake segment", ErrInvalidHandshake)
	}
	buf := make([]byte, lenBuf[0])
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func newHandshakeState(initiator bool) (*noise.HandshakeState, error) {
	keypair, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, err
	}
	return noise.NewHandshakeState(noise.Config{
		CipherSuite:           cipherSuite,
		Pattern:               noise.HandshakeXX,
		Initiator:             initiator,
		StaticKeypair:         keypair,
		PresharedKey:          HandshakePSK[:],
		PresharedKeyPlacement: 3,
	})
}

// DialHandshake performs the initiator side of the three-message XXpsk3
// exchange over conn and returns the peer's Version plus a ready-to-use
// encrypted connection.
func DialHandshake(conn net.Conn, own Version) (Version, *ConnReader, *ConnWriter, error) {
	hs, err := newHandshakeState(true)
	if err != nil {
		return Version{}, nil, nil, err
	}

	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	if err := writeHandshakeSegment(conn, msg1); err != nil {
		return Version{}, nil, nil, err
	}

	seg2, err := readHandshakeSegment(conn)
	if err != nil {
		return Version{}, nil, nil, err
	}
	payload2, _, _, err := hs.ReadMessage(nil, seg2)
	if err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	peerVersion, err := DecodeVersion(payload2)
	if err != nil {
		return Version{}, nil, nil, err
	}
	if err := validatePeerVersion(peerVersion, own); err != nil {
		return Version{}, nil, nil, err
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, own.Bytes())
	if err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	if err := writeHandshakeSegment(conn, msg3); err != nil {
		return Version{}, nil, nil, err
	}

	state := &transportState{send: cs1, recv: cs2}
	return peerVersion, newConnReader(conn, state), newConnWriter(conn, state), nil
}

// AcceptHandshake performs the responder side of the handshake.
func AcceptHandshake(conn net.Conn, own Version) (Version, *ConnReader, *ConnWriter, error) {
	hs, err := newHandshakeState(false)
	if err != nil {
		return Version{}, nil, nil, err
	}

	seg1, err := readHandshakeSegment(conn)
	if err != nil {
		return Version{}, nil, nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, seg1); err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	msg2, _, _, err := hs.WriteMessage(nil, own.Bytes())
	if err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	if err := writeHandshakeSegment(conn, msg2); err != nil {
		return Version{}, nil, nil, err
	}

	seg3, err := readHandshakeSegment(conn)
	if err != nil {
		return Version{}, nil, nil, err
	}
	payload3, cs1, cs2, err := hs.ReadMessage(nil, seg3)
	if err != nil {
		return Version{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	peerVersion, err := DecodeVersion(payload3)
	if err != nil {
		return Version{}, nil, nil, err
	}
	if err := validatePeerVersion(peerVersion, own); err != nil {
		return Version{}, nil, nil, err
	}

	state := &transportState{send: cs2, recv: cs1}
	return peerVersion, newConnReader(conn, state), newConnWriter(conn, state), nil
}

func validatePeerVersion(peer, own Version) error {
	if peer.NodeID == own.NodeID {
		return ErrSelfConnectAttempt
	}
	if peer.ProtocolVersion != own.ProtocolVersion {
		return ErrInvalidHandshake
	}
	return nil
}

// ConnReader is the reader half of an encrypted connection: it owns the
// socket's read side and decrypts whole frames into Payloads.
type ConnReader struct {
	conn  net.Conn
	state *transportState
}

func newConnReader(conn net.Conn, state *transportState) *ConnReader {
	return &ConnReader{conn: conn, state: state}
}

// ReadPayload blocks for the next frame, decrypts it and decodes its
// payload.
func (r *ConnReader) ReadPayload() (Payload, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxMessageSize+NoiseTagLen {
		return nil, ErrMessageTooLarge
	}
	ciphertext := make([]byte, n)
	if _, err := io.ReadFull(r.conn, ciphertext); err != nil {
		return nil, err
	}
	plaintext, err := r.state.decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiverFailedToParse, err)
	}
	payload, err := decodePayload(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiverFailedToParse, err)
	}
	return payload, nil
}

// Close closes the underlying connection.
func (r *ConnReader) Close() error { return r.conn.Close() }

// ConnWriter is the writer half of an encrypted connection.
type ConnWriter struct {
	conn  net.Conn
	state *transportState
}

func newConnWriter(conn net.Conn, state *transportState) *ConnWriter {
	return &ConnWriter{conn: conn, state: state}
}

// WritePayload encrypts and writes a single frame.
func (w *ConnWriter) WritePayload(p Payload) error {
	body, err := encodePayload(p)
	if err != nil {
		return err
	}
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	ciphertext, err := w.state.encrypt(body)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := w.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.conn.Write(ciphertext)
	return err
}

// Close closes the underlying connection.
func (w *ConnWriter) Close() error { return w.conn.Close() }
