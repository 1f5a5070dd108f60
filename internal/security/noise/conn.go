package noise

import (
	"fmt"
	"net"
	"sync"

	"github.com/flynn/noise"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// maxFrameSize bounds the plaintext per Noise transport message. The
// ciphertext (plaintext plus a 16-byte ChaChaPoly tag) must still fit the
// wire frame's 16-bit length prefix, so this stays comfortably under 1<<16.
const maxFrameSize = 1<<16 - 256

// secureConn is the encrypted byte stream produced by a completed handshake.
// Each Write is sealed as one length-prefixed Noise transport message; each
// Read may need several underlying reads to assemble one frame and buffers
// any leftover plaintext for the next Read call.
type secureConn struct {
	net.Conn

	send *noise.CipherState
	recv *noise.CipherState

	localPeer  types.PeerID
	remotePeer types.PeerID

	mu     sync.Mutex
	buf    []byte
	readMu sync.Mutex
}

var _ interfaces.SecureConn = (*secureConn)(nil)

func (c *secureConn) LocalPeer() types.PeerID  { return c.localPeer }
func (c *secureConn) RemotePeer() types.PeerID { return c.remotePeer }

func (c *secureConn) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > maxFrameSize {
			chunk = chunk[:maxFrameSize]
		}
		c.mu.Lock()
		ciphertext, err := c.send.Encrypt(nil, nil, chunk)
		c.mu.Unlock()
		if err != nil {
			return total, fmt.Errorf("noise: encrypt: %w", err)
		}
		if err := writeFrame(c.Conn, ciphertext); err != nil {
			return total, err
		}
		total += len(chunk)
		p = p[len(chunk):]
	}
	return total, nil
}

func (c *secureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.buf) == 0 {
		ciphertext, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		c.mu.Lock()
		plaintext, err := c.recv.Decrypt(nil, nil, ciphertext)
		c.mu.Unlock()
		if err != nil {
			return 0, fmt.Errorf("noise: decrypt: %w", err)
		}
		c.buf = plaintext
	}

	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}
