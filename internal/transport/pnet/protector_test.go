package pnet

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtectRoundTrip(t *testing.T) {
	psk := NewPSK([]byte("shared secret known to both peers"))

	rawClient, rawServer := net.Pipe()
	defer rawClient.Close()
	defer rawServer.Close()

	client, err := New(psk).Protect(rawClient)
	require.NoError(t, err)
	server, err := New(psk).Protect(rawServer)
	require.NoError(t, err)

	msg := []byte("plaintext that must survive the tunnel intact")
	go func() {
		_, _ = client.Write(msg)
	}()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
}

func TestMismatchedKeysProduceGarbage(t *testing.T) {
	rawClient, rawServer := net.Pipe()
	defer rawClient.Close()
	defer rawServer.Close()

	client, err := New(NewPSK([]byte("key-a"))).Protect(rawClient)
	require.NoError(t, err)
	server, err := New(NewPSK([]byte("key-b"))).Protect(rawServer)
	require.NoError(t, err)

	msg := []byte("this will not decrypt to the same bytes")
	go func() {
		_, _ = client.Write(msg)
	}()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.NotEqual(t, msg, buf)
}

func TestEachWriteUsesAFreshNonce(t *testing.T) {
	psk := NewPSK([]byte("nonce reuse would break XSalsa20's security"))

	rawClient, rawServer := net.Pipe()
	defer rawClient.Close()
	defer rawServer.Close()

	client, err := New(psk).Protect(rawClient)
	require.NoError(t, err)

	// Capture the two raw frames sent for two identical plaintext writes;
	// if they shared a nonce, the ciphertexts would be identical too.
	frames := make(chan []byte, 2)
	go func() {
		for i := 0; i < 2; i++ {
			buf := make([]byte, 4)
			_, _ = io.ReadFull(rawServer, buf)
			n := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
			body := make([]byte, n)
			_, _ = io.ReadFull(rawServer, body)
			frames <- body
		}
	}()

	msg := []byte("identical plaintext sent twice")
	_, err = client.Write(msg)
	require.NoError(t, err)
	_, err = client.Write(msg)
	require.NoError(t, err)

	first := <-frames
	second := <-frames
	require.NotEqual(t, first, second, "identical plaintext must not produce identical frames across writes")
}
