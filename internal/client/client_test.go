package client

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomidoro/pomidoro/internal/endpoint"
	"github.com/pomidoro/pomidoro/internal/protocol"
)

func TestSendUnreachable(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "server0.sock"), time.Second)

	_, err := c.Send(protocol.CommandStatus)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindUnreachable, cerr.Kind)
	assert.ErrorIs(t, err, endpoint.ErrUnreachable)
}

func TestSendTimeoutWhenServerSilent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer listener.Close()

	// A server that accepts but never answers: present yet unresponsive.
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-quit
	}()

	c := New(path, 200*time.Millisecond)
	_, err = c.Send(protocol.CommandStatus)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindTimeout, cerr.Kind, "a silent server must report Timeout, not Unreachable")
}

func TestSendDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("garbage\n"))
	}()

	c := New(path, time.Second)
	_, err = c.Send(protocol.CommandStatus)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindDecode, cerr.Kind)
}

func TestErrorKindStrings(t *testing.T) {
	assert.Equal(t, "server unreachable", KindUnreachable.String())
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "decode failure", KindDecode.String())
}
