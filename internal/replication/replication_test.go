package replication

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

func listenOne(t *testing.T) (addr string, accepted chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	accepted = make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), accepted
}

func newFrameWriter(payload []byte) *wire.CommandWriter {
	buf := buffers.New()
	if len(payload) > 0 {
		buf.SetOwnedPayload(payload)
	}
	desc := wire.CommandDescriptor{MarkerPresent: true}
	return wire.NewCommandWriter(wire.CmdStore, desc, auth.InvalidHash, buf, 0)
}

func readFrame(t *testing.T, conn net.Conn) *wire.CommandReader {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	cr := wire.NewCommandReader()
	for {
		state, err := cr.Step(connDevice{conn: conn, timeout: 2 * time.Second})
		if state == wire.RSDone {
			return cr
		}
		require.NoError(t, err)
	}
}

func TestBroadcastDeliversFrameToAllPeers(t *testing.T) {
	addr1, accepted1 := listenOne(t)
	addr2, accepted2 := listenOne(t)

	f := NewFanout(2 * time.Second)
	f.dialer = net.Dialer{}

	conn1, err := net.Dial("tcp", addr1)
	require.NoError(t, err)
	conn2, err := net.Dial("tcp", addr2)
	require.NoError(t, err)
	f.peers = map[string]*Peer{
		addr1: {Address: addr1, conn: conn1},
		addr2: {Address: addr2, conn: conn2},
	}

	server1 := <-accepted1
	server2 := <-accepted2
	defer server1.Close()
	defer server2.Close()

	cw := newFrameWriter([]byte("replicated-payload"))
	failures := f.Broadcast(cw)
	assert.Empty(t, failures)

	cr1 := readFrame(t, server1)
	cr2 := readFrame(t, server2)
	assert.Equal(t, []byte("replicated-payload"), cr1.PayloadBytes())
	assert.Equal(t, []byte("replicated-payload"), cr2.PayloadBytes())
}

func TestBroadcastRecordsFailureForClosedPeer(t *testing.T) {
	addr, accepted := listenOne(t)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	server := <-accepted
	server.Close()
	conn.Close()

	f := NewFanout(200 * time.Millisecond)
	f.peers = map[string]*Peer{addr: {Address: addr, conn: conn}}

	cw := newFrameWriter(nil)
	failures := f.Broadcast(cw)
	assert.NotEmpty(t, failures)
	assert.Empty(t, f.Addresses())
}

func TestAddressesReflectsConnectedPeers(t *testing.T) {
	f := NewFanout(time.Second)
	f.peers = map[string]*Peer{"a:1": {Address: "a:1"}, "b:2": {Address: "b:2"}}
	assert.ElementsMatch(t, []string{"a:1", "b:2"}, f.Addresses())
}
