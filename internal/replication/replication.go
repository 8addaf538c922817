// Package replication fans a single command frame out to a set of
// replica connections, reusing the same CommandWriter for every target
// via Rewind (spec §4.6: "io_rewind ... used by replication fan-out").
// Grounded on the teacher's session map shape (server/net/handler.go's
// sessionMap, server/net/decoupled_handler.go's sessionMap) adapted from
// "one session per client" to "one net.Conn per replica peer".
package replication

import (
	"net"
	"sync"
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/config"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

// connDevice adapts a net.Conn to wire.Device, applying a fixed
// deadline per Step the way the teacher's session.go bounds its own
// socket I/O via netIOTimeout.
type connDevice struct {
	conn    net.Conn
	timeout time.Duration
}

func (d connDevice) ReadSome(buf []byte) (int, wire.IOResult, error) {
	d.conn.SetReadDeadline(time.Now().Add(d.timeout))
	n, err := d.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, wire.IORetry, nil
		}
		return n, wire.IOError, err
	}
	if n == 0 {
		return 0, wire.IORetry, nil
	}
	return n, wire.IOOk, nil
}

func (d connDevice) WriteSome(buf []byte) (int, wire.IOResult, error) {
	d.conn.SetWriteDeadline(time.Now().Add(d.timeout))
	n, err := d.conn.Write(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, wire.IORetry, nil
		}
		return n, wire.IOError, err
	}
	return n, wire.IOOk, nil
}

// Peer is one connected replication target.
type Peer struct {
	Address string
	conn    net.Conn
}

// Fanout holds live connections to every replica/binlog-shipping peer
// named in a config.Topology.
type Fanout struct {
	mu      sync.RWMutex
	peers   map[string]*Peer
	dialer  net.Dialer
	timeout time.Duration
}

func NewFanout(timeout time.Duration) *Fanout {
	return &Fanout{peers: make(map[string]*Peer), timeout: timeout}
}

// Connect dials every replica peer in top, replacing any prior
// connection to the same address.
func (f *Fanout) Connect(top *config.Topology) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range top.Replicas() {
		conn, err := f.dialer.Dial("tcp", p.Address)
		if err != nil {
			return ccerr.Wrap(ccerr.KindIO, "replication.Fanout.Connect", err)
		}
		if old, ok := f.peers[p.Address]; ok {
			old.conn.Close()
		}
		f.peers[p.Address] = &Peer{Address: p.Address, conn: conn}
	}
	return nil
}

// Addresses returns the currently connected peer addresses.
func (f *Fanout) Addresses() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.peers))
	for addr := range f.peers {
		out = append(out, addr)
	}
	return out
}

// Broadcast streams cw to every connected peer, rewinding it between
// sends so a single already-built frame serves the whole fan-out (spec
// §4.6's rationale for Rewind existing at all). A peer that errors is
// dropped from the map and its failure is recorded by address; the
// others are still attempted.
func (f *Fanout) Broadcast(cw *wire.CommandWriter) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()

	failures := make(map[string]error)
	for addr, peer := range f.peers {
		dev := connDevice{conn: peer.conn, timeout: f.timeout}
		if err := stepWriterToDone(cw, dev); err != nil {
			failures[addr] = err
			peer.conn.Close()
			delete(f.peers, addr)
			continue
		}
		if err := cw.Rewind(); err != nil {
			failures[addr] = err
		}
	}
	return failures
}

func stepWriterToDone(cw *wire.CommandWriter, dev wire.Device) error {
	for {
		state, err := cw.Step(dev)
		if state == wire.WSDone {
			return nil
		}
		if err != nil && !ccerr.Has(err, ccerr.KindRetry) {
			return err
		}
	}
}

// Close tears down every peer connection.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for addr, peer := range f.peers {
		peer.conn.Close()
		delete(f.peers, addr)
	}
}
