// Package wirenet is the connection/session glue that turns a listening
// socket into dispatched command frames. Session scheduling itself is
// out of scope, but a runnable server still needs an accept loop, so
// this is kept deliberately thin: one getty.Session per client
// connection, framed with internal/wire instead of the teacher's MySQL
// echo codec. Grounded on server/net/mysql_server.go's
// NewTCPServer/RunEventLoop/WithLocalAddress call shape and
// server/net/readwriter.go's Read/Write PkgHandler signature.
package wirenet

import (
	"fmt"

	getty "github.com/AlexStocks/getty/transport"
	log "github.com/AlexStocks/log4go"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/workers"
)

// Dispatcher handles one fully-decoded command frame and produces the
// response frame to send back.
type Dispatcher interface {
	Dispatch(cr *wire.CommandReader) (*wire.ResponseWriter, error)
}

// Handler bridges getty's EventListener/PkgHandler pair to a Dispatcher,
// analogous to the teacher's MySQLMessageHandler but with CyberCache's
// command frames instead of SQL packets.
type Handler struct {
	dispatch Dispatcher
	pool     *workers.Pool
}

func NewHandler(dispatch Dispatcher, pool *workers.Pool) *Handler {
	return &Handler{dispatch: dispatch, pool: pool}
}

// Read implements getty's PkgHandler: it hands the raw bytes getty has
// already buffered to a CommandReader one Step at a time via a
// byteDevice, matching internal/wire's resumable-parse contract.
func (h *Handler) Read(ss getty.Session, data []byte) (interface{}, int, error) {
	cr := wire.NewCommandReader()
	dev := &byteDevice{data: data}
	for {
		state, err := cr.Step(dev)
		if state == wire.RSDone {
			return cr, dev.pos, nil
		}
		if err != nil {
			if ccerr.Has(err, ccerr.KindRetry) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
	}
}

// Write implements getty's PkgHandler: it serializes pkg (a
// *wire.ResponseWriter built by the dispatcher) to bytes.
func (h *Handler) Write(ss getty.Session, pkg interface{}) ([]byte, error) {
	rw, ok := pkg.(*wire.ResponseWriter)
	if !ok {
		return nil, fmt.Errorf("wirenet: Write got %T, want *wire.ResponseWriter", pkg)
	}
	var out []byte
	dev := &sliceAppendDevice{dst: &out}
	for {
		state, err := rw.Step(dev)
		if state == wire.WSDone {
			return out, nil
		}
		if err != nil && !ccerr.Has(err, ccerr.KindRetry) {
			return nil, err
		}
	}
}

// OnOpen logs a new session, mirroring handler.go's OnOpen.
func (h *Handler) OnOpen(session getty.Session) error {
	log.Info("wirenet: session opened %s", session.Stat())
	return nil
}

// OnClose logs session teardown.
func (h *Handler) OnClose(session getty.Session) {
	log.Info("wirenet: session closed %s", session.Stat())
}

// OnError logs transport errors.
func (h *Handler) OnError(session getty.Session, err error) {
	log.Error("wirenet: session error %s: %v", session.Stat(), err)
}

// OnCron is a no-op hook kept for symmetry with getty's EventListener.
func (h *Handler) OnCron(session getty.Session) {}

// OnMessage dispatches one decoded command frame on the worker pool and
// writes the response back onto the session.
func (h *Handler) OnMessage(session getty.Session, pkg interface{}) {
	cr, ok := pkg.(*wire.CommandReader)
	if !ok {
		log.Error("wirenet: OnMessage got %T, want *wire.CommandReader", pkg)
		return
	}
	submit := func() {
		resp, err := h.dispatch.Dispatch(cr)
		if err != nil {
			log.Error("wirenet: dispatch error: %v", err)
			return
		}
		if writeErr := session.WritePkg(resp, 0); writeErr != nil {
			log.Error("wirenet: write response error: %v", writeErr)
		}
	}
	if h.pool != nil {
		if err := h.pool.Submit(submit); err != nil {
			submit()
		}
		return
	}
	submit()
}

// byteDevice adapts an already-fully-buffered byte slice (getty hands
// Read the whole buffer it currently has) to internal/wire.Device.
type byteDevice struct {
	data []byte
	pos  int
}

func (d *byteDevice) ReadSome(buf []byte) (int, wire.IOResult, error) {
	if d.pos >= len(d.data) {
		return 0, wire.IORetry, nil
	}
	n := copy(buf, d.data[d.pos:])
	d.pos += n
	return n, wire.IOOk, nil
}

func (d *byteDevice) WriteSome([]byte) (int, wire.IOResult, error) {
	panic("wirenet: byteDevice is read-only")
}

// sliceAppendDevice adapts a growable []byte to internal/wire.Device for
// the Write side, where the whole response must be returned as one
// buffer for getty to send.
type sliceAppendDevice struct {
	dst *[]byte
}

func (d *sliceAppendDevice) ReadSome([]byte) (int, wire.IOResult, error) {
	panic("wirenet: sliceAppendDevice is write-only")
}

func (d *sliceAppendDevice) WriteSome(buf []byte) (int, wire.IOResult, error) {
	*d.dst = append(*d.dst, buf...)
	return len(buf), wire.IOOk, nil
}

// Server listens on addr and runs newSession for every accepted
// connection, mirroring server/net/mysql_server.go's initServer shape.
type Server struct {
	inner getty.Server
	pool  *workers.Pool
}

// Listen starts a TCP server bound to addr, wiring handler as both the
// PkgHandler and EventListener for every accepted session.
func Listen(addr string, handler *Handler) *Server {
	srv := getty.NewTCPServer(getty.WithLocalAddress(addr))
	srv.RunEventLoop(func(session getty.Session) error {
		session.SetPkgHandler(handler)
		session.SetEventListener(handler)
		return nil
	})
	return &Server{inner: srv, pool: handler.pool}
}

// Close stops accepting connections and drains the worker pool.
func (s *Server) Close() {
	if s.inner != nil {
		s.inner.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
