package wire

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// WriterState enumerates the CommandWriter/ResponseWriter states (spec
// §4.6): "Ready → WriteHeader → [WritePayload] → [WriteMarker] → Done".
type WriterState int

const (
	WSReady WriterState = iota
	WSWriteHeader
	WSWritePayload
	WSWriteMarker
	WSDone
)

// CommandWriter streams a pre-built command frame out to a Device,
// resumable across short writes (spec §4.6). The descriptor's size
// widths are chosen here from the actual header/payload lengths, then
// the descriptor byte, size fields, command id, password hash, and
// header chunk bytes are assembled once into a single contiguous region
// so WriteHeader can stream them without further field-by-field
// bookkeeping.
type CommandWriter struct {
	state WriterState

	descriptor CommandDescriptor

	headerRegion   []byte
	headerProgress int

	payload         []byte
	payloadProgress int

	markerByte      [1]byte
	markerProgress  int

	// Buffers is the SharedBuffers this writer borrows its header and
	// payload from (spec §4.6: "write FSMs borrow the payload from the
	// record under a reader-pin acquired before Ready").
	Buffers *buffers.SharedBuffers
}

// NewCommandWriter builds a writer for cmd against an already-encoded
// header (the caller has run the chunk.Encoder two-phase protocol and
// written headerChunkLen bytes into buf's header) and whatever payload
// buf currently holds.
func NewCommandWriter(cmd Command, desc CommandDescriptor, passwordHash uint64, buf *buffers.SharedBuffers, headerChunkLen int) *CommandWriter {
	payload := buf.Payload()

	desc.HeaderSizeWidth = WidthFor(uint64(headerChunkLen))
	desc.PayloadSizeWidth = WidthFor(uint64(len(payload)))

	hw := desc.HeaderSizeWidth.Bytes()
	pwBytes := passwordBytes(desc.AuthLevel)
	pzw := desc.PayloadSizeWidth.Bytes()

	region := make([]byte, 1+hw+1+pwBytes+pzw+headerChunkLen)
	off := 0
	region[off] = desc.Encode()
	off++
	if hw > 0 {
		putWidthValue(region[off:off+hw], desc.HeaderSizeWidth, uint64(headerChunkLen))
		off += hw
	}
	region[off] = byte(cmd)
	off++
	if pwBytes > 0 {
		for i := 0; i < pwBytes; i++ {
			region[off+i] = byte(passwordHash >> (8 * uint(i)))
		}
		off += pwBytes
	}
	if pzw > 0 {
		putWidthValue(region[off:off+pzw], desc.PayloadSizeWidth, uint64(len(payload)))
		off += pzw
	}
	copy(region[off:], buf.Header()[:headerChunkLen])

	w := &CommandWriter{state: WSReady, descriptor: desc, headerRegion: region, payload: payload, Buffers: buf}
	if desc.MarkerPresent {
		w.markerByte[0] = IntegrityMarker
	}
	return w
}

func (w *CommandWriter) State() WriterState            { return w.state }
func (w *CommandWriter) Descriptor() CommandDescriptor { return w.descriptor }

// Step advances the FSM as far as dev's current writability allows.
func (w *CommandWriter) Step(dev Device) (WriterState, error) {
	if w.state == WSReady {
		w.state = WSWriteHeader
	}

	if w.state == WSWriteHeader {
		done, err := drainTo(dev, w.headerRegion, &w.headerProgress)
		if !done {
			return w.state, err
		}
		w.state = w.afterHeaderState()
		if w.state == WSDone {
			return w.state, nil
		}
	}

	if w.state == WSWritePayload {
		done, err := drainTo(dev, w.payload, &w.payloadProgress)
		if !done {
			return w.state, err
		}
		if w.descriptor.MarkerPresent {
			w.state = WSWriteMarker
		} else {
			w.state = WSDone
			return w.state, nil
		}
	}

	if w.state == WSWriteMarker {
		done, err := drainTo(dev, w.markerByte[:], &w.markerProgress)
		if !done {
			return w.state, err
		}
		w.state = WSDone
		return w.state, nil
	}

	return w.state, nil
}

func (w *CommandWriter) afterHeaderState() WriterState {
	if len(w.payload) > 0 {
		return WSWritePayload
	}
	if w.descriptor.MarkerPresent {
		return WSWriteMarker
	}
	return WSDone
}

// Rewind returns a Done writer to Ready for reuse against a new
// connection (spec §4.6: "io_rewind(fd, ip) returns a Done writer to
// Ready for reuse ... used by replication fan-out").
func (w *CommandWriter) Rewind() error {
	if w.state != WSDone {
		return ccerr.Wrap(ccerr.KindInternal, "wire.CommandWriter.Rewind", errNotDone)
	}
	w.state = WSReady
	w.headerProgress = 0
	w.payloadProgress = 0
	w.markerProgress = 0
	return nil
}
