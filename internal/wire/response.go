package wire

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// ResponseReader is CommandReader's symmetric counterpart (spec §4.6):
// no command id, no password hash, and a zero-header OK response is
// accepted directly after the descriptor — which falls out naturally
// here since a WidthNone header-size field already means a zero-length
// header region.
type ResponseReader struct {
	state ReaderState

	descBuf      [1]byte
	descProgress int
	descriptor   ResponseDescriptor

	prefixBuf      []byte
	prefixProgress int
	payloadSize    uint64

	headerBuf      []byte
	headerProgress int

	payloadBuf      []byte
	payloadProgress int

	markerBuf      [1]byte
	markerProgress int

	Buffers *buffers.SharedBuffers
}

func NewResponseReader() *ResponseReader {
	return &ResponseReader{state: RSCreated, Buffers: buffers.New()}
}

func (r *ResponseReader) State() ReaderState              { return r.state }
func (r *ResponseReader) Descriptor() ResponseDescriptor  { return r.descriptor }
func (r *ResponseReader) HeaderBytes() []byte             { return r.Buffers.Header()[:len(r.headerBuf)] }
func (r *ResponseReader) PayloadBytes() []byte            { return r.Buffers.Payload() }

func (r *ResponseReader) Step(dev Device) (ReaderState, error) {
	if r.state == RSCreated {
		r.state = RSReadDescriptor
	}

	if r.state == RSReadDescriptor {
		done, err := fillFrom(dev, r.descBuf[:], &r.descProgress)
		if !done {
			return r.state, err
		}
		r.descriptor = DecodeResponseDescriptor(r.descBuf[0])
		prefixLen := r.descriptor.HeaderSizeWidth.Bytes() + r.descriptor.PayloadSizeWidth.Bytes()
		r.prefixBuf = make([]byte, prefixLen)
		r.state = RSReadHeaderSizeBytes
	}

	if r.state == RSReadHeaderSizeBytes {
		done, err := fillFrom(dev, r.prefixBuf, &r.prefixProgress)
		if !done {
			return r.state, err
		}
		var headerSize uint64
		off := 0
		if hw := r.descriptor.HeaderSizeWidth.Bytes(); hw > 0 {
			v, _ := readWidthValue(r.prefixBuf[off:off+hw], r.descriptor.HeaderSizeWidth)
			headerSize = v
			off += hw
		}
		if pw := r.descriptor.PayloadSizeWidth.Bytes(); pw > 0 {
			v, _ := readWidthValue(r.prefixBuf[off:off+pw], r.descriptor.PayloadSizeWidth)
			r.payloadSize = v
		}
		r.headerBuf = make([]byte, headerSize)
		r.state = RSReadHeader
	}

	if r.state == RSReadHeader {
		done, err := fillFrom(dev, r.headerBuf, &r.headerProgress)
		if !done {
			return r.state, err
		}
		r.state = r.afterHeaderState()
		if r.state == RSDone {
			r.finish()
			return r.state, nil
		}
	}

	if r.state == RSReadPayload {
		r.payloadBuf = allocOnce(r.payloadBuf, r.payloadSize)
		done, err := fillFrom(dev, r.payloadBuf, &r.payloadProgress)
		if !done {
			return r.state, err
		}
		if r.descriptor.MarkerPresent {
			r.state = RSReadMarker
		} else {
			r.finish()
			return r.state, nil
		}
	}

	if r.state == RSReadMarker {
		done, err := fillFrom(dev, r.markerBuf[:], &r.markerProgress)
		if !done {
			return r.state, err
		}
		if r.markerBuf[0] != IntegrityMarker {
			r.state = RSError
			return r.state, ccerr.Wrap(ccerr.KindProtocol, "wire.ResponseReader.Step", errBadMarker)
		}
		r.finish()
		return r.state, nil
	}

	return r.state, nil
}

func (r *ResponseReader) afterHeaderState() ReaderState {
	if r.payloadSize > 0 {
		return RSReadPayload
	}
	if r.descriptor.MarkerPresent {
		return RSReadMarker
	}
	return RSDone
}

func (r *ResponseReader) finish() {
	hdr := r.Buffers.GrowHeader(len(r.headerBuf))
	copy(hdr, r.headerBuf)
	if r.payloadSize > 0 {
		r.Buffers.SetOwnedPayload(r.payloadBuf)
	}
	r.state = RSDone
}

// ResponseWriter is CommandWriter's symmetric counterpart: no command
// id, no password hash.
type ResponseWriter struct {
	state WriterState

	descriptor ResponseDescriptor

	headerRegion   []byte
	headerProgress int

	payload         []byte
	payloadProgress int

	markerByte     [1]byte
	markerProgress int

	Buffers *buffers.SharedBuffers
}

// NewResponseWriter panics if asked to build a Data/List response with
// neither header chunks nor payload: that combination carries nothing
// to distinguish it from Ok and is always a caller bug, not a
// recoverable runtime condition (spec §9 OQ2).
func NewResponseWriter(desc ResponseDescriptor, buf *buffers.SharedBuffers, headerChunkLen int) *ResponseWriter {
	payload := buf.Payload()

	if (desc.Type == RespData || desc.Type == RespList) && headerChunkLen == 0 && buf.PayloadState() == buffers.PayloadEmpty {
		panic("wire: Data/List response built with no header and no payload")
	}

	desc.HeaderSizeWidth = WidthFor(uint64(headerChunkLen))
	desc.PayloadSizeWidth = WidthFor(uint64(len(payload)))

	hw := desc.HeaderSizeWidth.Bytes()
	pzw := desc.PayloadSizeWidth.Bytes()

	region := make([]byte, 1+hw+pzw+headerChunkLen)
	off := 0
	region[off] = desc.Encode()
	off++
	if hw > 0 {
		putWidthValue(region[off:off+hw], desc.HeaderSizeWidth, uint64(headerChunkLen))
		off += hw
	}
	if pzw > 0 {
		putWidthValue(region[off:off+pzw], desc.PayloadSizeWidth, uint64(len(payload)))
		off += pzw
	}
	copy(region[off:], buf.Header()[:headerChunkLen])

	w := &ResponseWriter{state: WSReady, descriptor: desc, headerRegion: region, payload: payload, Buffers: buf}
	if desc.MarkerPresent {
		w.markerByte[0] = IntegrityMarker
	}
	return w
}

func (w *ResponseWriter) State() WriterState             { return w.state }
func (w *ResponseWriter) Descriptor() ResponseDescriptor { return w.descriptor }

func (w *ResponseWriter) Step(dev Device) (WriterState, error) {
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

func (w *ResponseWriter) afterHeaderState() WriterState {
	if len(w.payload) > 0 {
		return WSWritePayload
	}
	if w.descriptor.MarkerPresent {
		return WSWriteMarker
	}
	return WSDone
}

func (w *ResponseWriter) Rewind() error {
	if w.state != WSDone {
		return ccerr.Wrap(ccerr.KindInternal, "wire.ResponseWriter.Rewind", errNotDone)
	}
	w.state = WSReady
	w.headerProgress = 0
	w.payloadProgress = 0
	w.markerProgress = 0
	return nil
}
