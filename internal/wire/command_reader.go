package wire

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// ReaderState enumerates the CommandReader/ResponseReader states (spec
// §4.6): "Created → ReadDescriptor → [ReadHeaderSizeBytes] → ReadHeader
// → [ReadPayload] → [ReadMarker] → Done". The size-field, command-id and
// password-hash bytes that precede the header chunks are read together
// as the ReadHeaderSizeBytes stage, since none of them individually gate
// a further parsing decision the way the header-chunk region does.
type ReaderState int

const (
	RSCreated ReaderState = iota
	RSReadDescriptor
	RSReadHeaderSizeBytes
	RSReadHeader
	RSReadPayload
	RSReadMarker
	RSDone
	RSError
)

// CommandReader is the resumable, non-blocking parser for one command
// frame (spec §4.6), grounded on the teacher's MySQLPackage.Unmarshal
// (server/protocol/parser.go) but restructured so state survives across
// calls instead of re-parsing a fresh buffer each time.
type CommandReader struct {
	state ReaderState

	descBuf      [1]byte
	descProgress int
	descriptor   CommandDescriptor

	prefixBuf      []byte
	prefixProgress int

	command      Command
	passwordHash uint64
	headerSize   uint64
	payloadSize  uint64

	headerBuf      []byte
	headerProgress int

	payloadBuf      []byte
	payloadProgress int

	markerBuf      [1]byte
	markerProgress int

	// Buffers is this reader's SharedBuffers reference (spec §4.6: "each
	// FSM owns its SharedBuffers reference").
	Buffers *buffers.SharedBuffers
}

// NewCommandReader creates a reader in the Created state, owning a fresh
// SharedBuffers.
func NewCommandReader() *CommandReader {
	return &CommandReader{state: RSCreated, Buffers: buffers.New()}
}

func (r *CommandReader) State() ReaderState          { return r.state }
func (r *CommandReader) Command() Command            { return r.command }
func (r *CommandReader) Descriptor() CommandDescriptor { return r.descriptor }
func (r *CommandReader) PasswordHash() uint64         { return r.passwordHash }
func (r *CommandReader) HeaderBytes() []byte          { return r.Buffers.Header()[:len(r.headerBuf)] }
func (r *CommandReader) PayloadBytes() []byte         { return r.Buffers.Payload() }

// Step advances the FSM as far as currently-available bytes from dev
// allow, returning the resulting state. A non-nil error of KindRetry
// means dev had no more bytes right now; Step keeps all progress and
// resuming it later continues from exactly where it left off (spec
// §4.6: "On short read the FSM returns Retry and keeps pos/remains").
func (r *CommandReader) Step(dev Device) (ReaderState, error) {
	if r.state == RSCreated {
		r.state = RSReadDescriptor
	}

	if r.state == RSReadDescriptor {
		done, err := fillFrom(dev, r.descBuf[:], &r.descProgress)
		if !done {
			return r.state, err
		}
		r.descriptor = DecodeCommandDescriptor(r.descBuf[0])
		prefixLen := r.descriptor.HeaderSizeWidth.Bytes() + 1 +
			passwordBytes(r.descriptor.AuthLevel) + r.descriptor.PayloadSizeWidth.Bytes()
		r.prefixBuf = make([]byte, prefixLen)
		r.state = RSReadHeaderSizeBytes
	}

	if r.state == RSReadHeaderSizeBytes {
		done, err := fillFrom(dev, r.prefixBuf, &r.prefixProgress)
		if !done {
			return r.state, err
		}
		if perr := r.parsePrefix(); perr != nil {
			r.state = RSError
			return r.state, perr
		}
		r.headerBuf = make([]byte, r.headerSize)
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
			return r.state, ccerr.Wrap(ccerr.KindProtocol, "wire.CommandReader.Step", errBadMarker)
		}
		r.finish()
		return r.state, nil
	}

	return r.state, nil
}

func (r *CommandReader) afterHeaderState() ReaderState {
	if r.payloadSize > 0 {
		return RSReadPayload
	}
	if r.descriptor.MarkerPresent {
		return RSReadMarker
	}
	return RSDone
}

func allocOnce(buf []byte, size uint64) []byte {
	if buf != nil {
		return buf
	}
	return make([]byte, size)
}

func (r *CommandReader) parsePrefix() error {
	off := 0
	hw := r.descriptor.HeaderSizeWidth.Bytes()
	if hw > 0 {
		v, _ := readWidthValue(r.prefixBuf[off:off+hw], r.descriptor.HeaderSizeWidth)
		r.headerSize = v
		off += hw
	}
	if off >= len(r.prefixBuf) {
		return ccerr.Wrap(ccerr.KindProtocol, "wire.CommandReader.parsePrefix", errShortPrefix)
	}
	cmd, err := ParseCommand(r.prefixBuf[off])
	if err != nil {
		return ccerr.Wrap(ccerr.KindProtocol, "wire.CommandReader.parsePrefix", err)
	}
	r.command = cmd
	off++

	pwBytes := passwordBytes(r.descriptor.AuthLevel)
	if pwBytes > 0 {
		var pw uint64
		for i := 0; i < pwBytes; i++ {
			pw |= uint64(r.prefixBuf[off+i]) << (8 * uint(i))
		}
		r.passwordHash = pw
		off += pwBytes
	} else {
		r.passwordHash = auth.InvalidHash
	}

	pw2 := r.descriptor.PayloadSizeWidth.Bytes()
	if pw2 > 0 {
		v, _ := readWidthValue(r.prefixBuf[off:off+pw2], r.descriptor.PayloadSizeWidth)
		r.payloadSize = v
	}
	return nil
}

// finish transfers the parsed header into the SharedBuffers header
// region and the parsed payload (if any) into it as an owned payload
// (spec §4.6: "Read FSMs transfer ownership of the payload ... or leave
// the buffer in the shared object").
func (r *CommandReader) finish() {
	hdr := r.Buffers.GrowHeader(len(r.headerBuf))
	copy(hdr, r.headerBuf)
	if r.payloadSize > 0 {
		r.Buffers.SetOwnedPayload(r.payloadBuf)
	}
	r.state = RSDone
}
