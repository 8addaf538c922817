package wirenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

type stubDispatcher struct {
	resp *wire.ResponseWriter
	err  error
}

func (d stubDispatcher) Dispatch(*wire.CommandReader) (*wire.ResponseWriter, error) {
	return d.resp, d.err
}

func buildFrame(t *testing.T, cmd wire.Command, payload []byte) []byte {
	t.Helper()
	buf := buffers.New()
	if len(payload) > 0 {
		buf.SetOwnedPayload(payload)
	}
	desc := wire.CommandDescriptor{MarkerPresent: true}
	w := wire.NewCommandWriter(cmd, desc, auth.InvalidHash, buf, 0)
	var out []byte
	dev := &sliceAppendDevice{dst: &out}
	for {
		state, err := w.Step(dev)
		require.NoError(t, err)
		if state == wire.WSDone {
			return out
		}
	}
}

func TestHandlerReadDecodesFullFrame(t *testing.T) {
	h := NewHandler(stubDispatcher{}, nil)
	frame := buildFrame(t, wire.CmdPing, []byte("hello"))

	pkg, consumed, err := h.Read(nil, frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)

	cr, ok := pkg.(*wire.CommandReader)
	require.True(t, ok)
	assert.Equal(t, wire.CmdPing, cr.Command())
	assert.Equal(t, []byte("hello"), cr.PayloadBytes())
}

func TestHandlerReadReturnsNilOnPartialFrame(t *testing.T) {
	h := NewHandler(stubDispatcher{}, nil)
	frame := buildFrame(t, wire.CmdPing, []byte("hello"))

	pkg, consumed, err := h.Read(nil, frame[:len(frame)-1])
	require.NoError(t, err)
	assert.Nil(t, pkg)
	assert.Zero(t, consumed)
}

func TestHandlerWriteSerializesResponse(t *testing.T) {
	buf := buffers.New()
	buf.SetOwnedPayload([]byte("resp-data"))
	rw := wire.NewResponseWriter(wire.ResponseDescriptor{Type: wire.RespData, MarkerPresent: true}, buf, 0)

	h := NewHandler(stubDispatcher{}, nil)
	out, err := h.Write(nil, rw)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	r := wire.NewResponseReader()
	dev := &byteDevice{data: out}
	for {
		state, err := r.Step(dev)
		require.NoError(t, err)
		if state == wire.RSDone {
			break
		}
	}
	assert.Equal(t, []byte("resp-data"), r.PayloadBytes())
}

func TestHandlerWriteRejectsWrongType(t *testing.T) {
	h := NewHandler(stubDispatcher{}, nil)
	_, err := h.Write(nil, "not a response writer")
	assert.Error(t, err)
}

func TestByteDeviceReadSomeConsumesAndSignalsRetryWhenExhausted(t *testing.T) {
	d := &byteDevice{data: []byte("ab")}
	buf := make([]byte, 1)

	n, res, err := d.ReadSome(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, wire.IOOk, res)

	n, res, err = d.ReadSome(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, wire.IOOk, res)

	_, res, err = d.ReadSome(buf)
	require.NoError(t, err)
	assert.Equal(t, wire.IORetry, res)
}
