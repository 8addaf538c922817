package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/binlog"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/tagmgr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(auth.NewService("", "", ""), nil)
}

func newStoreWithBinlog(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cc.bin")
	w, err := binlog.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return NewStore(auth.NewService("", "", ""), w), path
}

func commandFrame(t *testing.T, cmd wire.Command, key, payload []byte) *wire.CommandReader {
	t.Helper()
	buf := buffers.New()
	hdr := buf.GrowHeader(len(key))
	copy(hdr, key)
	if len(payload) > 0 {
		buf.SetOwnedPayload(payload)
	}
	desc := wire.CommandDescriptor{MarkerPresent: true}
	w := wire.NewCommandWriter(cmd, desc, auth.InvalidHash, buf, len(key))

	var out []byte
	dev := appendDevice{dst: &out}
	for {
		state, err := w.Step(dev)
		require.NoError(t, err)
		if state == wire.WSDone {
			break
		}
	}

	r := wire.NewCommandReader()
	readDev := &sliceDevice{data: out}
	for {
		state, err := r.Step(readDev)
		require.NoError(t, err)
		if state == wire.RSDone {
			return r
		}
	}
}

type appendDevice struct{ dst *[]byte }

func (d appendDevice) ReadSome([]byte) (int, wire.IOResult, error) { panic("unused") }
func (d appendDevice) WriteSome(buf []byte) (int, wire.IOResult, error) {
	*d.dst = append(*d.dst, buf...)
	return len(buf), wire.IOOk, nil
}

type sliceDevice struct {
	data []byte
	pos  int
}

func (d *sliceDevice) ReadSome(buf []byte) (int, wire.IOResult, error) {
	if d.pos >= len(d.data) {
		return 0, wire.IOEOF, nil
	}
	n := copy(buf, d.data[d.pos:])
	d.pos += n
	return n, wire.IOOk, nil
}
func (d *sliceDevice) WriteSome([]byte) (int, wire.IOResult, error) { panic("unused") }

func decodeResponse(t *testing.T, rw *wire.ResponseWriter) *wire.ResponseReader {
	t.Helper()
	var out []byte
	dev := appendDevice{dst: &out}
	for {
		state, err := rw.Step(dev)
		require.NoError(t, err)
		if state == wire.WSDone {
			break
		}
	}
	r := wire.NewResponseReader()
	readDev := &sliceDevice{data: out}
	for {
		state, err := r.Step(readDev)
		require.NoError(t, err)
		if state == wire.RSDone {
			return r
		}
	}
}

func TestPingReturnsOk(t *testing.T) {
	s := newStore(t)
	cr := commandFrame(t, wire.CmdPing, nil, nil)
	rw, err := s.Dispatch(cr)
	require.NoError(t, err)
	resp := decodeResponse(t, rw)
	assert.Equal(t, wire.RespOk, resp.Descriptor().Type)
}

func TestStoreThenGetRoundTrips(t *testing.T) {
	s := newStore(t)
	storeCmd := commandFrame(t, wire.CmdStore, []byte("session-key"), []byte("session-value"))
	rw, err := s.Dispatch(storeCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	getCmd := commandFrame(t, wire.CmdGet, []byte("session-key"), nil)
	rw, err = s.Dispatch(getCmd)
	require.NoError(t, err)
	resp := decodeResponse(t, rw)
	assert.Equal(t, wire.RespData, resp.Descriptor().Type)
	assert.Equal(t, []byte("session-value"), resp.PayloadBytes())
}

func TestGetMissingKeyReturnsError(t *testing.T) {
	s := newStore(t)
	getCmd := commandFrame(t, wire.CmdGet, []byte("nope"), nil)
	rw, err := s.Dispatch(getCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespError, decodeResponse(t, rw).Descriptor().Type)
}

func TestRemoveDeletesRecord(t *testing.T) {
	s := newStore(t)
	require.NoError(t, storeKey(t, s, "k", "v"))

	removeCmd := commandFrame(t, wire.CmdDestroy, []byte("k"), nil)
	rw, err := s.Dispatch(removeCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	getCmd := commandFrame(t, wire.CmdGet, []byte("k"), nil)
	rw, err = s.Dispatch(getCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespError, decodeResponse(t, rw).Descriptor().Type)
}

func storeKey(t *testing.T, s *Store, key, value string) error {
	t.Helper()
	cmd := commandFrame(t, wire.CmdStore, []byte(key), []byte(value))
	rw, err := s.Dispatch(cmd)
	if err != nil {
		return err
	}
	if decodeResponse(t, rw).Descriptor().Type != wire.RespOk {
		t.Fatal("store did not return OK")
	}
	return nil
}

func TestUnimplementedCommandReturnsProtocolError(t *testing.T) {
	s := newStore(t)
	cmd := commandFrame(t, wire.CmdRotate, []byte("k"), nil)
	rw, err := s.Dispatch(cmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespError, decodeResponse(t, rw).Descriptor().Type)
}

func TestFPCSaveThenLoadRoundTrips(t *testing.T) {
	s := newStore(t)
	hdr, err := encodeSaveHeader([]byte("p1"), 3600, record.AgentUser, nil)
	require.NoError(t, err)
	saveCmd := commandFrame(t, wire.CmdSave, hdr, []byte("page-body"))
	rw, err := s.Dispatch(saveCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	loadCmd := commandFrame(t, wire.CmdLoad, []byte("p1"), nil)
	rw, err = s.Dispatch(loadCmd)
	require.NoError(t, err)
	resp := decodeResponse(t, rw)
	assert.Equal(t, wire.RespData, resp.Descriptor().Type)
	assert.Equal(t, []byte("page-body"), resp.PayloadBytes())
}

func TestFPCSaveWithTagsThenGetIDsMatchingTags(t *testing.T) {
	s := newStore(t)
	hdr, err := encodeSaveHeader([]byte("p1"), 3600, record.AgentUser, [][]byte{[]byte("t1"), []byte("t2")})
	require.NoError(t, err)
	saveCmd := commandFrame(t, wire.CmdSave, hdr, make([]byte, 64*1024))
	rw, err := s.Dispatch(saveCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	matchHdr, err := encodeTagsListHeader([][]byte{[]byte("t2")})
	require.NoError(t, err)
	matchCmd := commandFrame(t, wire.CmdGetIDsMatchingTags, matchHdr, nil)
	rw, err = s.Dispatch(matchCmd)
	require.NoError(t, err)
	resp := decodeResponse(t, rw)
	assert.Equal(t, wire.RespList, resp.Descriptor().Type)

	items, err := decodeListHeader(resp.PayloadBytes())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("p1"), items[0])
}

func TestFPCCleanMatchNotEmptyTagsRemovesNothing(t *testing.T) {
	s := newStore(t)
	hdr, err := encodeSaveHeader([]byte("p1"), 3600, record.AgentUser, [][]byte{[]byte("t1"), []byte("t2")})
	require.NoError(t, err)
	saveCmd := commandFrame(t, wire.CmdSave, hdr, []byte("v"))
	rw, err := s.Dispatch(saveCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	cleanHdr, err := encodeCleanHeader(tagmgr.CleanNotMatchingAnyTag, nil)
	require.NoError(t, err)
	cleanCmd := commandFrame(t, wire.CmdClean, cleanHdr, nil)
	rw, err = s.Dispatch(cleanCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespOk, decodeResponse(t, rw).Descriptor().Type)

	loadCmd := commandFrame(t, wire.CmdLoad, []byte("p1"), nil)
	rw, err = s.Dispatch(loadCmd)
	require.NoError(t, err)
	assert.Equal(t, wire.RespData, decodeResponse(t, rw).Descriptor().Type)
}

func TestAuthFailureReturnsErrorBeforeDispatch(t *testing.T) {
	s := NewStore(auth.NewService("", "adminpass", ""), nil)
	buf := buffers.New()
	key := []byte("k")
	hdr := buf.GrowHeader(len(key))
	copy(hdr, key)
	desc := wire.CommandDescriptor{AuthLevel: auth.LevelAdmin, MarkerPresent: true}
	w := wire.NewCommandWriter(wire.CmdGet, desc, 0xBADBADBADBADBAD0, buf, len(key))

	var out []byte
	dev := appendDevice{dst: &out}
	for {
		state, err := w.Step(dev)
		require.NoError(t, err)
		if state == wire.WSDone {
			break
		}
	}
	cr := wire.NewCommandReader()
	readDev := &sliceDevice{data: out}
	for {
		state, err := cr.Step(readDev)
		require.NoError(t, err)
		if state == wire.RSDone {
			break
		}
	}

	rw, err := s.Dispatch(cr)
	require.NoError(t, err)
	assert.Equal(t, wire.RespError, decodeResponse(t, rw).Descriptor().Type)
}

func TestStoreAppendsToBinlog(t *testing.T) {
	s, path := newStoreWithBinlog(t)
	require.NoError(t, storeKey(t, s, "bk", "bv"))
	require.NoError(t, s.binlog.Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestCcerrHasAuthOnBadPassword(t *testing.T) {
	s := NewStore(auth.NewService("", "adminpass", ""), nil)
	err := s.auth.Check(auth.LevelAdmin, 0)
	assert.True(t, ccerr.Has(err, ccerr.KindAuth))
}
