package binlog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cybercache.bin")
}

func newCommandWriter(t *testing.T, cmd wire.Command, payload []byte) *wire.CommandWriter {
	t.Helper()
	buf := buffers.New()
	if len(payload) > 0 {
		buf.SetOwnedPayload(payload)
	}
	desc := wire.CommandDescriptor{MarkerPresent: true}
	return wire.NewCommandWriter(cmd, desc, auth.InvalidHash, buf, 0)
}

func TestAppendSkipsNonWriteCommands(t *testing.T) {
	path := journalPath(t)
	w, err := Open(path)
	require.NoError(t, err)

	cw := newCommandWriter(t, wire.CmdGet, []byte("key"))
	require.NoError(t, w.Append(cw, wire.CmdGet))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAppendAndReplaySingleCommand(t *testing.T) {
	path := journalPath(t)
	w, err := Open(path)
	require.NoError(t, err)

	cw := newCommandWriter(t, wire.CmdStore, []byte("payload-bytes"))
	require.NoError(t, w.Append(cw, wire.CmdStore))
	require.NoError(t, w.Close())

	rp, err := OpenReplayer(path)
	require.NoError(t, err)

	cr, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.CmdStore, cr.Command())
	assert.Equal(t, []byte("payload-bytes"), cr.PayloadBytes())

	_, err = rp.Next()
	assert.Equal(t, io.EOF, err)
}

func TestAppendAndReplayMultipleCommands(t *testing.T) {
	path := journalPath(t)
	w, err := Open(path)
	require.NoError(t, err)

	cmds := []wire.Command{wire.CmdStore, wire.CmdSet, wire.CmdRemove}
	for _, cmd := range cmds {
		require.NoError(t, w.Append(newCommandWriter(t, cmd, []byte("v")), cmd))
	}
	require.NoError(t, w.Close())

	rp, err := OpenReplayer(path)
	require.NoError(t, err)

	var replayed []wire.Command
	for {
		cr, err := rp.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		replayed = append(replayed, cr.Command())
	}
	assert.Equal(t, cmds, replayed)
}

func TestSyncFlushesWithoutClosing(t *testing.T) {
	path := journalPath(t)
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(newCommandWriter(t, wire.CmdDestroy, nil), wire.CmdDestroy))
	require.NoError(t, w.Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
