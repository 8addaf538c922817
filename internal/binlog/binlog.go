// Package binlog implements CyberCache's append-only write-command
// journal (spec §6): a flat concatenation of framed write-class
// commands, replayed by simple re-dispatch. Grounded on internal/wire's
// CommandWriter/CommandReader framing (the binlog format is exactly the
// wire format, spec §6: "same wire format, with integrity marker
// controlled by file_integrity_check"); no teacher analog exists, since
// the teacher's own binlog concept is MySQL's row-change-event format,
// explicitly not reused here (see DESIGN.md).
package binlog

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

// Writer appends framed write-class commands to a single binlog file.
// Grounded on the teacher's straightforward os.File-backed append
// pattern (logger/logger.go's file rotation shares this style, adapted
// here from log lines to wire frames).
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// Open creates or appends to the binlog file at path.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, ccerr.Wrap(ccerr.KindIO, "binlog.Open", err)
	}
	return &Writer{file: f, buf: bufio.NewWriter(f)}, nil
}

// fileDevice adapts an *os.File to internal/wire.Device for a
// CommandWriter writing a single frame to the journal.
type fileDevice struct{ w io.Writer }

func (d fileDevice) ReadSome([]byte) (int, wire.IOResult, error) {
	panic("binlog: fileDevice is write-only")
}

func (d fileDevice) WriteSome(buf []byte) (int, wire.IOResult, error) {
	n, err := d.w.Write(buf)
	if err != nil {
		return n, wire.IOError, err
	}
	return n, wire.IOOk, nil
}

// Append writes one command frame to the journal if cmd is write-class
// (spec §6: "a concatenation of framed write-class commands"); non-write
// commands are silently skipped since replay only ever re-dispatches
// mutations.
func (w *Writer) Append(cw *wire.CommandWriter, cmd wire.Command) error {
	if !cmd.IsWriteClass() {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	dev := fileDevice{w: w.buf}
	for {
		state, err := cw.Step(dev)
		if state == wire.WSDone {
			return w.buf.Flush()
		}
		if err != nil && !ccerr.Has(err, ccerr.KindRetry) {
			return ccerr.Wrap(ccerr.KindIO, "binlog.Append", err)
		}
	}
}

// Sync flushes buffered writes and fsyncs the underlying file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return ccerr.Wrap(ccerr.KindIO, "binlog.Sync", err)
	}
	return w.file.Sync()
}

// Close flushes and closes the journal file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return ccerr.Wrap(ccerr.KindIO, "binlog.Close", err)
	}
	return w.file.Close()
}

// Replayer reads a binlog file front to back, decoding one command frame
// at a time for the caller to re-dispatch (spec §6: "replay is simple
// re-dispatch").
type Replayer struct {
	r io.Reader
}

func OpenReplayer(path string) (*Replayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ccerr.Wrap(ccerr.KindIO, "binlog.OpenReplayer", err)
	}
	return &Replayer{r: bufio.NewReader(f)}, nil
}

type readerDevice struct{ r io.Reader }

func (d readerDevice) ReadSome(buf []byte) (int, wire.IOResult, error) {
	n, err := d.r.Read(buf)
	if n > 0 {
		return n, wire.IOOk, nil
	}
	if err == io.EOF {
		return 0, wire.IOEOF, nil
	}
	if err != nil {
		return 0, wire.IOError, err
	}
	return 0, wire.IORetry, nil
}

func (d readerDevice) WriteSome([]byte) (int, wire.IOResult, error) {
	panic("binlog: readerDevice is read-only")
}

// Next decodes and returns the next command frame, or io.EOF once the
// journal is exhausted cleanly between frames.
func (rp *Replayer) Next() (*wire.CommandReader, error) {
	cr := wire.NewCommandReader()
	dev := readerDevice{r: rp.r}
	for {
		state, err := cr.Step(dev)
		if state == wire.RSDone {
			return cr, nil
		}
		if err != nil {
			if ccerr.Has(err, ccerr.KindEOF) {
				return nil, io.EOF
			}
			if !ccerr.Has(err, ccerr.KindRetry) {
				return nil, ccerr.Wrap(ccerr.KindProtocol, "binlog.Replayer.Next", err)
			}
		}
	}
}
