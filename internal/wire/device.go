package wire

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// IOResult is a device-level byte I/O outcome. Ok(n>0) is the only
// success case — Ok(0) is never returned (spec §4.6).
type IOResult int

const (
	IOOk IOResult = iota
	IORetry
	IOEOF
	IOError
)

// Device is the byte-oriented transport an FSM reads from or writes to.
// Implementations must honor spec §4.6's short-read/short-write rule:
// ReadSome/WriteSome return {Ok(n>0), Retry, Eof, Error}, never (0, Ok, nil).
type Device interface {
	ReadSome(buf []byte) (n int, result IOResult, err error)
	WriteSome(buf []byte) (n int, result IOResult, err error)
}

// fillFrom reads into buf[*progress:] from dev, advancing *progress.
// Returns done=true once *progress reaches len(buf). A Retry result is
// surfaced as a KindRetry ccerr so callers can distinguish "try me
// again later" from a hard failure.
func fillFrom(dev Device, buf []byte, progress *int) (done bool, err error) {
	for *progress < len(buf) {
		n, res, rerr := dev.ReadSome(buf[*progress:])
		switch res {
		case IOOk:
			*progress += n
		case IORetry:
			return false, ccerr.Wrap(ccerr.KindRetry, "wire.fillFrom", nil)
		case IOEOF:
			return false, ccerr.Wrap(ccerr.KindEOF, "wire.fillFrom", nil)
		case IOError:
			return false, ccerr.Wrap(ccerr.KindIO, "wire.fillFrom", rerr)
		}
	}
	return true, nil
}

// drainTo writes buf[*progress:] to dev, advancing *progress, with the
// same Retry/Eof/Error surfacing as fillFrom.
func drainTo(dev Device, buf []byte, progress *int) (done bool, err error) {
	for *progress < len(buf) {
		n, res, werr := dev.WriteSome(buf[*progress:])
		switch res {
		case IOOk:
			*progress += n
		case IORetry:
			return false, ccerr.Wrap(ccerr.KindRetry, "wire.drainTo", nil)
		case IOEOF:
			return false, ccerr.Wrap(ccerr.KindEOF, "wire.drainTo", nil)
		case IOError:
			return false, ccerr.Wrap(ccerr.KindIO, "wire.drainTo", werr)
		}
	}
	return true, nil
}
