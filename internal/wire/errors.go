package wire

import "github.com/cyberhull/cybercache-cluster-sub001/internal/auth"

type wireError string

func (e wireError) Error() string { return string(e) }

const (
	errBadMarker   = wireError("wire: integrity marker mismatch")
	errShortPrefix = wireError("wire: frame prefix too short for command id")
	errNotDone     = wireError("wire: Rewind called on a writer that is not Done")
)

// passwordBytes returns the wire width of the password hash field: 8
// bytes when the frame's auth level requires one, 0 otherwise.
func passwordBytes(level auth.Level) int {
	if level == auth.LevelNone {
		return 0
	}
	return 8
}
