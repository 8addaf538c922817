// Package wire implements CyberCache's command/response wire framing
// (spec §4.5/§4.6): the descriptor byte layout, the fixed command
// enumeration, and the resumable CommandReader/CommandWriter/
// ResponseReader/ResponseWriter state machines that frame them over any
// byte-oriented Device. Grounded on the teacher's MySQLPackage
// Unmarshal/Marshal pair (server/protocol/parser.go,
// server/net/readwriter.go) — a length-prefixed packet codec that
// signals "need more bytes" via a sentinel error (ErrNotEnoughStream)
// rather than blocking — generalized into an explicit resumable state
// machine that keeps its own cursor across calls instead of re-parsing
// from a fresh buffer each time.
package wire

import (
	"github.com/pingcap/errors"
)

// Command enumerates the fixed 28-verb command set (spec §4.5).
type Command byte

const (
	CmdPing Command = iota
	CmdCheck
	CmdInfo
	CmdStats
	CmdShutdown
	CmdLoadConfig
	CmdRestore
	CmdStore
	CmdGet
	CmdSet
	CmdLog
	CmdRotate
	CmdRead
	CmdWrite
	CmdDestroy
	CmdGC
	CmdLoad
	CmdTest
	CmdSave
	CmdRemove
	CmdClean
	CmdGetIDs
	CmdGetTags
	CmdGetIDsMatchingTags
	CmdGetIDsNotMatchingTags
	CmdGetIDsMatchingAnyTags
	CmdGetFillingPercentage
	CmdGetMetadatas
	CmdTouch
	numCommands
)

var commandNames = [numCommands]string{
	"PING", "CHECK", "INFO", "STATS", "SHUTDOWN", "LOADCONFIG", "RESTORE",
	"STORE", "GET", "SET", "LOG", "ROTATE", "READ", "WRITE", "DESTROY",
	"GC", "LOAD", "TEST", "SAVE", "REMOVE", "CLEAN", "GETIDS", "GETTAGS",
	"GETIDSMATCHINGTAGS", "GETIDSNOTMATCHINGTAGS", "GETIDSMATCHINGANYTAGS",
	"GETFILLINGPERCENTAGE", "GETMETADATAS", "TOUCH",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "UNKNOWN"
	}
	return commandNames[c]
}

// ParseCommand looks up a Command by id, failing for anything outside
// the fixed enumeration (spec §7 Protocol: "unknown command").
func ParseCommand(id byte) (Command, error) {
	if id >= byte(numCommands) {
		return 0, errors.Errorf("wire: unknown command id %d", id)
	}
	return Command(id), nil
}

// IsWriteClass reports whether this command mutates store state and
// therefore belongs in the binlog (spec §6: "a concatenation of framed
// write-class commands").
func (c Command) IsWriteClass() bool {
	switch c {
	case CmdStore, CmdSet, CmdWrite, CmdDestroy, CmdSave, CmdRemove,
		CmdClean, CmdRestore, CmdLoadConfig, CmdTouch:
		return true
	default:
		return false
	}
}

// ResponseType is the response descriptor's type pair, replacing the
// auth-level bits a command descriptor carries (spec §4.5).
type ResponseType byte

const (
	RespOk ResponseType = iota
	RespData
	RespList
	RespError
)

func (r ResponseType) String() string {
	switch r {
	case RespOk:
		return "OK"
	case RespData:
		return "DATA"
	case RespList:
		return "LIST"
	case RespError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IntegrityMarker is the fixed trailing byte present when the
// integrity-marker-present descriptor bit is set (spec §4.5/§6).
const IntegrityMarker byte = 0xC3

// DefaultPort is the protocol's default listening port (spec §6).
const DefaultPort = 8120
