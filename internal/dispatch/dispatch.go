// Package dispatch implements wirenet.Dispatcher against both CyberCache
// stores (spec §2/§4 "hard core" substrate: internal/shard +
// internal/record + internal/hash for sessions, internal/fpc for the
// tagged page cache): PING/CHECK/INFO/STATS/SHUTDOWN, the session
// STORE/SET/WRITE/GET/READ/DESTROY verbs, and the FPC
// SAVE/LOAD/TEST/TOUCH/REMOVE/GC/CLEAN/GETIDS/GETTAGS/GETIDSMATCHING*/
// GETFILLINGPERCENTAGE/GETMETADATAS verbs (see fpc.go).
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/binlog"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/buffers"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/compress"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/domain"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/fpc"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/hash"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/shard"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/tagmgr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

// Store is the top-level command handler: a sharded hash table for session
// records (spec §4.11) plus a pointer-keyed index back to the typed
// *record.SessionObject each HashObject entry belongs to (shard.Table deals
// only in the common *record.HashObject base), and an internal/fpc.Store
// for the tagged page cache.
type Store struct {
	auth   *auth.Service
	binlog *binlog.Writer
	start  time.Time

	table *shard.Table
	fpc   *fpc.Store

	mu    sync.Mutex
	index map[*record.HashObject]*record.SessionObject
}

func NewStore(authSvc *auth.Service, bl *binlog.Writer) *Store {
	return &Store{
		auth:   authSvc,
		binlog: bl,
		start:  time.Now(),
		table:  shard.NewTable(16, 64),
		fpc:    fpc.NewStore(domain.NewRegistry(0, 0, 0, nil)),
		index:  make(map[*record.HashObject]*record.SessionObject),
	}
}

func (s *Store) keyHash(name []byte) uint64 { return hash.TableHasher.Hash(name) }

// lookup finds the typed session object for name, if present.
func (s *Store) lookup(name []byte) *record.SessionObject {
	h := s.keyHash(name)
	obj := s.table.Lookup(h, name)
	if obj == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[obj]
}

// store creates name if absent and returns its SessionObject.
func (s *Store) store(name []byte) *record.SessionObject {
	h := s.keyHash(name)
	if existing := s.table.Lookup(h, name); existing != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.index[existing]
	}
	obj := record.NewSessionObject(h, append([]byte(nil), name...))
	s.table.Insert(&obj.HashObject)
	s.mu.Lock()
	s.index[&obj.HashObject] = obj
	s.mu.Unlock()
	return obj
}

// remove two-phase-deletes name (spec §4.11): mark under the record
// lock, then drain immediately since this sketch has no outstanding
// reader pins to wait on beyond the ones Dispatch itself would be
// holding.
func (s *Store) remove(name []byte) bool {
	h := s.keyHash(name)
	obj := s.table.Lookup(h, name)
	if obj == nil {
		return false
	}
	s.table.MarkForDeletion(obj)
	s.table.DrainDeleted(h, func(*record.HashObject) uint32 { return 0 }, func(o *record.HashObject) {
		s.mu.Lock()
		delete(s.index, o)
		s.mu.Unlock()
	})
	return true
}

// Dispatch implements wirenet.Dispatcher.
func (s *Store) Dispatch(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	if err := s.auth.Check(cr.Descriptor().AuthLevel, cr.PasswordHash()); err != nil {
		return errorResponse(err)
	}

	switch cr.Command() {
	case wire.CmdPing:
		return okResponse(nil)
	case wire.CmdCheck:
		return okResponse(nil)
	case wire.CmdInfo:
		return dataResponse([]byte(fmt.Sprintf("uptime=%s", time.Since(s.start))))
	case wire.CmdStats:
		return dataResponse([]byte(fmt.Sprintf("entries=%d", s.count())))
	case wire.CmdStore, wire.CmdSet, wire.CmdWrite:
		return s.handleStore(cr)
	case wire.CmdGet, wire.CmdRead:
		return s.handleGet(cr)
	case wire.CmdDestroy:
		return s.handleRemove(cr)
	case wire.CmdShutdown:
		return okResponse(nil)
	case wire.CmdSave:
		return s.handleSave(cr)
	case wire.CmdLoad:
		return s.handleLoad(cr)
	case wire.CmdTest:
		return s.handleTest(cr)
	case wire.CmdRemove:
		return s.handleFPCRemove(cr)
	case wire.CmdTouch:
		return s.handleTouch(cr)
	case wire.CmdGC:
		return s.handleGC(cr)
	case wire.CmdClean:
		return s.handleClean(cr)
	case wire.CmdGetIDs:
		return s.handleGetIDs(cr)
	case wire.CmdGetTags:
		return s.handleGetTags(cr)
	case wire.CmdGetIDsMatchingTags:
		return s.handleGetIDsMatchingMode(tagmgr.CleanMatchingAllTags)(cr)
	case wire.CmdGetIDsNotMatchingTags:
		return s.handleGetIDsMatchingMode(tagmgr.CleanNotMatchingAnyTag)(cr)
	case wire.CmdGetIDsMatchingAnyTags:
		return s.handleGetIDsMatchingMode(tagmgr.CleanMatchingAnyTag)(cr)
	case wire.CmdGetFillingPercentage:
		return s.handleGetFillingPercentage(cr)
	case wire.CmdGetMetadatas:
		return s.handleGetMetadatas(cr)
	default:
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.Dispatch",
			fmt.Errorf("%s is not implemented by this store", cr.Command())))
	}
}

func (s *Store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// handleStore expects the header to be exactly the key name; the
// payload (if any) becomes the record's value.
func (s *Store) handleStore(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	if len(name) == 0 {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleStore", errMissingKey))
	}
	obj := s.store(name)
	payload := append([]byte(nil), cr.PayloadBytes()...)
	obj.SetPayload(payload, int64(len(payload)), compress.None)

	if s.binlog != nil && cr.Command().IsWriteClass() {
		buf := buffers.New()
		hdr := buf.GrowHeader(len(name))
		copy(hdr, name)
		if len(payload) > 0 {
			buf.SetOwnedPayload(payload)
		}
		cw := wire.NewCommandWriter(cr.Command(), wire.CommandDescriptor{MarkerPresent: true}, auth.InvalidHash, buf, len(name))
		if err := s.binlog.Append(cw, cr.Command()); err != nil {
			return errorResponse(err)
		}
	}
	return okResponse(nil)
}

func (s *Store) handleGet(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	obj := s.lookup(name)
	if obj == nil {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleGet", errNotFound))
	}
	payload, present := obj.Payload()
	if !present {
		return okResponse(nil)
	}
	return dataResponse(payload)
}

func (s *Store) handleRemove(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	if !s.remove(name) {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleRemove", errNotFound))
	}
	return okResponse(nil)
}

func okResponse(payload []byte) (*wire.ResponseWriter, error) {
	buf := buffers.New()
	if len(payload) > 0 {
		buf.SetOwnedPayload(payload)
	}
	respType := wire.RespOk
	if len(payload) > 0 {
		respType = wire.RespData
	}
	return wire.NewResponseWriter(wire.ResponseDescriptor{Type: respType, MarkerPresent: true}, buf, 0), nil
}

func dataResponse(payload []byte) (*wire.ResponseWriter, error) {
	buf := buffers.New()
	buf.SetOwnedPayload(payload)
	return wire.NewResponseWriter(wire.ResponseDescriptor{Type: wire.RespData, MarkerPresent: true}, buf, 0), nil
}

// listPayloadResponse wraps an already chunk-encoded string-list payload
// (built by fpc.go's listResponse) in a RespList response.
func listPayloadResponse(payload []byte) (*wire.ResponseWriter, error) {
	buf := buffers.New()
	buf.SetOwnedPayload(payload)
	return wire.NewResponseWriter(wire.ResponseDescriptor{Type: wire.RespList, MarkerPresent: true}, buf, 0), nil
}

func errorResponse(cause error) (*wire.ResponseWriter, error) {
	buf := buffers.New()
	msg := cause.Error()
	buf.SetOwnedPayload([]byte(msg))
	return wire.NewResponseWriter(wire.ResponseDescriptor{Type: wire.RespError, MarkerPresent: true}, buf, 0), nil
}

type dispatchError string

func (e dispatchError) Error() string { return string(e) }

const (
	errMissingKey = dispatchError("dispatch: STORE/SET requires a non-empty key in the command header")
	errNotFound   = dispatchError("dispatch: no record for the given key")
)
