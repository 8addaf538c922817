// FPC command handlers: SAVE/LOAD/TEST/REMOVE/TOUCH/CLEAN/GETIDS/GETTAGS/
// GETIDSMATCHING*/GETFILLINGPERCENTAGE/GETMETADATAS, wired against
// internal/fpc.Store (spec §4.5's command enum, §4.10's tag matching).
// Multi-field command headers are chunk-coded (internal/chunk, spec §4.4);
// single-field ones reuse the raw-bytes header convention already used for
// the session STORE/GET/REMOVE handlers in dispatch.go.
package dispatch

import (
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/chunk"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/record"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/tagmgr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wire"
)

// ---- header encode/decode ----

// encodeSaveHeader builds a SAVE command header: name, lifetime (seconds,
// 0 = no expiration), user-agent class, then the tag-name list.
func encodeSaveHeader(name []byte, lifetimeSeconds int64, agent record.UserAgentClass, tags [][]byte) ([]byte, error) {
	n := chunk.EstimateString(name) + chunk.EstimateNumber(lifetimeSeconds) +
		chunk.EstimateNumber(int64(agent)) + chunk.EstimateList(len(tags))
	for _, t := range tags {
		n += chunk.EstimateListElement(t)
	}
	buf := make([]byte, n)
	e := chunk.NewEncoder(buf)
	if err := e.PutString(name); err != nil {
		return nil, err
	}
	if err := e.PutNumber(lifetimeSeconds); err != nil {
		return nil, err
	}
	if err := e.PutNumber(int64(agent)); err != nil {
		return nil, err
	}
	if err := e.PutList(len(tags)); err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := e.PutListElement(t); err != nil {
			return nil, err
		}
	}
	if err := e.Check(n); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeSaveHeader(buf []byte) (name []byte, lifetime time.Duration, agent record.UserAgentClass, tags [][]byte, err error) {
	d := chunk.NewDecoder(buf)
	name, err = d.NextString()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	secs, err := d.NextNumber()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	ag, err := d.NextNumber()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	list, err := d.NextList()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	for !list.Done() {
		el, err := list.Next()
		if err != nil {
			return nil, 0, 0, nil, err
		}
		tags = append(tags, append([]byte(nil), el...))
	}
	return name, time.Duration(secs) * time.Second, record.UserAgentClass(ag), tags, nil
}

// encodeTouchHeader builds a TOUCH command header: name, lifetime (seconds).
func encodeTouchHeader(name []byte, lifetimeSeconds int64) ([]byte, error) {
	n := chunk.EstimateString(name) + chunk.EstimateNumber(lifetimeSeconds)
	buf := make([]byte, n)
	e := chunk.NewEncoder(buf)
	if err := e.PutString(name); err != nil {
		return nil, err
	}
	if err := e.PutNumber(lifetimeSeconds); err != nil {
		return nil, err
	}
	return buf, e.Check(n)
}

func decodeTouchHeader(buf []byte) (name []byte, lifetime time.Duration, err error) {
	d := chunk.NewDecoder(buf)
	name, err = d.NextString()
	if err != nil {
		return nil, 0, err
	}
	secs, err := d.NextNumber()
	if err != nil {
		return nil, 0, err
	}
	return name, time.Duration(secs) * time.Second, nil
}

// encodeTagsListHeader builds a header whose sole chunk is a string list:
// used for GETIDSMATCHINGTAGS/GETIDSNOTMATCHINGTAGS/GETIDSMATCHINGANYTAGS
// (tag names) and GETMETADATAS (page names).
func encodeTagsListHeader(items [][]byte) ([]byte, error) {
	n := chunk.EstimateList(len(items))
	for _, it := range items {
		n += chunk.EstimateListElement(it)
	}
	buf := make([]byte, n)
	e := chunk.NewEncoder(buf)
	if err := e.PutList(len(items)); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := e.PutListElement(it); err != nil {
			return nil, err
		}
	}
	return buf, e.Check(n)
}

func decodeListHeader(buf []byte) ([][]byte, error) {
	d := chunk.NewDecoder(buf)
	list, err := d.NextList()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for !list.Done() {
		el, err := list.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, append([]byte(nil), el...))
	}
	return out, nil
}

// encodeCleanHeader builds a CLEAN command header: mode, then the
// query-tag-name list.
func encodeCleanHeader(mode tagmgr.CleanMode, tags [][]byte) ([]byte, error) {
	n := chunk.EstimateNumber(int64(mode)) + chunk.EstimateList(len(tags))
	for _, t := range tags {
		n += chunk.EstimateListElement(t)
	}
	buf := make([]byte, n)
	e := chunk.NewEncoder(buf)
	if err := e.PutNumber(int64(mode)); err != nil {
		return nil, err
	}
	if err := e.PutList(len(tags)); err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := e.PutListElement(t); err != nil {
			return nil, err
		}
	}
	return buf, e.Check(n)
}

func decodeCleanHeader(buf []byte) (tagmgr.CleanMode, [][]byte, error) {
	d := chunk.NewDecoder(buf)
	m, err := d.NextNumber()
	if err != nil {
		return 0, nil, err
	}
	list, err := d.NextList()
	if err != nil {
		return 0, nil, err
	}
	var tags [][]byte
	for !list.Done() {
		el, err := list.Next()
		if err != nil {
			return 0, nil, err
		}
		tags = append(tags, append([]byte(nil), el...))
	}
	return tagmgr.CleanMode(m), tags, nil
}

// listResponse builds a RespList response whose payload is a single
// chunk-coded string list (spec §4.4's payload-list body; the dedicated
// doubling-growth list builder of spec §4.5 is the byte-stream-fed variant
// internal/wire would use, not needed once the full list is in hand here).
func listResponse(items [][]byte) (*wire.ResponseWriter, error) {
	n := chunk.EstimateList(len(items))
	for _, it := range items {
		n += chunk.EstimateListElement(it)
	}
	buf := make([]byte, n)
	e := chunk.NewEncoder(buf)
	if err := e.PutList(len(items)); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := e.PutListElement(it); err != nil {
			return nil, err
		}
	}
	if err := e.Check(n); err != nil {
		return nil, err
	}
	return listPayloadResponse(buf)
}

// ---- command handlers ----

func (s *Store) handleSave(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name, lifetime, agent, tags, err := decodeSaveHeader(cr.HeaderBytes())
	if err != nil {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleSave", err))
	}
	payload := append([]byte(nil), cr.PayloadBytes()...)
	if err := s.fpc.Save(name, payload, lifetime, agent, tags); err != nil {
		return errorResponse(err)
	}
	return okResponse(nil)
}

func (s *Store) handleLoad(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	payload, ok := s.fpc.Load(name)
	if !ok {
		return okResponse(nil)
	}
	return dataResponse(payload)
}

func (s *Store) handleTest(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	if !s.fpc.Test(name) {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleTest", errNotFound))
	}
	return okResponse(nil)
}

func (s *Store) handleFPCRemove(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	if !s.fpc.Remove(name) {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleFPCRemove", errNotFound))
	}
	return okResponse(nil)
}

func (s *Store) handleTouch(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name, lifetime, err := decodeTouchHeader(cr.HeaderBytes())
	if err != nil {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleTouch", err))
	}
	if !s.fpc.Touch(name, lifetime) {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleTouch", errNotFound))
	}
	return okResponse(nil)
}

func (s *Store) handleGetIDs(*wire.CommandReader) (*wire.ResponseWriter, error) {
	return listResponse(s.fpc.GetIDs())
}

func (s *Store) handleGetTags(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	name := cr.HeaderBytes()
	tags, ok := s.fpc.GetTags(name)
	if !ok {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleGetTags", errNotFound))
	}
	return listResponse(tags)
}

func (s *Store) handleGetIDsMatchingMode(mode tagmgr.CleanMode) func(*wire.CommandReader) (*wire.ResponseWriter, error) {
	return func(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
		tags, err := decodeListHeader(cr.HeaderBytes())
		if err != nil {
			return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleGetIDsMatchingMode", err))
		}
		return listResponse(s.fpc.GetIDsMatchingMode(mode, tags))
	}
}

func (s *Store) handleGetFillingPercentage(*wire.CommandReader) (*wire.ResponseWriter, error) {
	pct := s.fpc.GetFillingPercentage()
	return dataResponse(encodeFloatPercentage(pct))
}

func (s *Store) handleGetMetadatas(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	names, err := decodeListHeader(cr.HeaderBytes())
	if err != nil {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleGetMetadatas", err))
	}
	metas := s.fpc.GetMetadatas(names)
	flat := make([][]byte, 0, len(metas)*2)
	for _, m := range metas {
		flat = append(flat, m.Name)
		tagsJoined := joinTags(m.Tags)
		flat = append(flat, tagsJoined)
	}
	return listResponse(flat)
}

func (s *Store) handleClean(cr *wire.CommandReader) (*wire.ResponseWriter, error) {
	mode, tags, err := decodeCleanHeader(cr.HeaderBytes())
	if err != nil {
		return errorResponse(ccerr.Wrap(ccerr.KindProtocol, "dispatch.handleClean", err))
	}
	s.fpc.Clean(mode, tags)
	return okResponse(nil)
}

func (s *Store) handleGC(*wire.CommandReader) (*wire.ResponseWriter, error) {
	s.fpc.GC()
	return okResponse(nil)
}

// joinTags flattens a page's tags into one comma-separated field for the
// GETMETADATAS list response (the tags themselves are returned, not the
// full GetMetadata struct, since a chunk string list can't embed a nested
// list).
func joinTags(tags [][]byte) []byte {
	out := make([]byte, 0, len(tags)*8)
	for i, t := range tags {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, t...)
	}
	return out
}

// encodeFloatPercentage renders a percentage to two decimal places as
// ASCII, since the wire's chunk numbers are integers only (spec §4.4).
func encodeFloatPercentage(pct float64) []byte {
	whole := int64(pct)
	frac := int64((pct - float64(whole)) * 100)
	if frac < 0 {
		frac = -frac
	}
	digits := func(v int64) []byte {
		if v == 0 {
			return []byte{'0'}
		}
		var b []byte
		neg := v < 0
		if neg {
			v = -v
		}
		for v > 0 {
			b = append([]byte{byte('0' + v%10)}, b...)
			v /= 10
		}
		if neg {
			b = append([]byte{'-'}, b...)
		}
		return b
	}
	out := digits(whole)
	out = append(out, '.')
	if frac < 10 {
		out = append(out, '0')
	}
	out = append(out, digits(frac)...)
	return out
}
