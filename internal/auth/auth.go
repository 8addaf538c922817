// Package auth implements CyberCache's authentication check: three
// independent 64-bit password hashes (user/admin/bulk), each derived
// from a configured password via internal/hash.PasswordHasher, compared
// against the hash a client presents on the wire (spec §6). Grounded on
// the teacher's AuthService interface shape
// (server/auth/auth_service.go's AuthenticateUser), simplified to
// hash-compare only: no privilege/grant tables, no database/table
// access control, those being MySQL-specific concerns this spec has no
// equivalent for.
package auth

import (
	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/hash"
)

// InvalidHash is the sentinel meaning "no password configured for this
// level" (spec §6).
const InvalidHash uint64 = 0xFFFFFFFFFFFFFFFF

// Level is one of the wire protocol's four auth levels (spec §4.5: "auth
// level 2 bits: none/user/admin/bulk").
type Level int

const (
	LevelNone Level = iota
	LevelUser
	LevelAdmin
	LevelBulk
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelUser:
		return "user"
	case LevelAdmin:
		return "admin"
	case LevelBulk:
		return "bulk"
	default:
		return "unknown"
	}
}

// Service holds the three configured password hashes and checks
// presented wire hashes against them.
type Service struct {
	userHash  uint64
	adminHash uint64
	bulkHash  uint64
}

// NewService derives a Service's three hashes from cleartext passwords;
// an empty password means "no password configured for this level"
// (InvalidHash, always rejecting non-empty presented hashes and
// accepting only an explicit InvalidHash from the client, i.e. access
// is open when no password is configured).
func NewService(userPassword, adminPassword, bulkPassword string) *Service {
	return &Service{
		userHash:  deriveHash(userPassword),
		adminHash: deriveHash(adminPassword),
		bulkHash:  deriveHash(bulkPassword),
	}
}

func deriveHash(password string) uint64 {
	if password == "" {
		return InvalidHash
	}
	return hash.PasswordHasher.Hash([]byte(password))
}

// HashForLevel exposes the configured hash for a level, chiefly so
// conformance tests and the admin console can derive a client-side
// password hash against the same seed/algorithm.
func (s *Service) HashForLevel(level Level) uint64 {
	switch level {
	case LevelUser:
		return s.userHash
	case LevelAdmin:
		return s.adminHash
	case LevelBulk:
		return s.bulkHash
	default:
		return InvalidHash
	}
}

// Check verifies a presented hash against the configured hash for
// level. A level with no configured password (InvalidHash) always
// passes, regardless of what the client presented, matching spec §6:
// "INVALID_HASH_VALUE ... meaning 'no password configured'".
func (s *Service) Check(level Level, presented uint64) error {
	if level == LevelNone {
		return nil
	}
	configured := s.HashForLevel(level)
	if configured == InvalidHash {
		return nil
	}
	if presented != configured {
		return ccerr.Wrap(ccerr.KindAuth, "auth.Check", errAuthMismatch)
	}
	return nil
}

type authError string

func (e authError) Error() string { return string(e) }

const errAuthMismatch = authError("auth: password hash mismatch")
