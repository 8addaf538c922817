// Package config loads CyberCache's main server configuration from an INI
// file: listen address, per-domain quotas, compressor/hasher defaults,
// binlog path, session-lock timing, and the user-agent lifetime table.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

// Edition selects the quota range a Domain is allowed to use.
type Edition int

const (
	Community Edition = iota
	Enterprise
)

// Cfg is the parsed, typed configuration for one server process.
type Cfg struct {
	Raw *ini.File

	BindAddress string
	Port        int
	Edition     Edition

	// Quotas, in bytes; 0 means "use edition default".
	GlobalQuota  int64
	SessionQuota int64
	FpcQuota     int64

	DefaultCompressor string
	TableHashMethod   string
	TableHashSeed     uint64
	PasswordHashMethod string
	PasswordHashSeed   uint64

	BinlogPath          string
	FileIntegrityCheck  bool
	SessionLockWaitTime string
	SessionLockWait     time.Duration

	UserPassword  string
	AdminPassword string
	BulkPassword  string

	// User-agent class -> default lifetime, in seconds.
	LifetimeUnknown int
	LifetimeBot     int
	LifetimeWarmer  int
	LifetimeUser    int

	ReplicationConfigPath string
}

// Args carries command-line-provided overrides, as passed to main().
type Args struct {
	ConfigPath string
}

// New returns a Cfg populated with CyberCache's documented defaults.
func New() *Cfg {
	return &Cfg{
		Raw:                 ini.Empty(),
		BindAddress:         "0.0.0.0",
		Port:                8120,
		Edition:             Community,
		DefaultCompressor:   "snappy",
		TableHashMethod:     "xxhash",
		TableHashSeed:       0xA7E792DE6A72D8E0,
		PasswordHashMethod:  "murmurhash2",
		PasswordHashSeed:    0x2CFC6D033D509131,
		FileIntegrityCheck:  true,
		SessionLockWaitTime: "8000ms",
		SessionLockWait:     8000 * time.Millisecond,
		LifetimeUnknown:     3600,
		LifetimeBot:         60,
		LifetimeWarmer:      300,
		LifetimeUser:        7200,
	}
}

// Load reads the INI file named by args.ConfigPath (or the cwd's
// cybercache.ini if unset) into a new Cfg.
func Load(args *Args) (*Cfg, error) {
	cfg := New()
	path := args.ConfigPath
	if path == "" {
		abs, err := filepath.Abs("cybercache.ini")
		if err != nil {
			return nil, err
		}
		path = abs
	}
	raw, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.Raw = raw

	if err := cfg.parseServerSection(raw.Section("server")); err != nil {
		return nil, err
	}
	if err := cfg.parseStoreSection(raw.Section("store")); err != nil {
		return nil, err
	}
	if err := cfg.parseAuthSection(raw.Section("auth")); err != nil {
		return nil, err
	}
	if err := cfg.parseUserAgentSection(raw.Section("user_agents")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Cfg) parseServerSection(s *ini.Section) error {
	cfg.BindAddress = s.Key("bind_address").MustString(cfg.BindAddress)
	cfg.Port = s.Key("port").MustInt(cfg.Port)
	if s.Key("edition").MustString("community") == "enterprise" {
		cfg.Edition = Enterprise
	}
	cfg.BinlogPath = s.Key("binlog_path").MustString(cfg.BinlogPath)
	cfg.FileIntegrityCheck = s.Key("file_integrity_check").MustBool(cfg.FileIntegrityCheck)
	cfg.SessionLockWaitTime = s.Key("session_lock_wait_time").MustString(cfg.SessionLockWaitTime)
	cfg.ReplicationConfigPath = s.Key("replication_config").MustString("")

	d, err := time.ParseDuration(cfg.SessionLockWaitTime)
	if err != nil {
		return fmt.Errorf("session_lock_wait_time=%q: %w", cfg.SessionLockWaitTime, err)
	}
	cfg.SessionLockWait = d
	return nil
}

func (cfg *Cfg) parseStoreSection(s *ini.Section) error {
	cfg.GlobalQuota = s.Key("global_quota").MustInt64(cfg.GlobalQuota)
	cfg.SessionQuota = s.Key("session_quota").MustInt64(cfg.SessionQuota)
	cfg.FpcQuota = s.Key("fpc_quota").MustInt64(cfg.FpcQuota)
	cfg.DefaultCompressor = s.Key("default_compressor").MustString(cfg.DefaultCompressor)
	cfg.TableHashMethod = s.Key("table_hash_method").MustString(cfg.TableHashMethod)
	cfg.TableHashSeed = uint64(s.Key("table_hash_seed").MustUint64(cfg.TableHashSeed))
	return nil
}

func (cfg *Cfg) parseAuthSection(s *ini.Section) error {
	cfg.PasswordHashMethod = s.Key("password_hash_method").MustString(cfg.PasswordHashMethod)
	cfg.PasswordHashSeed = uint64(s.Key("password_hash_seed").MustUint64(cfg.PasswordHashSeed))
	cfg.UserPassword = s.Key("user_password").MustString("")
	cfg.AdminPassword = s.Key("admin_password").MustString("")
	cfg.BulkPassword = s.Key("bulk_password").MustString("")
	return nil
}

func (cfg *Cfg) parseUserAgentSection(s *ini.Section) error {
	cfg.LifetimeUnknown = s.Key("lifetime_unknown").MustInt(cfg.LifetimeUnknown)
	cfg.LifetimeBot = s.Key("lifetime_bot").MustInt(cfg.LifetimeBot)
	cfg.LifetimeWarmer = s.Key("lifetime_warmer").MustInt(cfg.LifetimeWarmer)
	cfg.LifetimeUser = s.Key("lifetime_user").MustInt(cfg.LifetimeUser)
	return nil
}

// QuotaRange returns the [min,max] bytes a domain quota may occupy for cfg's edition.
func (cfg *Cfg) QuotaRange() (min, max int64) {
	const mib = 1 << 20
	const gib = 1 << 30
	const tib = 1 << 40
	if cfg.Edition == Enterprise {
		return 8 * mib, 128 * tib
	}
	return 8 * mib, 32 * gib
}

// ExpandPath resolves a possibly-relative path against the process's
// working directory, matching the server's "binlog paths are absolute and
// server-local" contract (spec §6) by failing loudly instead of guessing.
func ExpandPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return "", fmt.Errorf("path %q must be absolute", path)
}
