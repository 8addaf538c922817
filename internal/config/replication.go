package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// PeerRole distinguishes a full replica from a binlog-only shipping target.
type PeerRole string

const (
	RoleReplica PeerRole = "replica"
	RoleBinlog  PeerRole = "binlog"
)

// Peer is one entry in the replication topology file.
type Peer struct {
	Address string   `toml:"address"`
	Role    PeerRole `toml:"role"`
}

// Topology is the parsed replication peer list.
type Topology struct {
	Peer []Peer `toml:"peer"`
}

// LoadTopology reads a TOML replication-peer file. Unlike the main INI
// config, this file is only ever hand-edited and reloaded on SIGHUP, which
// is why it uses a different format (see SPEC_FULL.md A.3).
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading replication config %s: %w", path, err)
	}
	var top Topology
	if err := toml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing replication config %s: %w", path, err)
	}
	return &top, nil
}

// Replicas filters Topology down to the full-replica peers.
func (t *Topology) Replicas() []Peer {
	var out []Peer
	for _, p := range t.Peer {
		if p.Role == RoleReplica {
			out = append(out, p)
		}
	}
	return out
}

// BinlogTargets filters Topology down to the binlog-shipping-only peers.
func (t *Topology) BinlogTargets() []Peer {
	var out []Peer
	for _, p := range t.Peer {
		if p.Role == RoleBinlog {
			out = append(out, p)
		}
	}
	return out
}
