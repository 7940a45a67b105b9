// Package metadata parses Substrate node runtime metadata (v12/v13) into
// a lookup table of module storage, call, event and constant descriptors,
// and the argument-type grammar (ArgumentMeta) that pkg/scale decodes
// against.
package metadata

import "fmt"

// Version identifies which on-chain metadata encoding produced a Metadata
// value. Only v12 and v13 are supported; anything else is rejected at
// decode time rather than silently mis-parsed.
type Version uint8

const (
	VersionV12 Version = 12
	VersionV13 Version = 13
)

// Metadata is the parsed runtime metadata for one chain spec version: the
// module table plus the handful of well-known constants (Babe/Staking/
// System) the rest of the system needs to interpret block timing and
// era/epoch boundaries.
type Metadata struct {
	Version       Version
	Modules       map[uint8]*ModuleMetadata
	RuntimeConfig RuntimeConfig
}

// RuntimeConfig is the subset of on-chain constants SubVT derives block
// and era timing from.
type RuntimeConfig struct {
	ExpectedBlockTimeMillis uint64
	EpochDurationBlocks     uint64
	EpochDurationMillis     uint64
	SessionsPerEra          uint32
	MaxNominations          uint32
	EraDurationBlocks       uint64
	EraDurationMillis       uint64
	SpecName                string
	SpecVersion             uint32
	TransactionVersion      uint32
}

// ModuleMetadata is one pallet's descriptors: its storage entries, calls,
// events, errors and constants, all keyed the way the node's metadata
// indexes them (storage/constants by name, calls/events/errors by index).
type ModuleMetadata struct {
	Index     uint8
	Name      string
	Storage   map[string]*StorageMetadata
	Constants map[string]*ConstantMetadata
	Calls     map[uint8]*CallMetadata
	Events    map[uint8]*EventMetadata
	Errors    map[uint8]string
}

// Module looks up a pallet by name, the way RPC call sites address them
// ("Babe", "Staking", "System", ...).
func (m *Metadata) Module(name string) (*ModuleMetadata, error) {
	for _, mod := range m.Modules {
		if mod.Name == name {
			return mod, nil
		}
	}
	return nil, fmt.Errorf("metadata: module %q not found", name)
}

// Constant looks up one of the module's constant descriptors by name.
func (m *ModuleMetadata) Constant(name string) (*ConstantMetadata, error) {
	c, ok := m.Constants[name]
	if !ok {
		return nil, fmt.Errorf("metadata: constant %s.%s not found", m.Name, name)
	}
	return c, nil
}

// ConstantMetadata is a module-level constant: its declared type name and
// raw SCALE-encoded value.
type ConstantMetadata struct {
	Name          string
	Type          string
	Value         []byte
	Documentation []string
}

// CallMetadata is one dispatchable extrinsic call's argument grammar.
type CallMetadata struct {
	Index         uint8
	Name          string
	Arguments     []ArgumentMeta
	Documentation []string
}

// EventMetadata is one pallet event variant's argument grammar.
type EventMetadata struct {
	Index         uint8
	Name          string
	Arguments     []ArgumentMeta
	Documentation []string
}

// StorageEntryModifier tags whether a storage entry is always present
// (Default) or may be absent (Optional).
type StorageEntryModifier uint8

const (
	StorageEntryModifierOptional StorageEntryModifier = iota
	StorageEntryModifierDefault
)

// StorageEntryKind discriminates the shape of a storage entry's key.
type StorageEntryKind uint8

const (
	StorageEntryPlain StorageEntryKind = iota
	StorageEntryMap
	StorageEntryDoubleMap
)

// StorageMetadata describes one storage item: its module/storage prefix
// (the two Twox128 preimages that make up its key), its hashing scheme,
// and the type names of its key(s) and value.
type StorageMetadata struct {
	ModulePrefix  string
	StoragePrefix string
	Modifier      StorageEntryModifier
	Kind          StorageEntryKind
	Hashers       []StorageHasher // len 1 for Map, len 2 for DoubleMap, empty for Plain
	KeyTypes      []string        // len 1 for Map, len 2 for DoubleMap, empty for Plain
	ValueType     string
	Default       []byte
}
