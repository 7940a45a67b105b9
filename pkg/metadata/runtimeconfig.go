package metadata

import (
	"encoding/binary"
	"fmt"
)

// resolveRuntimeConfig fills in RuntimeConfig from the Babe, Staking and
// System module constants: epoch/era durations are derived, not stored
// directly on chain.
func (m *Metadata) resolveRuntimeConfig() error {
	babe, err := m.Module("Babe")
	if err != nil {
		return err
	}
	expectedBlockTimeMillis, err := constantU64(babe, "ExpectedBlockTime")
	if err != nil {
		return err
	}
	epochDurationBlocks, err := constantU64(babe, "EpochDuration")
	if err != nil {
		return err
	}

	staking, err := m.Module("Staking")
	if err != nil {
		return err
	}
	sessionsPerEra, err := constantU32(staking, "SessionsPerEra")
	if err != nil {
		return err
	}
	maxNominations, err := constantU32(staking, "MaxNominations")
	if err != nil {
		return err
	}

	system, err := m.Module("System")
	if err != nil {
		return err
	}
	versionConst, err := system.Constant("Version")
	if err != nil {
		return err
	}
	specName, specVersion, txVersion, err := decodeRuntimeVersion(versionConst.Value)
	if err != nil {
		return fmt.Errorf("metadata: decoding System.Version: %w", err)
	}

	epochDurationMillis := epochDurationBlocks * expectedBlockTimeMillis
	eraDurationBlocks := epochDurationBlocks * uint64(sessionsPerEra)
	eraDurationMillis := eraDurationBlocks * expectedBlockTimeMillis

	m.RuntimeConfig = RuntimeConfig{
		ExpectedBlockTimeMillis: expectedBlockTimeMillis,
		EpochDurationBlocks:     epochDurationBlocks,
		EpochDurationMillis:     epochDurationMillis,
		SessionsPerEra:          sessionsPerEra,
		MaxNominations:          maxNominations,
		EraDurationBlocks:       eraDurationBlocks,
		EraDurationMillis:       eraDurationMillis,
		SpecName:                specName,
		SpecVersion:             specVersion,
		TransactionVersion:      txVersion,
	}
	return nil
}

// constantU64 decodes a module constant encoded as a fixed 8-byte
// little-endian integer, the SCALE encoding of a plain u64 (not a
// compact integer -- constant values are the concrete Rust type's
// Encode() output).
func constantU64(m *ModuleMetadata, name string) (uint64, error) {
	c, err := m.Constant(name)
	if err != nil {
		return 0, err
	}
	if len(c.Value) < 8 {
		return 0, fmt.Errorf("metadata: constant %s.%s: short value", m.Name, name)
	}
	return binary.LittleEndian.Uint64(c.Value[:8]), nil
}

func constantU32(m *ModuleMetadata, name string) (uint32, error) {
	c, err := m.Constant(name)
	if err != nil {
		return 0, err
	}
	if len(c.Value) < 4 {
		return 0, fmt.Errorf("metadata: constant %s.%s: short value", m.Name, name)
	}
	return binary.LittleEndian.Uint32(c.Value[:4]), nil
}

// decodeRuntimeVersion decodes the leading spec_name, spec_version and
// transaction_version fields of an encoded RuntimeVersion. The `apis`
// field between spec_version and transaction_version is itself
// variable-length, so it must be walked (not skipped) to reach
// transaction_version.
func decodeRuntimeVersion(raw []byte) (string, uint32, uint32, error) {
	d := newRawDecoder(raw)
	specName, err := d.readString()
	if err != nil {
		return "", 0, 0, err
	}
	if _, err = d.readString(); err != nil { // impl_name
		return "", 0, 0, err
	}
	if _, err = d.readU32(); err != nil { // authoring_version
		return "", 0, 0, err
	}
	specVersionRaw, err := d.readU32()
	if err != nil {
		return "", 0, 0, err
	}
	if _, err = d.readU32(); err != nil { // impl_version
		return "", 0, 0, err
	}
	apiCount, err := d.readCompact()
	if err != nil {
		return "", 0, 0, err
	}
	for i := uint64(0); i < apiCount; i++ {
		if _, err = d.readBytes(8); err != nil { // ApiId
			return "", 0, 0, err
		}
		if _, err = d.readU32(); err != nil { // api version
			return "", 0, 0, err
		}
	}
	txVersion, err := d.readU32()
	if err != nil {
		return "", 0, 0, err
	}
	return specName, specVersionRaw, txVersion, nil
}
