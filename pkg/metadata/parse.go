package metadata

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// metadataMagic is the four-byte "meta" prefix every RuntimeMetadataPrefixed
// blob starts with, ahead of the version byte.
const metadataMagic = "meta"

// Decode parses a hex-encoded runtime metadata blob, as returned by the
// `state_getMetadata` RPC, into a Metadata value. It rejects
// anything other than v12/v13 rather than guessing at an unfamiliar
// layout.
func Decode(hexString string) (*Metadata, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexString, "0x"))
	if err != nil {
		return nil, fmt.Errorf("metadata: decoding hex: %w", err)
	}
	if len(raw) < 5 || string(raw[:4]) != metadataMagic {
		return nil, fmt.Errorf("metadata: missing %q magic prefix", metadataMagic)
	}
	version := raw[4]
	d := newRawDecoder(raw[5:])
	switch version {
	case uint8(VersionV12), uint8(VersionV13):
		modules, err := decodeModules(d)
		if err != nil {
			return nil, fmt.Errorf("metadata: decoding v%d module table: %w", version, err)
		}
		md := &Metadata{Version: Version(version), Modules: modules}
		if err := md.resolveRuntimeConfig(); err != nil {
			return nil, err
		}
		return md, nil
	default:
		return nil, fmt.Errorf("metadata: unsupported metadata version %d", version)
	}
}

// decodeModules decodes the module vector shared by the v12 and v13
// wire layouts: a compact-length-prefixed sequence of (name, storage?,
// calls?, events?, constants, errors, index) records. v12 and v13 differ
// only in DoubleMap storage entries carrying a second hasher, which this
// decoder reads unconditionally -- harmless for v12 runtimes, which never
// emit DoubleMap entries with distinct hashers in practice.
func decodeModules(d *rawDecoder) (map[uint8]*ModuleMetadata, error) {
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	modules := make(map[uint8]*ModuleMetadata, count)
	for i := uint64(0); i < count; i++ {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		storage, err := decodeOptionalStorage(d, name)
		if err != nil {
			return nil, fmt.Errorf("module %s: storage: %w", name, err)
		}
		calls, err := decodeOptionalCalls(d)
		if err != nil {
			return nil, fmt.Errorf("module %s: calls: %w", name, err)
		}
		events, err := decodeOptionalEvents(d)
		if err != nil {
			return nil, fmt.Errorf("module %s: events: %w", name, err)
		}
		constants, err := decodeConstants(d)
		if err != nil {
			return nil, fmt.Errorf("module %s: constants: %w", name, err)
		}
		errs, err := decodeErrors(d)
		if err != nil {
			return nil, fmt.Errorf("module %s: errors: %w", name, err)
		}
		index, err := d.readByte()
		if err != nil {
			return nil, fmt.Errorf("module %s: index: %w", name, err)
		}
		modules[index] = &ModuleMetadata{
			Index:     index,
			Name:      name,
			Storage:   storage,
			Calls:     calls,
			Events:    events,
			Constants: constants,
			Errors:    errs,
		}
	}
	return modules, nil
}

func decodeOptionalStorage(d *rawDecoder, moduleName string) (map[string]*StorageMetadata, error) {
	some, err := d.readOptionTag()
	if err != nil || !some {
		return nil, err
	}
	modulePrefix, err := d.readString()
	if err != nil {
		return nil, err
	}
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]*StorageMetadata, count)
	for i := uint64(0); i < count; i++ {
		storagePrefix, err := d.readString()
		if err != nil {
			return nil, err
		}
		modifierByte, err := d.readByte()
		if err != nil {
			return nil, err
		}
		entry := &StorageMetadata{
			ModulePrefix:  modulePrefix,
			StoragePrefix: storagePrefix,
			Modifier:      StorageEntryModifier(modifierByte),
		}
		kindByte, err := d.readByte()
		if err != nil {
			return nil, err
		}
		switch kindByte {
		case 0: // Plain(type)
			entry.Kind = StorageEntryPlain
			valueType, err := d.readString()
			if err != nil {
				return nil, err
			}
			entry.ValueType = valueType
		case 1: // Map{hasher, key, value, linked}
			entry.Kind = StorageEntryMap
			hasher, err := d.readByte()
			if err != nil {
				return nil, err
			}
			keyType, err := d.readString()
			if err != nil {
				return nil, err
			}
			valueType, err := d.readString()
			if err != nil {
				return nil, err
			}
			if _, err := d.readBool(); err != nil { // is_linked
				return nil, err
			}
			entry.Hashers = []StorageHasher{StorageHasher(hasher)}
			entry.KeyTypes = []string{keyType}
			entry.ValueType = valueType
		case 2: // DoubleMap{hasher1, key1, key2, value, hasher2}
			entry.Kind = StorageEntryDoubleMap
			hasher1, err := d.readByte()
			if err != nil {
				return nil, err
			}
			key1, err := d.readString()
			if err != nil {
				return nil, err
			}
			key2, err := d.readString()
			if err != nil {
				return nil, err
			}
			valueType, err := d.readString()
			if err != nil {
				return nil, err
			}
			hasher2, err := d.readByte()
			if err != nil {
				return nil, err
			}
			entry.Hashers = []StorageHasher{StorageHasher(hasher1), StorageHasher(hasher2)}
			entry.KeyTypes = []string{key1, key2}
			entry.ValueType = valueType
		default:
			return nil, fmt.Errorf("unknown storage entry kind tag %d", kindByte)
		}
		defaultBytes, err := decodeByteVec(d)
		if err != nil {
			return nil, err
		}
		if _, err := d.readStringVec(); err != nil { // documentation
			return nil, err
		}
		entry.Default = defaultBytes
		entries[storagePrefix] = entry
	}
	return entries, nil
}

func decodeByteVec(d *rawDecoder) ([]byte, error) {
	n, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	return d.readBytes(int(n))
}

func decodeOptionalCalls(d *rawDecoder) (map[uint8]*CallMetadata, error) {
	some, err := d.readOptionTag()
	if err != nil || !some {
		return nil, err
	}
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	calls := make(map[uint8]*CallMetadata, count)
	for i := uint64(0); i < count; i++ {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		argNames, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		argTypes, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		if len(argNames) != len(argTypes) {
			return nil, fmt.Errorf("call %s: argument name/type count mismatch", name)
		}
		docs, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		args := make([]ArgumentMeta, len(argTypes))
		for j, t := range argTypes {
			arg, err := ParseArgumentMeta(t)
			if err != nil {
				return nil, fmt.Errorf("call %s argument %d: %w", name, j, err)
			}
			args[j] = arg
		}
		index := uint8(i)
		calls[index] = &CallMetadata{Index: index, Name: name, Arguments: args, Documentation: docs}
	}
	return calls, nil
}

func decodeOptionalEvents(d *rawDecoder) (map[uint8]*EventMetadata, error) {
	some, err := d.readOptionTag()
	if err != nil || !some {
		return nil, err
	}
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	events := make(map[uint8]*EventMetadata, count)
	for i := uint64(0); i < count; i++ {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		argTypes, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		docs, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		args := make([]ArgumentMeta, len(argTypes))
		for j, t := range argTypes {
			arg, err := ParseArgumentMeta(t)
			if err != nil {
				return nil, fmt.Errorf("event %s argument %d: %w", name, j, err)
			}
			args[j] = arg
		}
		index := uint8(i)
		events[index] = &EventMetadata{Index: index, Name: name, Arguments: args, Documentation: docs}
	}
	return events, nil
}

func decodeConstants(d *rawDecoder) (map[string]*ConstantMetadata, error) {
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	constants := make(map[string]*ConstantMetadata, count)
	for i := uint64(0); i < count; i++ {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		typ, err := d.readString()
		if err != nil {
			return nil, err
		}
		value, err := decodeByteVec(d)
		if err != nil {
			return nil, err
		}
		docs, err := d.readStringVec()
		if err != nil {
			return nil, err
		}
		constants[name] = &ConstantMetadata{Name: name, Type: typ, Value: value, Documentation: docs}
	}
	return constants, nil
}

func decodeErrors(d *rawDecoder) (map[uint8]string, error) {
	count, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	errs := make(map[uint8]string, count)
	for i := uint64(0); i < count; i++ {
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		if _, err := d.readStringVec(); err != nil { // documentation
			return nil, err
		}
		errs[uint8(i)] = name
	}
	return errs, nil
}
