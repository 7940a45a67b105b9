package scale

import "github.com/subvt-network/subvt/pkg/metadata"

// CheckEventPrimitiveArgumentSupport walks every event argument's
// primitive names across the whole module table and attempts a decode
// against an empty buffer, so the only possible failure is
// UnknownPrimitiveTypeError rather than a short read. It's a boot-time
// sanity check: if the connected runtime introduced an event argument
// primitive this package's dispatch table doesn't know, fail fast
// instead of silently mis-decoding later.
func CheckEventPrimitiveArgumentSupport(md *metadata.Metadata) error {
	seen := map[string]bool{}
	for _, module := range md.Modules {
		for _, event := range module.Events {
			for _, arg := range event.Arguments {
				collectPrimitiveNames(arg, seen)
			}
		}
	}
	for name := range seen {
		_, err := DecodePrimitive(name, NewDecoder(nil))
		if err == nil {
			continue
		}
		if IsUnknownPrimitiveType(err) {
			return err
		}
		// any other error (e.g. short read against the empty probe
		// buffer) means the name itself is recognized.
	}
	return nil
}

func collectPrimitiveNames(arg metadata.ArgumentMeta, seen map[string]bool) {
	switch arg.Kind {
	case metadata.ArgumentMetaPrimitive:
		seen[arg.Primitive] = true
	case metadata.ArgumentMetaVec, metadata.ArgumentMetaOption:
		collectPrimitiveNames(*arg.Elem, seen)
	case metadata.ArgumentMetaTuple:
		for _, t := range arg.Tuple {
			collectPrimitiveNames(t, seen)
		}
	}
}
