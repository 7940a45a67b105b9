package scale

import (
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
)

// Argument is a decoded call or event argument, shaped by the
// ArgumentMeta that drove its decode: Value holds the concrete Go value
// for a Primitive, []Argument for Vec/Tuple, or *Argument (nil if None)
// for Option.
type Argument struct {
	Meta  metadata.ArgumentMeta
	Value interface{}
}

// Decode decodes one argument off d according to meta.
func Decode(meta metadata.ArgumentMeta, d *Decoder) (Argument, error) {
	switch meta.Kind {
	case metadata.ArgumentMetaPrimitive:
		v, err := DecodePrimitive(meta.Primitive, d)
		if err != nil {
			return Argument{}, err
		}
		return Argument{Meta: meta, Value: v}, nil
	case metadata.ArgumentMetaVec:
		n, err := d.DecodeCompact()
		if err != nil {
			return Argument{}, fmt.Errorf("scale: decoding Vec length: %w", err)
		}
		items := make([]Argument, n)
		for i := range items {
			item, err := Decode(*meta.Elem, d)
			if err != nil {
				return Argument{}, fmt.Errorf("scale: decoding Vec item %d: %w", i, err)
			}
			items[i] = item
		}
		return Argument{Meta: meta, Value: items}, nil
	case metadata.ArgumentMetaTuple:
		items := make([]Argument, len(meta.Tuple))
		for i, elemMeta := range meta.Tuple {
			item, err := Decode(elemMeta, d)
			if err != nil {
				return Argument{}, fmt.Errorf("scale: decoding tuple element %d: %w", i, err)
			}
			items[i] = item
		}
		return Argument{Meta: meta, Value: items}, nil
	case metadata.ArgumentMetaOption:
		present, err := d.DecodeOptionTag()
		if err != nil {
			return Argument{}, err
		}
		if !present {
			return Argument{Meta: meta, Value: (*Argument)(nil)}, nil
		}
		inner, err := Decode(*meta.Elem, d)
		if err != nil {
			return Argument{}, fmt.Errorf("scale: decoding Option payload: %w", err)
		}
		return Argument{Meta: meta, Value: &inner}, nil
	default:
		return Argument{}, fmt.Errorf("scale: unknown ArgumentMeta kind %d", meta.Kind)
	}
}
