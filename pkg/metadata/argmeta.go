package metadata

import (
	"fmt"
	"strings"
)

// ArgumentMetaKind discriminates the shape of an ArgumentMeta node.
type ArgumentMetaKind uint8

const (
	ArgumentMetaPrimitive ArgumentMetaKind = iota
	ArgumentMetaVec
	ArgumentMetaTuple
	ArgumentMetaOption
)

// ArgumentMeta is a naive representation of a call/event argument's type,
// just rich enough for pkg/scale to compute how many bytes to consume
// without a concrete type for every runtime. Mirrors the
// closed grammar: a primitive type name, Vec<T>, (T1, T2, ...), or
// Option<T>.
type ArgumentMeta struct {
	Kind      ArgumentMetaKind
	Primitive string         // ArgumentMetaPrimitive only
	Elem      *ArgumentMeta  // ArgumentMetaVec, ArgumentMetaOption
	Tuple     []ArgumentMeta // ArgumentMetaTuple only
}

// String renders the grammar back to its on-chain textual form, the
// inverse of ParseArgumentMeta.
func (a ArgumentMeta) String() string {
	switch a.Kind {
	case ArgumentMetaPrimitive:
		return a.Primitive
	case ArgumentMetaVec:
		return fmt.Sprintf("Vec<%s>", a.Elem.String())
	case ArgumentMetaOption:
		return fmt.Sprintf("Option<%s>", a.Elem.String())
	case ArgumentMetaTuple:
		parts := make([]string, len(a.Tuple))
		for i, t := range a.Tuple {
			parts[i] = t.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return ""
	}
}

// ParseArgumentMeta parses a metadata type-name string, e.g.
// "Vec<AccountId>", "Option<Balance>", "(AccountId, Balance)", into the
// recursive ArgumentMeta grammar. Unparenthesized, non-Vec/Option names
// fall through to ArgumentMetaPrimitive.
func ParseArgumentMeta(s string) (ArgumentMeta, error) {
	switch {
	case strings.HasPrefix(s, "Vec<"):
		if !strings.HasSuffix(s, ">") {
			return ArgumentMeta{}, fmt.Errorf("metadata: %q: expected closing `>` for Vec", s)
		}
		elem, err := ParseArgumentMeta(s[4 : len(s)-1])
		if err != nil {
			return ArgumentMeta{}, err
		}
		return ArgumentMeta{Kind: ArgumentMetaVec, Elem: &elem}, nil
	case strings.HasPrefix(s, "Option<"):
		if !strings.HasSuffix(s, ">") {
			return ArgumentMeta{}, fmt.Errorf("metadata: %q: expected closing `>` for Option", s)
		}
		elem, err := ParseArgumentMeta(s[7 : len(s)-1])
		if err != nil {
			return ArgumentMeta{}, err
		}
		return ArgumentMeta{Kind: ArgumentMetaOption, Elem: &elem}, nil
	case strings.HasPrefix(s, "("):
		if !strings.HasSuffix(s, ")") {
			return ArgumentMeta{}, fmt.Errorf("metadata: %q: expected closing `)` for tuple", s)
		}
		inner := s[1 : len(s)-1]
		if strings.TrimSpace(inner) == "" {
			return ArgumentMeta{Kind: ArgumentMetaTuple}, nil
		}
		var tuple []ArgumentMeta
		for _, part := range splitTupleArgs(inner) {
			arg, err := ParseArgumentMeta(strings.TrimSpace(part))
			if err != nil {
				return ArgumentMeta{}, err
			}
			tuple = append(tuple, arg)
		}
		return ArgumentMeta{Kind: ArgumentMetaTuple, Tuple: tuple}, nil
	default:
		return ArgumentMeta{Kind: ArgumentMetaPrimitive, Primitive: s}, nil
	}
}

// splitTupleArgs splits a tuple's inner type list on top-level commas,
// respecting nested angle brackets and parens (so "Vec<(A, B)>, C" splits
// into two elements, not three).
func splitTupleArgs(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
