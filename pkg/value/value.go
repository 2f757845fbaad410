// Package value implements UnDAG's tagged value union: every variable
// binding is either a string or a signed 64-bit integer, with conversions
// between the two made explicit at each call site rather than coerced
// implicitly.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindStr Kind = iota
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindStr:
		return "string"
	case KindInt:
		return "integer"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for both variants.
type Value interface {
	Kind() Kind
	// String renders the canonical string form used by print/println,
	// concat, and the Str-coercion side of arithmetic.
	String() string
}

// Str is the string variant.
type Str string

func (v Str) Kind() Kind    { return KindStr }
func (v Str) String() string { return string(v) }

// Int is the signed 64-bit integer variant.
type Int int64

func (v Int) Kind() Kind    { return KindInt }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Equal reports value equality: same variant and same content. Spec §4.4's
// eq/match rely on this definition, not on Go's == over the interface,
// because two differently-typed Values must never compare equal even if
// their textual forms coincide (Str("1") != Int(1)).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	default:
		return false
	}
}

// AsInt coerces a Value to an integer for arithmetic/comparison per spec
// §4.4: an Int is used directly, a Str is parsed as signed decimal, and
// anything else (there is nothing else) is a TypeError for the caller to
// construct with commit context.
func AsInt(v Value) (int64, error) {
	switch vv := v.(type) {
	case Int:
		return int64(vv), nil
	case Str:
		n, err := strconv.ParseInt(string(vv), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not integer-coercible: %w", string(vv), err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("value of kind %s is not integer-coercible", v.Kind())
	}
}
