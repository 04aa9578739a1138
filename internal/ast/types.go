package ast

import "fmt"

// TypeKind enumerates the source-type kinds the backend understands.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	// TypeInteger is a fixed-width signed or unsigned integer.
	TypeInteger
	// TypeRational is a compile-time rational-number literal type. Integral
	// rationals carry their underlying integer representation in Bits/Signed.
	TypeRational
)

// Type is the annotated source type of an expression or declaration.
// Values are comparable; two expressions have the same type exactly when
// their Type values are equal.
type Type struct {
	Kind   TypeKind
	Bits   uint32
	Signed bool
	// Fractional marks a rational that has no integer representation.
	Fractional bool
}

// IntType builds a fixed-width integer type.
func IntType(bits uint32, signed bool) Type {
	return Type{Kind: TypeInteger, Bits: bits, Signed: signed}
}

// RationalType builds an integral rational type with the given underlying
// integer representation.
func RationalType(bits uint32, signed bool) Type {
	return Type{Kind: TypeRational, Bits: bits, Signed: signed}
}

// IntegerRepr returns the integer representation of the type: the type
// itself for integers, the underlying integer for integral rationals.
// Reports false for fractional rationals and non-numeric types.
func (t Type) IntegerRepr() (Type, bool) {
	switch t.Kind {
	case TypeInteger:
		return t, true
	case TypeRational:
		if t.Fractional {
			return Type{}, false
		}
		return Type{Kind: TypeInteger, Bits: t.Bits, Signed: t.Signed}, true
	}
	return Type{}, false
}

func (t Type) String() string {
	switch t.Kind {
	case TypeInteger:
		if t.Signed {
			return fmt.Sprintf("int%d", t.Bits)
		}
		return fmt.Sprintf("uint%d", t.Bits)
	case TypeRational:
		if t.Fractional {
			return "rational(fractional)"
		}
		return fmt.Sprintf("rational(%s)", Type{Kind: TypeInteger, Bits: t.Bits, Signed: t.Signed})
	}
	return "invalid"
}
