package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of IR types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindInt is a fixed-width integer.
	KindInt
	// KindPtr is a pointer into one address space.
	KindPtr
	// KindArray is a fixed-length array.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInt:
		return "int"
	case KindPtr:
		return "ptr"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// AddrSpace tags pointers and globals with the memory region they reference.
// The tag constrains alignment and legal operations; casts between address
// spaces are never implicit.
type AddrSpace uint8

const (
	AddrSpaceStack AddrSpace = iota
	AddrSpaceHeap
	AddrSpaceHeapAux
	AddrSpaceGeneric
	AddrSpaceCode
	AddrSpaceStorage
)

func (a AddrSpace) String() string {
	switch a {
	case AddrSpaceStack:
		return "stack"
	case AddrSpaceHeap:
		return "heap"
	case AddrSpaceHeapAux:
		return "heap_aux"
	case AddrSpaceGeneric:
		return "generic"
	case AddrSpaceCode:
		return "code"
	case AddrSpaceStorage:
		return "storage"
	default:
		return fmt.Sprintf("AddrSpace(%d)", uint8(a))
	}
}

// WordBits is the EraVM machine word width in bits.
const WordBits = 256

// Type is a structural type descriptor.
type Type struct {
	Kind  Kind
	Bits  uint32    // KindInt
	Space AddrSpace // KindPtr
	Elem  TypeID    // KindArray
	Len   uint32    // KindArray
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types []Type
	index map[Type]TypeID
	word  TypeID
	boolT TypeID
}

// NewInterner constructs an interner seeded with the word and bool types.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 16),
	}
	in.internRaw(Type{Kind: KindInvalid}) // reserve 0 as NoTypeID
	in.word = in.Int(WordBits)
	in.boolT = in.Int(1)
	return in
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Int interns a fixed-width integer type.
func (in *Interner) Int(bits uint32) TypeID {
	return in.Intern(Type{Kind: KindInt, Bits: bits})
}

// Word returns the machine word type (i256).
func (in *Interner) Word() TypeID {
	return in.word
}

// Bool returns the single-bit integer type.
func (in *Interner) Bool() TypeID {
	return in.boolT
}

// Ptr interns a pointer type into the given address space.
func (in *Interner) Ptr(space AddrSpace) TypeID {
	return in.Intern(Type{Kind: KindPtr, Space: space})
}

// Array interns a fixed-length array type.
func (in *Interner) Array(elem TypeID, n uint32) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem, Len: n})
}

// Count reports how many descriptors are interned, the reserved NoTypeID
// slot included.
func (in *Interner) Count() int {
	return len(in.types)
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("ir: invalid TypeID")
	}
	return tt
}

// String renders a type for dumps and error messages.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	switch tt.Kind {
	case KindInt:
		return fmt.Sprintf("i%d", tt.Bits)
	case KindPtr:
		return fmt.Sprintf("ptr(%s)", tt.Space)
	case KindArray:
		return fmt.Sprintf("[%d x %s]", tt.Len, in.String(tt.Elem))
	}
	return "invalid"
}

// AlignFor returns the alignment implied by an address space: stack-resident
// scalars are word-aligned, everything else is byte-aligned.
func AlignFor(space AddrSpace) uint32 {
	if space == AddrSpaceStack {
		return WordBits / 8
	}
	return 1
}
