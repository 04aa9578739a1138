package ir

import (
	"math/big"

	"mica/internal/source"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrConst materializes an integer constant.
	InstrConst InstrKind = iota
	// InstrAlloca reserves one stack-resident storage slot.
	InstrAlloca
	// InstrLoad reads from a pointer.
	InstrLoad
	// InstrStore writes to a pointer.
	InstrStore
	// InstrBin is an integer binary operation.
	InstrBin
	// InstrCmp is an integer comparison.
	InstrCmp
	// InstrCast converts between integer widths or between pointers and
	// integers. Address-space changes are never implicit.
	InstrCast
	// InstrGEP computes an element address from a base pointer.
	InstrGEP
	// InstrAddrOf takes the address of a global slot.
	InstrAddrOf
	// InstrCall calls a function by name.
	InstrCall
)

// Instr is an instruction variant. Result is the SSA value it defines
// (NoValueID for stores) and Type the value's type.
type Instr struct {
	Kind   InstrKind
	Result ValueID
	Type   TypeID
	Span   source.Span

	Const  ConstInstr
	Alloca AllocaInstr
	Load   LoadInstr
	Store  StoreInstr
	Bin    BinInstr
	Cmp    CmpInstr
	Cast   CastInstr
	GEP    GEPInstr
	AddrOf AddrOfInstr
	Call   CallInstr
}

// ConstInstr holds the constant's value; the width lives in Instr.Type.
type ConstInstr struct {
	Value *big.Int
}

// AllocaInstr reserves a slot of the element type; the result is a
// stack-space pointer.
type AllocaInstr struct {
	Elem TypeID
}

// LoadInstr reads a value of Instr.Type through Addr.
type LoadInstr struct {
	Addr  ValueID
	Space AddrSpace
	Align uint32
}

// StoreInstr writes Value through Addr.
type StoreInstr struct {
	Value ValueID
	Addr  ValueID
	Space AddrSpace
	Align uint32
}

// BinOp enumerates integer binary operators.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinMul
	BinAnd
	BinLShr
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinMul:
		return "mul"
	case BinAnd:
		return "and"
	case BinLShr:
		return "lshr"
	}
	return "?"
}

// BinInstr applies Op to Left and Right; both operands and the result share
// Instr.Type.
type BinInstr struct {
	Op    BinOp
	Left  ValueID
	Right ValueID
}

// CmpPred enumerates comparison predicates.
type CmpPred uint8

const (
	CmpEq CmpPred = iota
)

func (p CmpPred) String() string {
	switch p {
	case CmpEq:
		return "eq"
	}
	return "?"
}

// CmpInstr compares Left and Right; the result is i1.
type CmpInstr struct {
	Pred  CmpPred
	Left  ValueID
	Right ValueID
}

// CastOp enumerates cast operators.
type CastOp uint8

const (
	// CastSExt sign-extends to a wider integer.
	CastSExt CastOp = iota
	// CastZExt zero-extends to a wider integer.
	CastZExt
	// CastPtrToInt reinterprets a pointer as a word.
	CastPtrToInt
	// CastIntToPtr reinterprets a word as a pointer into the address space
	// carried by Instr.Type.
	CastIntToPtr
)

func (op CastOp) String() string {
	switch op {
	case CastSExt:
		return "sext"
	case CastZExt:
		return "zext"
	case CastPtrToInt:
		return "ptrtoint"
	case CastIntToPtr:
		return "inttoptr"
	}
	return "?"
}

// CastInstr converts Value to Instr.Type.
type CastInstr struct {
	Op    CastOp
	Value ValueID
}

// GEPInstr computes Base advanced by Index elements of Elem; the result is
// a pointer in Base's address space.
type GEPInstr struct {
	Base  ValueID
	Elem  TypeID
	Index ValueID
}

// AddrOfInstr produces the address of the named global; the result is a
// pointer in the global's address space.
type AddrOfInstr struct {
	Global string
}

// CallInstr calls Callee; HasResult is set when the callee returns a value.
type CallInstr struct {
	Callee    string
	Args      []ValueID
	HasResult bool
}

// TermKind enumerates block terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	// TermReturn returns from the enclosing function.
	TermReturn
	// TermBr branches unconditionally.
	TermBr
	// TermCondBr branches on an i1 condition.
	TermCondBr
	// TermUnreachable marks a point control never reaches.
	TermUnreachable
	// TermSolReturn is the high-level contract return (offset, length).
	// It exists only pre-lowering; the target pass rewrites it into the
	// return-intrinsic call sequence.
	TermSolReturn
)

// Terminator ends a basic block. No operation may follow it.
type Terminator struct {
	Kind TermKind
	Span source.Span

	Return    ReturnTerm
	Br        BrTerm
	CondBr    CondBrTerm
	SolReturn SolReturnTerm
}

// ReturnTerm optionally carries the single returned value.
type ReturnTerm struct {
	HasValue bool
	Value    ValueID
}

// BrTerm jumps to Target within the same body.
type BrTerm struct {
	Target BlockID
}

// CondBrTerm branches to Then when Cond is 1, else to Else.
type CondBrTerm struct {
	Cond ValueID
	Then BlockID
	Else BlockID
}

// SolReturnTerm carries the high-level return's offset and length.
type SolReturnTerm struct {
	Offset ValueID
	Length ValueID
}
