// Package ir defines the compiler's intermediate representation.
//
// One Module exists per compilation unit and serves both pipeline stages:
// the AST lowering engine populates it with contract containers, and the
// target lowering pass rewrites it in place into a flat, function-based
// low-level program. Containers (contracts and nested objects) are
// transient: target lowering relocates their bodies into functions and
// destroys the emptied containers as one step, so a body is never reachable
// from two owners at once.
package ir

import (
	"strings"

	"mica/internal/source"
)

// ValueID names the single-assignment result of one defining operation.
// IDs are allocated module-wide by the builder and never reused.
type ValueID int32

// NoValueID marks the absence of a value.
const NoValueID ValueID = -1

// BlockID indexes a block within its owning body.
type BlockID int32

// NoBlockID marks the absence of a block.
const NoBlockID BlockID = -1

// Context is the execution phase a region belongs to. It is stamped on
// object containers at construction time (from the "_deployed" name tag)
// and on functions when the target lowering pass synthesizes them; it is
// never changed afterwards.
type Context uint8

const (
	// ContextNone marks code with no stamped phase (ordinary contract
	// functions and the dispatching entry function).
	ContextNone Context = iota
	// ContextCreation is deploy-time code: runs once, at deployment.
	ContextCreation
	// ContextRuntime is the deployed code: runs on every subsequent call.
	ContextRuntime
)

func (c Context) String() string {
	switch c {
	case ContextCreation:
		return "creation"
	case ContextRuntime:
		return "runtime"
	}
	return "none"
}

// DeployedSuffix tags the nested object holding a contract's runtime code.
const DeployedSuffix = "_deployed"

// Linkage controls the visibility of a function or global.
type Linkage uint8

const (
	LinkageExternal Linkage = iota
	LinkagePrivate
)

// Module is the root container. It owns all functions, globals, and
// (pre-lowering) contract and object containers.
type Module struct {
	Name      string
	Funcs     []*Func
	Globals   []*Global
	Contracts []*Contract
	Objects   []*Object

	nextValue ValueID
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewValue allocates a fresh SSA value ID.
func (m *Module) NewValue() ValueID {
	id := m.nextValue
	m.nextValue++
	return id
}

// FindFunc returns the function with the given name, or nil.
func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindGlobal returns the global with the given name, or nil.
func (m *Module) FindGlobal(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Contract is a transient container holding the functions of one source
// contract. The target lowering pass moves its functions into the module
// and destroys the empty container.
type Contract struct {
	Name  string
	Funcs []*Func
	Span  source.Span
}

// Object is a deployable code region. The outer object holds creation-time
// code; its single optional child, tagged with DeployedSuffix, holds the
// runtime code. At most one level of nesting.
type Object struct {
	Name    string
	Context Context
	Blocks  []*Block
	Child   *Object
	Span    source.Span
}

// NewObject creates an object container with its execution context stamped
// from the name tag.
func NewObject(name string) *Object {
	ctx := ContextCreation
	if strings.HasSuffix(name, DeployedSuffix) {
		ctx = ContextRuntime
	}
	return &Object{Name: name, Context: ctx}
}

// DetachBlocks transfers ownership of the object's body to the caller.
func (o *Object) DetachBlocks() []*Block {
	blocks := o.Blocks
	o.Blocks = nil
	return blocks
}

// Param is one typed function parameter; Value is the SSA value the
// argument is visible as inside the body.
type Param struct {
	Type  TypeID
	Value ValueID
	Span  source.Span
}

// Func is a named, typed unit with a body of basic blocks in
// single-assignment form. A function with Declared set has no body: it is
// an external symbol such as the target's return intrinsic.
type Func struct {
	Name     string
	Params   []Param
	Results  []TypeID // 0 or 1
	Blocks   []*Block
	Linkage  Linkage
	Context  Context
	Declared bool
	Span     source.Span
}

// Entry returns the function's entry block, or nil for declarations.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block is an ordered sequence of operations ending in exactly one
// terminator.
type Block struct {
	Instrs []Instr
	Term   Terminator
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// GlobalInit enumerates global-slot initializers.
type GlobalInit uint8

const (
	// InitNone leaves the slot uninitialized.
	InitNone GlobalInit = iota
	// InitZero zero-fills the slot (scalar zero or all-zero array).
	InitZero
)

// Global is a named, module-scoped storage slot with a fixed address-space
// tag. Created at most once per module per name.
type Global struct {
	Name    string
	Type    TypeID
	Space   AddrSpace
	Align   uint32
	Linkage Linkage
	Init    GlobalInit
}
