package ir

import (
	"math/big"

	"mica/internal/diag"
	"mica/internal/source"
)

// Builder constructs well-formed IR fragments at a single insertion cursor.
// The cursor names the body being built (a function or an object container)
// and the block instructions are appended to. Out-of-order insertions must
// bracket themselves with Guard so the cursor is restored on every exit
// path.
//
// Builder misuse (emitting with no cursor, emitting past a terminator) is a
// defect, not an input error, and panics with an internal-invariant
// diagnostic.
type Builder struct {
	Mod   *Module
	Types *Interner

	fn  *Func
	obj *Object
	blk *Block
}

// NewBuilder creates a builder over mod.
func NewBuilder(mod *Module, types *Interner) *Builder {
	return &Builder{Mod: mod, Types: types}
}

// InsertionGuard snapshots the cursor; Restore puts it back. Use as
// `defer b.Guard().Restore()` around any out-of-order insertion.
type InsertionGuard struct {
	b   *Builder
	fn  *Func
	obj *Object
	blk *Block
}

// Guard snapshots the current cursor.
func (b *Builder) Guard() InsertionGuard {
	return InsertionGuard{b: b, fn: b.fn, obj: b.obj, blk: b.blk}
}

// Restore rewinds the cursor to the snapshot.
func (g InsertionGuard) Restore() {
	g.b.fn = g.fn
	g.b.obj = g.obj
	g.b.blk = g.blk
}

// SetFunc points the cursor at f's last block (or nothing if f is empty).
func (b *Builder) SetFunc(f *Func) {
	b.fn = f
	b.obj = nil
	b.blk = nil
	if n := len(f.Blocks); n > 0 {
		b.blk = f.Blocks[n-1]
	}
}

// SetObject points the cursor at o's last block (or nothing if empty).
func (b *Builder) SetObject(o *Object) {
	b.obj = o
	b.fn = nil
	b.blk = nil
	if n := len(o.Blocks); n > 0 {
		b.blk = o.Blocks[n-1]
	}
}

// SetBlock moves the cursor to the end of blk, which must belong to the
// current body.
func (b *Builder) SetBlock(blk *Block) {
	b.blk = blk
}

// ClearCursor detaches the cursor, e.g. after finishing a body.
func (b *Builder) ClearCursor() {
	b.fn = nil
	b.obj = nil
	b.blk = nil
}

// Block returns the block under the cursor.
func (b *Builder) Block() *Block {
	return b.blk
}

// AppendBlock adds a fresh block to the current body and returns it. The
// cursor is not moved.
func (b *Builder) AppendBlock() (BlockID, *Block) {
	blk := &Block{}
	switch {
	case b.fn != nil:
		b.fn.Blocks = append(b.fn.Blocks, blk)
		return BlockID(len(b.fn.Blocks) - 1), blk
	case b.obj != nil:
		b.obj.Blocks = append(b.obj.Blocks, blk)
		return BlockID(len(b.obj.Blocks) - 1), blk
	}
	panic(diag.Internal("AppendBlock with no body under the cursor"))
}

func (b *Builder) emit(in Instr) ValueID {
	if b.blk == nil {
		panic(diag.Internal("emit with no insertion block"))
	}
	if b.blk.Terminated() {
		panic(diag.Internal("emit into a terminated block"))
	}
	b.blk.Instrs = append(b.blk.Instrs, in)
	return in.Result
}

func (b *Builder) setTerm(t Terminator) {
	if b.blk == nil {
		panic(diag.Internal("terminator with no insertion block"))
	}
	if b.blk.Terminated() {
		panic(diag.Internal("block already terminated"))
	}
	b.blk.Term = t
}

// ConstInt emits a typed integer constant.
func (b *Builder) ConstInt(ty TypeID, v *big.Int, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrConst,
		Result: b.Mod.NewValue(),
		Type:   ty,
		Span:   span,
		Const:  ConstInstr{Value: v},
	})
}

// ConstWord emits a word-typed constant from a uint64.
func (b *Builder) ConstWord(v uint64, span source.Span) ValueID {
	return b.ConstInt(b.Types.Word(), new(big.Int).SetUint64(v), span)
}

// Alloca reserves one stack slot of elem and yields its address.
func (b *Builder) Alloca(elem TypeID, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrAlloca,
		Result: b.Mod.NewValue(),
		Type:   b.Types.Ptr(AddrSpaceStack),
		Span:   span,
		Alloca: AllocaInstr{Elem: elem},
	})
}

// Load reads a value of ty through addr, with the alignment the address
// space implies.
func (b *Builder) Load(addr ValueID, ty TypeID, space AddrSpace, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrLoad,
		Result: b.Mod.NewValue(),
		Type:   ty,
		Span:   span,
		Load:   LoadInstr{Addr: addr, Space: space, Align: AlignFor(space)},
	})
}

// Store writes val through addr, with the alignment the address space
// implies.
func (b *Builder) Store(val, addr ValueID, space AddrSpace, span source.Span) {
	b.emit(Instr{
		Kind:   InstrStore,
		Result: NoValueID,
		Span:   span,
		Store:  StoreInstr{Value: val, Addr: addr, Space: space, Align: AlignFor(space)},
	})
}

// Bin emits a binary operation; operands and result share ty.
func (b *Builder) Bin(op BinOp, ty TypeID, left, right ValueID, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrBin,
		Result: b.Mod.NewValue(),
		Type:   ty,
		Span:   span,
		Bin:    BinInstr{Op: op, Left: left, Right: right},
	})
}

// CmpEq emits an equality comparison yielding i1.
func (b *Builder) CmpEq(left, right ValueID, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrCmp,
		Result: b.Mod.NewValue(),
		Type:   b.Types.Bool(),
		Span:   span,
		Cmp:    CmpInstr{Pred: CmpEq, Left: left, Right: right},
	})
}

// Cast emits a cast of v to ty.
func (b *Builder) Cast(op CastOp, v ValueID, ty TypeID, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrCast,
		Result: b.Mod.NewValue(),
		Type:   ty,
		Span:   span,
		Cast:   CastInstr{Op: op, Value: v},
	})
}

// PtrToInt reinterprets a pointer as a word.
func (b *Builder) PtrToInt(v ValueID, span source.Span) ValueID {
	return b.Cast(CastPtrToInt, v, b.Types.Word(), span)
}

// IntToPtr reinterprets a word as a pointer into space.
func (b *Builder) IntToPtr(v ValueID, space AddrSpace, span source.Span) ValueID {
	return b.Cast(CastIntToPtr, v, b.Types.Ptr(space), span)
}

// GEP advances base by index elements of elem; the result stays in base's
// address space.
func (b *Builder) GEP(base ValueID, elem TypeID, index ValueID, space AddrSpace, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrGEP,
		Result: b.Mod.NewValue(),
		Type:   b.Types.Ptr(space),
		Span:   span,
		GEP:    GEPInstr{Base: base, Elem: elem, Index: index},
	})
}

// AddrOf yields the address of the global slot g.
func (b *Builder) AddrOf(g *Global, span source.Span) ValueID {
	return b.emit(Instr{
		Kind:   InstrAddrOf,
		Result: b.Mod.NewValue(),
		Type:   b.Types.Ptr(g.Space),
		Span:   span,
		AddrOf: AddrOfInstr{Global: g.Name},
	})
}

// Call emits a call to callee. resultTy is NoTypeID for void callees.
func (b *Builder) Call(callee string, args []ValueID, resultTy TypeID, span source.Span) ValueID {
	in := Instr{
		Kind: InstrCall,
		Span: span,
		Call: CallInstr{Callee: callee, Args: args},
	}
	if resultTy != NoTypeID {
		in.Result = b.Mod.NewValue()
		in.Type = resultTy
		in.Call.HasResult = true
	} else {
		in.Result = NoValueID
	}
	return b.emit(in)
}

// Return terminates the block with a bare return.
func (b *Builder) Return(span source.Span) {
	b.setTerm(Terminator{Kind: TermReturn, Span: span})
}

// ReturnValue terminates the block returning v.
func (b *Builder) ReturnValue(v ValueID, span source.Span) {
	b.setTerm(Terminator{Kind: TermReturn, Span: span, Return: ReturnTerm{HasValue: true, Value: v}})
}

// Br terminates the block with an unconditional branch.
func (b *Builder) Br(target BlockID, span source.Span) {
	b.setTerm(Terminator{Kind: TermBr, Span: span, Br: BrTerm{Target: target}})
}

// CondBr terminates the block branching on cond.
func (b *Builder) CondBr(cond ValueID, then, els BlockID, span source.Span) {
	b.setTerm(Terminator{Kind: TermCondBr, Span: span, CondBr: CondBrTerm{Cond: cond, Then: then, Else: els}})
}

// Unreachable terminates the block as never-reached.
func (b *Builder) Unreachable(span source.Span) {
	b.setTerm(Terminator{Kind: TermUnreachable, Span: span})
}

// SolReturn terminates the block with the high-level contract return.
func (b *Builder) SolReturn(offset, length ValueID, span source.Span) {
	b.setTerm(Terminator{Kind: TermSolReturn, Span: span, SolReturn: SolReturnTerm{Offset: offset, Length: length}})
}

// DeclareFunc finds or creates a function declaration at module scope.
// The same name always yields the same declaration; it is created at most
// once per module.
func (b *Builder) DeclareFunc(name string, params, results []TypeID, linkage Linkage, ctx Context) *Func {
	if f := b.Mod.FindFunc(name); f != nil {
		return f
	}
	f := &Func{
		Name:     name,
		Results:  results,
		Linkage:  linkage,
		Context:  ctx,
		Declared: true,
	}
	for _, ty := range params {
		f.Params = append(f.Params, Param{Type: ty, Value: NoValueID})
	}
	b.Mod.Funcs = append(b.Mod.Funcs, f)
	return f
}

// BindParams assigns fresh SSA values to f's parameters, making them usable
// inside a body. Idempotent for already-bound parameters.
func (b *Builder) BindParams(f *Func) {
	for i := range f.Params {
		if f.Params[i].Value == NoValueID {
			f.Params[i].Value = b.Mod.NewValue()
		}
	}
}

// AttachBlocks hands ownership of a detached body to f. The function stops
// being a bare declaration.
func (b *Builder) AttachBlocks(f *Func, blocks []*Block) {
	f.Blocks = append(blocks, f.Blocks...)
	f.Declared = false
}

// GetOrInsertGlobal finds or creates a global slot. The same name always
// yields the same slot; it is created at most once per module.
func (b *Builder) GetOrInsertGlobal(name string, ty TypeID, space AddrSpace, linkage Linkage, init GlobalInit) *Global {
	if g := b.Mod.FindGlobal(name); g != nil {
		return g
	}
	g := &Global{
		Name:    name,
		Type:    ty,
		Space:   space,
		Align:   AlignFor(space),
		Linkage: linkage,
		Init:    init,
	}
	b.Mod.Globals = append(b.Mod.Globals, g)
	return g
}
