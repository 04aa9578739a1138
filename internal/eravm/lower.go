package eravm

import (
	"mica/internal/diag"
	"mica/internal/ir"
	"mica/internal/source"
)

// Lower rewrites mod in place into the target's flat, function-based form:
//
//  1. contract containers are dissolved, their functions moved to module
//     scope in order;
//  2. each object tree is split: the outer (creation) body becomes the
//     private __deploy function, the nested _deployed body becomes
//     __runtime, and an __entry function is synthesized that decodes the
//     call ABI, initializes the VM-state globals, and dispatches on the
//     is-deploy bit of the call flags;
//  3. every high-level return terminator is rewritten into the target's
//     return-intrinsic call sequence for the context its function is
//     stamped with.
//
// After Lower the module holds no containers and no high-level
// terminators.
func Lower(mod *ir.Module, types *ir.Interner) error {
	h := &helper{b: ir.NewBuilder(mod, types)}

	var moved []*ir.Func
	for _, c := range mod.Contracts {
		moved = append(moved, c.Funcs...)
		c.Funcs = nil
	}
	mod.Contracts = nil
	mod.Funcs = append(moved, mod.Funcs...)

	objects := mod.Objects
	mod.Objects = nil
	for _, o := range objects {
		if err := h.lowerObject(o); err != nil {
			return err
		}
	}

	for _, f := range mod.Funcs {
		if err := h.lowerReturns(f); err != nil {
			return err
		}
	}
	return nil
}

// lowerObject relocates one object tree into the synthesized entry points.
// A bare _deployed object (no enclosing creation object) only carries
// runtime code; an outer object additionally gets the dispatching entry.
func (h *helper) lowerObject(o *ir.Object) error {
	if o.Context == ir.ContextRuntime {
		if o.Child != nil {
			return diag.Internal("object %s: runtime object cannot nest %s", o.Name, o.Child.Name)
		}
		h.attachBody(h.getOrInsertRuntimeFunc(), o)
		return nil
	}

	h.attachBody(h.getOrInsertCreationFunc(), o)
	runtime := h.getOrInsertRuntimeFunc()
	if o.Child != nil {
		if o.Child.Context != ir.ContextRuntime {
			return diag.Internal("object %s: nested object %s is not tagged %s", o.Name, o.Child.Name, ir.DeployedSuffix)
		}
		h.attachBody(runtime, o.Child)
		o.Child = nil
	}
	return h.synthesizeEntry(o.Span)
}

// attachBody relocates the object's body into f. A bodyless object leaves
// f a bare declaration.
func (h *helper) attachBody(f *ir.Func, o *ir.Object) {
	blocks := o.DetachBlocks()
	if len(blocks) == 0 {
		return
	}
	h.b.AttachBlocks(f, blocks)
}

// synthesizeEntry builds the external __entry function: one generic
// calldata ABI pointer followed by twelve word arguments, returning one
// word (never actually produced, both dispatch arms end in unreachable).
func (h *helper) synthesizeEntry(span source.Span) error {
	b := h.b
	word := b.Types.Word()

	params := []ir.TypeID{b.Types.Ptr(ir.AddrSpaceGeneric)}
	for i := 0; i < MandatoryArgCount+ExtraABIDataSize; i++ {
		params = append(params, word)
	}
	entry := b.DeclareFunc(FuncEntry, params, []ir.TypeID{word}, ir.LinkageExternal, ir.ContextNone)
	if !entry.Declared {
		return diag.Internal("function %s synthesized twice", FuncEntry)
	}
	b.BindParams(entry)

	defer b.Guard().Restore()
	b.SetFunc(entry)
	_, bb := b.AppendBlock()
	b.SetBlock(bb)
	entry.Declared = false

	// Both termination intrinsics are part of the entry's calling
	// convention even when only one ends up called.
	h.getOrInsertReturn()
	h.getOrInsertRevert()

	h.initGlobals(span)

	abiPtr := entry.Params[0].Value
	wordArg := func(i int) ir.ValueID { return entry.Params[1+i].Value }

	// Publish the calldata window: the ABI pointer itself, then its
	// decoded length.
	callData := h.ptrGlobal(GlobCallDataPtr)
	h.storeGlobal(abiPtr, callData, span)
	size := h.wordGlobal(GlobCallDataSize)
	h.storeGlobal(h.abiLength(abiPtr, span), size, span)

	// The return-data pointers start just past the calldata window.
	sizeVal := b.Load(b.AddrOf(size, span), word, size.Space, span)
	past := b.GEP(abiPtr, b.Types.Int(BitLenByte), sizeVal, ir.AddrSpaceGeneric, span)
	h.storeGlobal(past, h.ptrGlobal(GlobRetDataPtr), span)
	h.storeGlobal(past, h.ptrGlobal(GlobActivePtr), span)

	flags := wordArg(ArgIndexCallFlags)
	h.storeGlobal(flags, h.wordGlobal(GlobCallFlags), span)

	extra := b.Mod.FindGlobal(GlobExtraABIData)
	extraBase := b.AddrOf(extra, span)
	for i := 0; i < ExtraABIDataSize; i++ {
		idx := b.ConstWord(uint64(i), span)
		slot := b.GEP(extraBase, word, idx, ir.AddrSpaceStack, span)
		b.Store(wordArg(MandatoryArgCount+i), slot, ir.AddrSpaceStack, span)
	}

	// Dispatch: bit 0 of the call flags selects deploy code.
	one := b.ConstWord(1, span)
	isDeploy := b.CmpEq(b.Bin(ir.BinAnd, word, flags, one, span), one, span)
	thenID, thenBB := b.AppendBlock()
	elseID, elseBB := b.AppendBlock()
	b.CondBr(isDeploy, thenID, elseID, span)

	b.SetBlock(thenBB)
	b.Call(FuncDeploy, nil, ir.NoTypeID, span)
	b.Unreachable(span)

	b.SetBlock(elseBB)
	b.Call(FuncRuntime, nil, ir.NoTypeID, span)
	b.Unreachable(span)
	return nil
}

// lowerReturns rewrites every high-level return terminator in f into the
// return-intrinsic call sequence for f's stamped context.
func (h *helper) lowerReturns(f *ir.Func) error {
	b := h.b
	for _, blk := range f.Blocks {
		if blk.Term.Kind != ir.TermSolReturn {
			continue
		}
		ret := blk.Term.SolReturn
		span := blk.Term.Span
		blk.Term = ir.Terminator{}

		restore := b.Guard()
		b.SetFunc(f)
		b.SetBlock(blk)
		h.getOrInsertReturn()

		switch f.Context {
		case ir.ContextRuntime:
			mode := b.ConstWord(RetUseHeap, span)
			b.Call(FuncReturn, []ir.ValueID{ret.Offset, ret.Length, mode}, ir.NoTypeID, span)
		case ir.ContextCreation:
			h.emitCreationReturn(span)
		default:
			restore.Restore()
			return diag.Internal("return in %s has neither creation nor runtime context", f.Name)
		}
		b.Unreachable(span)
		restore.Restore()
	}
	return nil
}

// emitCreationReturn writes the constructor return-data area on the
// auxiliary heap and returns it. The area holds the field width followed
// by the immutables count; with no immutables the returned length is two
// fields.
func (h *helper) emitCreationReturn(span source.Span) {
	b := h.b
	word := b.Types.Word()

	// TODO(immutables): once contracts can declare immutables, size this
	// from the contract's immutable layout instead of zero.
	const immutablesSize = 0

	base := b.ConstWord(HeapAuxOffsetCtorRetData, span)
	widthSlot := b.IntToPtr(base, ir.AddrSpaceHeapAux, span)
	b.Store(b.ConstWord(ByteLenField, span), widthSlot, ir.AddrSpaceHeapAux, span)

	countAddr := b.ConstWord(HeapAuxOffsetCtorRetData+ByteLenField, span)
	countSlot := b.IntToPtr(countAddr, ir.AddrSpaceHeapAux, span)
	count := b.ConstWord(immutablesSize/ByteLenField, span)
	b.Store(count, countSlot, ir.AddrSpaceHeapAux, span)

	sizeC := b.ConstWord(immutablesSize, span)
	doubled := b.Bin(ir.BinMul, word, sizeC, b.ConstWord(2, span), span)
	length := b.Bin(ir.BinAdd, word, doubled, b.ConstWord(ByteLenField*2, span), span)

	mode := b.ConstWord(RetUseAuxHeap, span)
	b.Call(FuncReturn, []ir.ValueID{b.ConstWord(HeapAuxOffsetCtorRetData, span), length, mode}, ir.NoTypeID, span)
}
