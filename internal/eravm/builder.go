package eravm

import (
	"mica/internal/ir"
	"mica/internal/source"
)

// helper wraps the IR builder with the target-specific emission patterns
// the lowering pass repeats: global-slot access, ABI-pointer decoding, and
// idempotent creation of the synthesized and declared functions.
type helper struct {
	b *ir.Builder
}

func (h *helper) wordGlobal(name string) *ir.Global {
	return h.b.GetOrInsertGlobal(name, h.b.Types.Word(), ir.AddrSpaceStack, ir.LinkagePrivate, ir.InitZero)
}

func (h *helper) ptrGlobal(name string) *ir.Global {
	ty := h.b.Types.Ptr(ir.AddrSpaceGeneric)
	return h.b.GetOrInsertGlobal(name, ty, ir.AddrSpaceStack, ir.LinkagePrivate, ir.InitZero)
}

// storeGlobal writes v into the named slot with the alignment its address
// space implies.
func (h *helper) storeGlobal(v ir.ValueID, g *ir.Global, span source.Span) {
	addr := h.b.AddrOf(g, span)
	h.b.Store(v, addr, g.Space, span)
}

// initGlobals creates every VM-state slot and writes its zero value. The
// extra-ABI array is zeroed one slot at a time.
func (h *helper) initGlobals(span source.Span) {
	b := h.b
	zero := b.ConstWord(0, span)
	for _, name := range []string{GlobHeapMemPtr, GlobCallDataSize, GlobRetDataSize, GlobCallFlags} {
		h.storeGlobal(zero, h.wordGlobal(name), span)
	}
	arrTy := b.Types.Array(b.Types.Word(), ExtraABIDataSize)
	arr := b.GetOrInsertGlobal(GlobExtraABIData, arrTy, ir.AddrSpaceStack, ir.LinkagePrivate, ir.InitZero)
	base := b.AddrOf(arr, span)
	for i := 0; i < ExtraABIDataSize; i++ {
		idx := b.ConstWord(uint64(i), span)
		slot := b.GEP(base, b.Types.Word(), idx, ir.AddrSpaceStack, span)
		b.Store(zero, slot, ir.AddrSpaceStack, span)
	}
}

// abiLength decodes the length field out of a calldata ABI pointer: the
// pointer reinterpreted as a word, shifted down to the field and masked.
func (h *helper) abiLength(ptr ir.ValueID, span source.Span) ir.ValueID {
	b := h.b
	word := b.Types.Word()
	raw := b.PtrToInt(ptr, span)
	shift := b.ConstWord(ABILengthBitOffset, span)
	shifted := b.Bin(ir.BinLShr, word, raw, shift, span)
	mask := b.ConstWord(ABILengthMask, span)
	return b.Bin(ir.BinAnd, word, shifted, mask, span)
}

// getOrInsertCreationFunc returns the private deploy-code holder, stamped
// with the creation context.
func (h *helper) getOrInsertCreationFunc() *ir.Func {
	return h.b.DeclareFunc(FuncDeploy, nil, nil, ir.LinkagePrivate, ir.ContextCreation)
}

// getOrInsertRuntimeFunc returns the private runtime-code holder, stamped
// with the runtime context.
func (h *helper) getOrInsertRuntimeFunc() *ir.Func {
	return h.b.DeclareFunc(FuncRuntime, nil, nil, ir.LinkagePrivate, ir.ContextRuntime)
}

// getOrInsertReturn declares the target's return intrinsic:
// (offset, length, mode) -> noreturn.
func (h *helper) getOrInsertReturn() *ir.Func {
	word := h.b.Types.Word()
	return h.b.DeclareFunc(FuncReturn, []ir.TypeID{word, word, word}, nil, ir.LinkageExternal, ir.ContextNone)
}

// getOrInsertRevert declares the target's revert intrinsic with the same
// signature as the return intrinsic.
func (h *helper) getOrInsertRevert() *ir.Func {
	word := h.b.Types.Word()
	return h.b.DeclareFunc(FuncRevert, []ir.TypeID{word, word, word}, nil, ir.LinkageExternal, ir.ContextNone)
}
