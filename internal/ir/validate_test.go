package ir_test

import (
	"strings"
	"testing"

	"mica/internal/ir"
	"mica/internal/source"
)

// validModule builds a minimal module that passes validation: one function
// returning a word constant.
func validModule() (*ir.Module, *ir.Interner, *ir.Builder) {
	mod := ir.NewModule("m")
	types := ir.NewInterner()
	b := ir.NewBuilder(mod, types)

	f := b.DeclareFunc("f", nil, []ir.TypeID{types.Word()}, ir.LinkageExternal, ir.ContextNone)
	b.SetFunc(f)
	_, blk := b.AppendBlock()
	b.SetBlock(blk)
	f.Declared = false
	v := b.ConstWord(7, source.Span{})
	b.ReturnValue(v, source.Span{})
	b.ClearCursor()
	return mod, types, b
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	mod, types, _ := validModule()
	if err := ir.Validate(mod, types); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// TestValidateRejects corrupts a well-formed module one invariant at a
// time and checks each is caught.
func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(*ir.Module, *ir.Interner, *ir.Builder)
		want    string
	}{
		{
			"residual object container",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Objects = append(m.Objects, ir.NewObject("C"))
			},
			"residual object",
		},
		{
			"residual contract container",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Contracts = append(m.Contracts, &ir.Contract{Name: "C"})
			},
			"residual contract",
		},
		{
			"unterminated block",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs[0].Blocks[0].Term = ir.Terminator{}
			},
			"unterminated",
		},
		{
			"surviving high-level return",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				v := m.Funcs[0].Blocks[0].Instrs[0].Result
				m.Funcs[0].Blocks[0].Term = ir.Terminator{
					Kind:      ir.TermSolReturn,
					SolReturn: ir.SolReturnTerm{Offset: v, Length: v},
				}
			},
			"high-level return",
		},
		{
			"dangling branch target",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs[0].Blocks[0].Term = ir.Terminator{
					Kind: ir.TermBr,
					Br:   ir.BrTerm{Target: 9},
				}
			},
			"does not exist",
		},
		{
			"return without value in non-void function",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs[0].Blocks[0].Term = ir.Terminator{Kind: ir.TermReturn}
			},
			"without value",
		},
		{
			"use of undefined value",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs[0].Blocks[0].Term.Return.Value = 999
			},
			"undefined value",
		},
		{
			"double definition",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				blk := m.Funcs[0].Blocks[0]
				dup := blk.Instrs[0]
				blk.Instrs = append(blk.Instrs, dup)
			},
			"defined twice",
		},
		{
			"misaligned store",
			func(m *ir.Module, types *ir.Interner, b *ir.Builder) {
				f := m.Funcs[0]
				b.SetFunc(f)
				f.Blocks[0].Term = ir.Terminator{}
				b.SetBlock(f.Blocks[0])
				slot := b.Alloca(types.Word(), source.Span{})
				b.Store(f.Blocks[0].Instrs[0].Result, slot, ir.AddrSpaceStack, source.Span{})
				f.Blocks[0].Instrs[len(f.Blocks[0].Instrs)-1].Store.Align = 1
				b.ReturnValue(f.Blocks[0].Instrs[0].Result, source.Span{})
			},
			"alignment",
		},
		{
			"call to unknown function",
			func(m *ir.Module, _ *ir.Interner, b *ir.Builder) {
				f := m.Funcs[0]
				f.Blocks[0].Term = ir.Terminator{}
				b.SetFunc(f)
				b.SetBlock(f.Blocks[0])
				b.Call("ghost", nil, ir.NoTypeID, source.Span{})
				b.ReturnValue(f.Blocks[0].Instrs[0].Result, source.Span{})
			},
			"unknown function",
		},
		{
			"call arity mismatch",
			func(m *ir.Module, types *ir.Interner, b *ir.Builder) {
				b.DeclareFunc("takes_one", []ir.TypeID{types.Word()}, nil, ir.LinkageExternal, ir.ContextNone)
				f := m.Funcs[0]
				f.Blocks[0].Term = ir.Terminator{}
				b.SetFunc(f)
				b.SetBlock(f.Blocks[0])
				b.Call("takes_one", nil, ir.NoTypeID, source.Span{})
				b.ReturnValue(f.Blocks[0].Instrs[0].Result, source.Span{})
			},
			"args",
		},
		{
			"duplicate global",
			func(m *ir.Module, types *ir.Interner, b *ir.Builder) {
				g := b.GetOrInsertGlobal("g", types.Word(), ir.AddrSpaceStack, ir.LinkagePrivate, ir.InitZero)
				m.Globals = append(m.Globals, g)
			},
			"duplicate global",
		},
		{
			"global alignment mismatch",
			func(m *ir.Module, types *ir.Interner, b *ir.Builder) {
				g := b.GetOrInsertGlobal("g", types.Word(), ir.AddrSpaceStack, ir.LinkagePrivate, ir.InitZero)
				g.Align = 1
			},
			"alignment",
		},
		{
			"declaration with body",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs[0].Declared = true
			},
			"declaration has a body",
		},
		{
			"duplicate function name",
			func(m *ir.Module, _ *ir.Interner, _ *ir.Builder) {
				m.Funcs = append(m.Funcs, &ir.Func{Name: "f", Declared: true})
			},
			"duplicate function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, types, b := validModule()
			tt.corrupt(mod, types, b)
			err := ir.Validate(mod, types)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
