package ir

import (
	"mica/internal/ast"
	"mica/internal/diag"
)

// LowerContract lowers one typed contract definition into a contract
// container inside the builder's module: one function per defined function.
// Any unsupported construct aborts the whole lowering with an
// unimplemented-feature failure; nothing partial is left usable.
func LowerContract(b *Builder, c *ast.Contract) (*Contract, error) {
	cont := &Contract{Name: c.Name, Span: c.Span}
	b.Mod.Contracts = append(b.Mod.Contracts, cont)

	for _, fn := range c.Functions {
		l := &astLowerer{b: b, fn: fn, vars: make(map[*ast.VarDecl]ValueID)}
		if err := l.lowerFunc(cont); err != nil {
			return nil, err
		}
	}
	return cont, nil
}

// astLowerer drives the lowering of one function. The vars map binds each
// source declaration to its stack slot for the duration of the function's
// lowering and is discarded afterwards.
type astLowerer struct {
	b    *Builder
	fn   *ast.Function
	vars map[*ast.VarDecl]ValueID
}

// lowerType maps a source type to its IR integer type. Rational-literal
// types map through their underlying integer representation.
func (l *astLowerer) lowerType(t ast.Type) (TypeID, error) {
	repr, ok := t.IntegerRepr()
	if !ok {
		return NoTypeID, diag.Unimplemented(l.fn.Span, "unhandled type %s", t)
	}
	return l.b.Types.Int(repr.Bits), nil
}

func (l *astLowerer) lowerFunc(cont *Contract) error {
	fn := l.fn

	var results []TypeID
	for _, ret := range fn.Returns {
		ty, err := l.lowerType(ret.Type)
		if err != nil {
			return err
		}
		results = append(results, ty)
	}
	if len(results) > 1 {
		return diag.Unimplemented(fn.Span, "multi-value return in function %s", fn.Name)
	}

	f := &Func{
		Name:    fn.Name,
		Results: results,
		Linkage: LinkageExternal,
		Span:    fn.Span,
	}
	for _, p := range fn.Params {
		ty, err := l.lowerType(p.Type)
		if err != nil {
			return err
		}
		f.Params = append(f.Params, Param{Type: ty, Value: l.b.Mod.NewValue(), Span: p.Span})
	}
	cont.Funcs = append(cont.Funcs, f)

	l.b.SetFunc(f)
	_, entry := l.b.AppendBlock()
	l.b.SetBlock(entry)

	// One fresh stack slot per parameter: store the incoming argument and
	// bind the declaration to the slot before visiting the body.
	for i, p := range fn.Params {
		elem := f.Params[i].Type
		slot := l.b.Alloca(elem, p.Span)
		l.b.Store(f.Params[i].Value, slot, AddrSpaceStack, p.Span)
		l.vars[p] = slot
	}

	for i := range fn.Body {
		if err := l.lowerStmt(&fn.Body[i]); err != nil {
			return err
		}
	}

	// Functions without a declared result fall off the end with an empty
	// return.
	if len(results) == 0 && !l.b.Block().Terminated() {
		l.b.Return(fn.Span)
	}

	l.b.ClearCursor()
	return nil
}

func (l *astLowerer) lowerStmt(st *ast.Stmt) error {
	switch st.Kind {
	case ast.StmtReturn:
		return l.lowerReturn(st)
	case ast.StmtExpr:
		return diag.Unimplemented(st.Span, "expression statements")
	case ast.StmtInvalid:
		return diag.Internal("invalid statement reached lowering")
	}
	return diag.Internal("unhandled statement kind %d", st.Kind)
}

func (l *astLowerer) lowerReturn(st *ast.Stmt) error {
	switch len(l.fn.Returns) {
	case 0:
		l.b.Return(st.Span)
		return nil
	case 1:
		if st.Return.Value == nil {
			return diag.Unimplemented(st.Span, "return without a value in function %s", l.fn.Name)
		}
		resTy := l.fn.Returns[0].Type
		val, err := l.lowerExpr(st.Return.Value, &resTy)
		if err != nil {
			return err
		}
		l.b.ReturnValue(val, st.Span)
		return nil
	}
	// lowerFunc rejects multi-value signatures before the body is visited.
	return diag.Internal("multi-value return reached statement lowering")
}
