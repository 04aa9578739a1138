package ir_test

import (
	"strings"
	"testing"

	"mica/internal/ast"
	"mica/internal/diag"
	"mica/internal/ir"
)

var (
	u8  = ast.IntType(8, false)
	i16 = ast.IntType(16, true)
	u16 = ast.IntType(16, false)
)

func lit(text string, ty ast.Type) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, Type: ty, Literal: ast.LiteralExpr{Text: text}}
}

func identOf(decl *ast.VarDecl) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIdent, Type: decl.Type, Ident: ast.IdentExpr{Name: decl.Name, Decl: decl}}
}

func binary(op ast.BinaryOp, ty ast.Type, left, right *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBinary, Type: ty, Binary: ast.BinaryExpr{Op: op, Left: left, Right: right}}
}

func returning(value *ast.Expr) ast.Stmt {
	return ast.Stmt{Kind: ast.StmtReturn, Return: ast.ReturnStmt{Value: value}}
}

// fnOf builds a contract holding one function.
func fnOf(fn *ast.Function) *ast.Contract {
	return &ast.Contract{Name: "C", Functions: []*ast.Function{fn}}
}

func lowerOne(t *testing.T, c *ast.Contract) (*ir.Module, *ir.Interner) {
	t.Helper()
	mod := ir.NewModule(c.Name)
	types := ir.NewInterner()
	if _, err := ir.LowerContract(ir.NewBuilder(mod, types), c); err != nil {
		t.Fatalf("LowerContract: %v", err)
	}
	return mod, types
}

func onlyFunc(t *testing.T, mod *ir.Module) *ir.Func {
	t.Helper()
	if len(mod.Contracts) != 1 || len(mod.Contracts[0].Funcs) != 1 {
		t.Fatalf("expected one contract with one function")
	}
	return mod.Contracts[0].Funcs[0]
}

func dumpOf(t *testing.T, mod *ir.Module, types *ir.Interner) string {
	t.Helper()
	var sb strings.Builder
	if err := ir.DumpModule(&sb, mod, types, ir.DumpOptions{}); err != nil {
		t.Fatalf("DumpModule: %v", err)
	}
	return sb.String()
}

// TestLowerLiteralReturn checks that an integral rational literal lowers
// to a single typed constant and that the equal-width coercion to the
// declared result type emits no cast.
func TestLowerLiteralReturn(t *testing.T) {
	fortyTwo := lit("42", ast.RationalType(8, false))
	mod, _ := lowerOne(t, fnOf(&ast.Function{
		Name:    "answer",
		Returns: []*ast.VarDecl{{Type: u8}},
		Body:    []ast.Stmt{returning(fortyTwo)},
	}))

	f := onlyFunc(t, mod)
	if len(f.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(f.Blocks))
	}
	blk := f.Blocks[0]
	if len(blk.Instrs) != 1 {
		t.Fatalf("got %d instructions, want only the constant", len(blk.Instrs))
	}
	in := &blk.Instrs[0]
	if in.Kind != ir.InstrConst || in.Const.Value.Int64() != 42 {
		t.Errorf("instruction is not const 42")
	}
	if blk.Term.Kind != ir.TermReturn || !blk.Term.Return.HasValue || blk.Term.Return.Value != in.Result {
		t.Errorf("function does not return the constant")
	}
}

// TestLowerWideningCasts checks the cast rule: widening to a signed type
// sign-extends, widening to an unsigned type zero-extends.
func TestLowerWideningCasts(t *testing.T) {
	tests := []struct {
		name   string
		dst    ast.Type
		wantOp ir.CastOp
	}{
		{"sign extend to int16", i16, ir.CastSExt},
		{"zero extend to uint16", u16, ir.CastZExt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := &ast.VarDecl{Name: "x", Type: u8}
			mod, types := lowerOne(t, fnOf(&ast.Function{
				Name:    "widen",
				Params:  []*ast.VarDecl{param},
				Returns: []*ast.VarDecl{{Type: tt.dst}},
				Body:    []ast.Stmt{returning(identOf(param))},
			}))

			f := onlyFunc(t, mod)
			blk := f.Blocks[0]
			last := &blk.Instrs[len(blk.Instrs)-1]
			if last.Kind != ir.InstrCast || last.Cast.Op != tt.wantOp {
				t.Fatalf("last instruction is not a %s cast", tt.wantOp)
			}
			if last.Type != types.Int(16) {
				t.Errorf("cast result type = %s, want i16", types.String(last.Type))
			}
		})
	}
}

// TestLowerParamSlots checks the parameter prologue: one stack slot per
// parameter, the incoming argument stored into it, and identifier uses
// loading from it.
func TestLowerParamSlots(t *testing.T) {
	param := &ast.VarDecl{Name: "x", Type: u8}
	mod, _ := lowerOne(t, fnOf(&ast.Function{
		Name:    "id",
		Params:  []*ast.VarDecl{param},
		Returns: []*ast.VarDecl{{Type: u8}},
		Body:    []ast.Stmt{returning(identOf(param))},
	}))

	f := onlyFunc(t, mod)
	blk := f.Blocks[0]
	var kinds []ir.InstrKind
	for i := range blk.Instrs {
		kinds = append(kinds, blk.Instrs[i].Kind)
	}
	want := []ir.InstrKind{ir.InstrAlloca, ir.InstrStore, ir.InstrLoad}
	if len(kinds) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("instruction %d has kind %d, want %d", i, kinds[i], want[i])
		}
	}
	if blk.Instrs[1].Store.Value != f.Params[0].Value {
		t.Errorf("prologue store does not write the incoming argument")
	}
}

// TestLowerBinary checks that operands are coerced to the operation's
// result type before the operator applies.
func TestLowerBinary(t *testing.T) {
	a := &ast.VarDecl{Name: "a", Type: u8}
	b := &ast.VarDecl{Name: "b", Type: u8}
	sum := binary(ast.OpAdd, u16, identOf(a), identOf(b))
	mod, types := lowerOne(t, fnOf(&ast.Function{
		Name:    "add",
		Params:  []*ast.VarDecl{a, b},
		Returns: []*ast.VarDecl{{Type: u16}},
		Body:    []ast.Stmt{returning(sum)},
	}))

	f := onlyFunc(t, mod)
	blk := f.Blocks[0]
	var bin *ir.Instr
	casts := 0
	for i := range blk.Instrs {
		switch blk.Instrs[i].Kind {
		case ir.InstrBin:
			bin = &blk.Instrs[i]
		case ir.InstrCast:
			casts++
		}
	}
	if bin == nil || bin.Bin.Op != ir.BinAdd {
		t.Fatal("no add instruction emitted")
	}
	if bin.Type != types.Int(16) {
		t.Errorf("add type = %s, want i16", types.String(bin.Type))
	}
	if casts != 2 {
		t.Errorf("got %d operand casts, want 2", casts)
	}
}

// TestLowerVoidFunction checks that a body falling off the end gets a bare
// return.
func TestLowerVoidFunction(t *testing.T) {
	mod, _ := lowerOne(t, fnOf(&ast.Function{Name: "noop"}))
	f := onlyFunc(t, mod)
	if len(f.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(f.Blocks))
	}
	term := f.Blocks[0].Term
	if term.Kind != ir.TermReturn || term.Return.HasValue {
		t.Errorf("void function does not end in a bare return")
	}
}

// TestLowerUnsupported checks fail-fast behavior: every unsupported
// construct aborts with the unimplemented-feature code.
func TestLowerUnsupported(t *testing.T) {
	x := &ast.VarDecl{Name: "x", Type: u16}
	tests := []struct {
		name string
		fn   *ast.Function
	}{
		{
			"multi-value return",
			&ast.Function{Name: "two", Returns: []*ast.VarDecl{{Type: u8}, {Type: u8}}},
		},
		{
			"fractional literal",
			&ast.Function{
				Name:    "frac",
				Returns: []*ast.VarDecl{{Type: u8}},
				Body:    []ast.Stmt{returning(lit("1.5", ast.Type{Kind: ast.TypeRational, Fractional: true}))},
			},
		},
		{
			"division",
			&ast.Function{
				Name:    "div",
				Returns: []*ast.VarDecl{{Type: u8}},
				Body:    []ast.Stmt{returning(binary(ast.OpDiv, u8, lit("6", ast.RationalType(8, false)), lit("2", ast.RationalType(8, false))))},
			},
		},
		{
			"narrowing cast",
			&ast.Function{
				Name:    "narrow",
				Params:  []*ast.VarDecl{x},
				Returns: []*ast.VarDecl{{Type: u8}},
				Body:    []ast.Stmt{returning(identOf(x))},
			},
		},
		{
			"expression statement",
			&ast.Function{
				Name: "effect",
				Body: []ast.Stmt{{Kind: ast.StmtExpr, Expr: ast.ExprStmt{Value: lit("1", ast.RationalType(8, false))}}},
			},
		},
		{
			"return without a value",
			&ast.Function{
				Name:    "naked",
				Returns: []*ast.VarDecl{{Type: u8}},
				Body:    []ast.Stmt{returning(nil)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := ir.NewModule("C")
			types := ir.NewInterner()
			_, err := ir.LowerContract(ir.NewBuilder(mod, types), fnOf(tt.fn))
			if err == nil {
				t.Fatal("expected an error")
			}
			if diag.CodeOf(err) != diag.CodeUnimplemented {
				t.Errorf("error code = %d, want %d", diag.CodeOf(err), diag.CodeUnimplemented)
			}
		})
	}
}

// TestLowerDeterministic checks that lowering the same contract twice
// yields byte-identical dumps.
func TestLowerDeterministic(t *testing.T) {
	param := &ast.VarDecl{Name: "x", Type: u8}
	contract := fnOf(&ast.Function{
		Name:    "double",
		Params:  []*ast.VarDecl{param},
		Returns: []*ast.VarDecl{{Type: u16}},
		Body: []ast.Stmt{returning(
			binary(ast.OpMul, u16, identOf(param), lit("2", ast.RationalType(16, false))),
		)},
	})

	first, firstTypes := lowerOne(t, contract)
	second, secondTypes := lowerOne(t, contract)
	a, b := dumpOf(t, first, firstTypes), dumpOf(t, second, secondTypes)
	if a != b {
		t.Errorf("dumps differ:\n%s\n---\n%s", a, b)
	}
}
