package ir

import (
	"math/big"

	"mica/internal/ast"
	"mica/internal/diag"
)

// lowerExpr lowers an expression and optionally casts the result to the
// caller-requested type.
func (l *astLowerer) lowerExpr(e *ast.Expr, resTy *ast.Type) (ValueID, error) {
	var (
		val ValueID
		err error
	)
	switch e.Kind {
	case ast.ExprLiteral:
		val, err = l.lowerLiteral(e)
	case ast.ExprIdent:
		val, err = l.lowerIdent(e)
	case ast.ExprBinary:
		val, err = l.lowerBinary(e)
	case ast.ExprInvalid:
		return NoValueID, diag.Internal("invalid expression reached lowering")
	default:
		return NoValueID, diag.Internal("unhandled expression kind %d", e.Kind)
	}
	if err != nil {
		return NoValueID, err
	}

	if resTy != nil {
		return l.lowerCast(val, e.Type, *resTy, e)
	}
	return val, nil
}

// lowerLiteral produces a typed constant: the integer value parsed from the
// literal's decimal text at the literal type's bit width.
func (l *astLowerer) lowerLiteral(e *ast.Expr) (ValueID, error) {
	if e.Type.Kind == ast.TypeRational && e.Type.Fractional {
		return NoValueID, diag.Unimplemented(e.Span, "fractional number literal %q", e.Literal.Text)
	}
	ty, err := l.lowerType(e.Type)
	if err != nil {
		return NoValueID, err
	}
	v, ok := new(big.Int).SetString(e.Literal.Text, 10)
	if !ok {
		return NoValueID, diag.Internal("literal %q is not decimal", e.Literal.Text)
	}
	return l.b.ConstInt(ty, v, e.Span), nil
}

// lowerIdent produces a load from the declaration's bound storage slot.
func (l *astLowerer) lowerIdent(e *ast.Expr) (ValueID, error) {
	slot, ok := l.vars[e.Ident.Decl]
	if !ok {
		return NoValueID, diag.Internal("identifier %s is bound to no storage", e.Ident.Name)
	}
	elem, err := l.lowerType(e.Ident.Decl.Type)
	if err != nil {
		return NoValueID, err
	}
	return l.b.Load(slot, elem, AddrSpaceStack, e.Span), nil
}

// lowerBinary lowers both operands coerced to the operation's declared
// result type, then applies the operator.
func (l *astLowerer) lowerBinary(e *ast.Expr) (ValueID, error) {
	bin := &e.Binary

	lhs, err := l.lowerExpr(bin.Left, &e.Type)
	if err != nil {
		return NoValueID, err
	}
	rhs, err := l.lowerExpr(bin.Right, &e.Type)
	if err != nil {
		return NoValueID, err
	}

	ty, err := l.lowerType(e.Type)
	if err != nil {
		return NoValueID, err
	}

	switch bin.Op {
	case ast.OpAdd:
		return l.b.Bin(BinAdd, ty, lhs, rhs, e.Span), nil
	case ast.OpMul:
		return l.b.Bin(BinMul, ty, lhs, rhs, e.Span), nil
	}
	return NoValueID, diag.Unimplemented(e.Span, "binary operator %s", bin.Op)
}

// lowerCast converts val from src to dst. Identical types are a no-op: the
// same value is returned and no operation is emitted. Integer widening
// sign-extends when the destination is signed and zero-extends otherwise.
// Narrowing and non-integer casts are not supported and fail explicitly.
func (l *astLowerer) lowerCast(val ValueID, src, dst ast.Type, e *ast.Expr) (ValueID, error) {
	if src == dst {
		return val, nil
	}

	srcInt, srcOK := src.IntegerRepr()
	dstInt, dstOK := dst.IntegerRepr()
	if !srcOK || !dstOK {
		return NoValueID, diag.Unimplemented(e.Span, "cast from %s to %s", src, dst)
	}

	switch {
	case dstInt.Bits > srcInt.Bits:
		op := CastZExt
		if dstInt.Signed {
			op = CastSExt
		}
		return l.b.Cast(op, val, l.b.Types.Int(dstInt.Bits), e.Span), nil
	case dstInt.Bits == srcInt.Bits:
		// Same IR width; IR integers are signless, so the value is already
		// in the right representation.
		return val, nil
	}
	return NoValueID, diag.Unimplemented(e.Span, "narrowing cast from %s to %s", src, dst)
}
