// Package ast holds the typed contract AST consumed by the backend.
//
// The front end (parsing and semantic analysis) is an external collaborator:
// the nodes here arrive already resolved and type-annotated, either built
// programmatically or decoded from the front end's JSON export. Node kinds
// are closed tagged variants matched exhaustively by the lowering engine;
// a construct with no variant cannot be represented, and a represented
// construct the lowering does not support fails explicitly.
package ast

import (
	"mica/internal/source"
)

// Contract is one source contract definition.
type Contract struct {
	Name      string
	Functions []*Function
	Span      source.Span
}

// Function is a defined function with resolved parameter and return
// declarations.
type Function struct {
	Name    string
	Params  []*VarDecl
	Returns []*VarDecl
	Body    []Stmt
	Span    source.Span
}

// VarDecl is a resolved variable declaration (parameter or return slot).
type VarDecl struct {
	Name string
	Type Type
	Span source.Span
}

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	// StmtReturn returns from the enclosing function.
	StmtReturn
	// StmtExpr evaluates an expression for effect.
	StmtExpr
)

// Stmt is a statement variant.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Return ReturnStmt
	Expr   ExprStmt
}

// ReturnStmt carries the optional returned expression.
type ReturnStmt struct {
	Value *Expr // nil for a bare return
}

// ExprStmt evaluates Value and discards the result.
type ExprStmt struct {
	Value *Expr
}

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	// ExprLiteral is a number literal with its decimal text.
	ExprLiteral
	// ExprIdent is a resolved variable reference.
	ExprIdent
	// ExprBinary is a binary operation.
	ExprBinary
)

// Expr is an expression variant annotated with its resolved type.
type Expr struct {
	Kind ExprKind
	Type Type
	Span source.Span

	Literal LiteralExpr
	Ident   IdentExpr
	Binary  BinaryExpr
}

// LiteralExpr preserves the literal's decimal text; the lowering parses it
// at the literal type's bit width.
type LiteralExpr struct {
	Text string
}

// IdentExpr references the declaration it resolved to.
type IdentExpr struct {
	Name string
	Decl *VarDecl
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpInvalid BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	return "?"
}

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}
