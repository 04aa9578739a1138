package ast

import (
	"encoding/json"
	"fmt"

	"mica/internal/source"
)

// The wire format mirrors the front end's AST export: contracts, functions,
// statements and expressions as JSON objects discriminated by a kind field,
// with spans as [start, end] byte offsets into the accompanying source text.

type wireContract struct {
	Name      string         `json:"name"`
	Functions []wireFunction `json:"functions"`
	Span      []uint32       `json:"span,omitempty"`
}

type wireFunction struct {
	Name    string     `json:"name"`
	Params  []wireDecl `json:"params,omitempty"`
	Returns []wireDecl `json:"returns,omitempty"`
	Body    []wireStmt `json:"body,omitempty"`
	Span    []uint32   `json:"span,omitempty"`
}

type wireDecl struct {
	Name string   `json:"name"`
	Type wireType `json:"type"`
	Span []uint32 `json:"span,omitempty"`
}

type wireType struct {
	Kind       string `json:"kind"` // "int" or "rational"
	Bits       uint32 `json:"bits,omitempty"`
	Signed     bool   `json:"signed,omitempty"`
	Fractional bool   `json:"fractional,omitempty"`
}

type wireStmt struct {
	Stmt  string    `json:"stmt"` // "return" or "expr"
	Value *wireExpr `json:"value,omitempty"`
	Span  []uint32  `json:"span,omitempty"`
}

type wireExpr struct {
	Expr  string    `json:"expr"` // "literal", "ident", "binary"
	Type  wireType  `json:"type"`
	Span  []uint32  `json:"span,omitempty"`
	Text  string    `json:"text,omitempty"`
	Name  string    `json:"name,omitempty"`
	Op    string    `json:"op,omitempty"`
	Left  *wireExpr `json:"left,omitempty"`
	Right *wireExpr `json:"right,omitempty"`
}

// DecodeContract decodes one contract from the front end's JSON AST export.
// Identifier references are resolved against the enclosing function's
// parameter and return declarations.
func DecodeContract(data []byte, file source.FileID) (*Contract, error) {
	var wc wireContract
	if err := json.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("decode contract AST: %w", err)
	}
	return buildContract(&wc, file)
}

func buildContract(wc *wireContract, file source.FileID) (*Contract, error) {
	if wc.Name == "" {
		return nil, fmt.Errorf("contract has no name")
	}
	c := &Contract{
		Name: wc.Name,
		Span: decodeSpan(wc.Span, file),
	}
	for i := range wc.Functions {
		fn, err := buildFunction(&wc.Functions[i], file)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", wc.Name, err)
		}
		c.Functions = append(c.Functions, fn)
	}
	return c, nil
}

func buildFunction(wf *wireFunction, file source.FileID) (*Function, error) {
	fn := &Function{
		Name: wf.Name,
		Span: decodeSpan(wf.Span, file),
	}
	scope := make(map[string]*VarDecl, len(wf.Params)+len(wf.Returns))
	addDecl := func(wd *wireDecl) (*VarDecl, error) {
		ty, err := decodeType(wd.Type)
		if err != nil {
			return nil, fmt.Errorf("declaration %s: %w", wd.Name, err)
		}
		decl := &VarDecl{Name: wd.Name, Type: ty, Span: decodeSpan(wd.Span, file)}
		if wd.Name != "" {
			if _, dup := scope[wd.Name]; dup {
				return nil, fmt.Errorf("duplicate declaration %s", wd.Name)
			}
			scope[wd.Name] = decl
		}
		return decl, nil
	}
	for i := range wf.Params {
		decl, err := addDecl(&wf.Params[i])
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", wf.Name, err)
		}
		fn.Params = append(fn.Params, decl)
	}
	for i := range wf.Returns {
		decl, err := addDecl(&wf.Returns[i])
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", wf.Name, err)
		}
		fn.Returns = append(fn.Returns, decl)
	}
	for i := range wf.Body {
		stmt, err := buildStmt(&wf.Body[i], scope, file)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", wf.Name, err)
		}
		fn.Body = append(fn.Body, stmt)
	}
	return fn, nil
}

func buildStmt(ws *wireStmt, scope map[string]*VarDecl, file source.FileID) (Stmt, error) {
	span := decodeSpan(ws.Span, file)
	switch ws.Stmt {
	case "return":
		st := Stmt{Kind: StmtReturn, Span: span}
		if ws.Value != nil {
			expr, err := buildExpr(ws.Value, scope, file)
			if err != nil {
				return Stmt{}, err
			}
			st.Return.Value = expr
		}
		return st, nil
	case "expr":
		if ws.Value == nil {
			return Stmt{}, fmt.Errorf("expression statement has no value")
		}
		expr, err := buildExpr(ws.Value, scope, file)
		if err != nil {
			return Stmt{}, err
		}
		return Stmt{Kind: StmtExpr, Span: span, Expr: ExprStmt{Value: expr}}, nil
	}
	return Stmt{}, fmt.Errorf("unknown statement kind %q", ws.Stmt)
}

func buildExpr(we *wireExpr, scope map[string]*VarDecl, file source.FileID) (*Expr, error) {
	ty, err := decodeType(we.Type)
	if err != nil {
		return nil, err
	}
	e := &Expr{Type: ty, Span: decodeSpan(we.Span, file)}
	switch we.Expr {
	case "literal":
		if we.Text == "" {
			return nil, fmt.Errorf("literal has no text")
		}
		e.Kind = ExprLiteral
		e.Literal = LiteralExpr{Text: we.Text}
	case "ident":
		decl, ok := scope[we.Name]
		if !ok {
			return nil, fmt.Errorf("unresolved identifier %q", we.Name)
		}
		e.Kind = ExprIdent
		e.Ident = IdentExpr{Name: we.Name, Decl: decl}
	case "binary":
		if we.Left == nil || we.Right == nil {
			return nil, fmt.Errorf("binary operation missing operand")
		}
		op, err := decodeOp(we.Op)
		if err != nil {
			return nil, err
		}
		left, err := buildExpr(we.Left, scope, file)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(we.Right, scope, file)
		if err != nil {
			return nil, err
		}
		e.Kind = ExprBinary
		e.Binary = BinaryExpr{Op: op, Left: left, Right: right}
	default:
		return nil, fmt.Errorf("unknown expression kind %q", we.Expr)
	}
	return e, nil
}

func decodeType(wt wireType) (Type, error) {
	switch wt.Kind {
	case "int":
		if wt.Bits == 0 || wt.Bits > 256 || wt.Bits%8 != 0 {
			return Type{}, fmt.Errorf("bad integer width %d", wt.Bits)
		}
		return IntType(wt.Bits, wt.Signed), nil
	case "rational":
		t := Type{Kind: TypeRational, Bits: wt.Bits, Signed: wt.Signed, Fractional: wt.Fractional}
		return t, nil
	}
	return Type{}, fmt.Errorf("unknown type kind %q", wt.Kind)
}

func decodeOp(s string) (BinaryOp, error) {
	switch s {
	case "+":
		return OpAdd, nil
	case "-":
		return OpSub, nil
	case "*":
		return OpMul, nil
	case "/":
		return OpDiv, nil
	}
	return OpInvalid, fmt.Errorf("unknown binary operator %q", s)
}

func decodeSpan(raw []uint32, file source.FileID) source.Span {
	if len(raw) != 2 {
		return source.Span{}
	}
	return source.Span{File: file, Start: raw[0], End: raw[1]}
}
