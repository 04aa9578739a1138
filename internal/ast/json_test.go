package ast_test

import (
	"strings"
	"testing"

	"mica/internal/ast"
	"mica/internal/source"
)

const addJSON = `{
  "name": "Adder",
  "span": [0, 120],
  "functions": [{
    "name": "add",
    "params": [
      {"name": "a", "type": {"kind": "int", "bits": 32}},
      {"name": "b", "type": {"kind": "int", "bits": 32}}
    ],
    "returns": [{"name": "", "type": {"kind": "int", "bits": 64, "signed": true}}],
    "body": [{
      "stmt": "return",
      "value": {
        "expr": "binary", "op": "+",
        "type": {"kind": "int", "bits": 64, "signed": true},
        "left":  {"expr": "ident", "name": "a", "type": {"kind": "int", "bits": 32}},
        "right": {"expr": "ident", "name": "b", "type": {"kind": "int", "bits": 32}},
        "span": [40, 45]
      }
    }]
  }]
}`

// TestDecodeContract checks decoding and identifier resolution against the
// enclosing function's declarations.
func TestDecodeContract(t *testing.T) {
	c, err := ast.DecodeContract([]byte(addJSON), source.FileID(3))
	if err != nil {
		t.Fatalf("DecodeContract: %v", err)
	}
	if c.Name != "Adder" || len(c.Functions) != 1 {
		t.Fatalf("contract = %s with %d functions", c.Name, len(c.Functions))
	}
	if c.Span.File != 3 || c.Span.End != 120 {
		t.Errorf("contract span = %v", c.Span)
	}

	fn := c.Functions[0]
	if len(fn.Params) != 2 || len(fn.Returns) != 1 || len(fn.Body) != 1 {
		t.Fatalf("function shape: %d params, %d returns, %d stmts", len(fn.Params), len(fn.Returns), len(fn.Body))
	}
	if fn.Returns[0].Type != ast.IntType(64, true) {
		t.Errorf("return type = %s", fn.Returns[0].Type)
	}

	ret := fn.Body[0]
	if ret.Kind != ast.StmtReturn || ret.Return.Value == nil {
		t.Fatal("body is not a valued return")
	}
	bin := ret.Return.Value
	if bin.Kind != ast.ExprBinary || bin.Binary.Op != ast.OpAdd {
		t.Fatalf("return value is not an addition")
	}
	left := bin.Binary.Left
	if left.Kind != ast.ExprIdent || left.Ident.Decl != fn.Params[0] {
		t.Errorf("left operand does not resolve to parameter a")
	}
	if bin.Binary.Right.Ident.Decl != fn.Params[1] {
		t.Errorf("right operand does not resolve to parameter b")
	}
}

// TestDecodeContractErrors checks the decoder's rejection paths.
func TestDecodeContractErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{`, "decode"},
		{"no name", `{"functions": []}`, "no name"},
		{
			"unresolved identifier",
			`{"name": "C", "functions": [{"name": "f", "body": [
			  {"stmt": "return", "value": {"expr": "ident", "name": "ghost", "type": {"kind": "int", "bits": 8}}}
			]}]}`,
			"unresolved identifier",
		},
		{
			"duplicate declaration",
			`{"name": "C", "functions": [{"name": "f", "params": [
			  {"name": "x", "type": {"kind": "int", "bits": 8}},
			  {"name": "x", "type": {"kind": "int", "bits": 8}}
			]}]}`,
			"duplicate declaration",
		},
		{
			"bad integer width",
			`{"name": "C", "functions": [{"name": "f", "params": [
			  {"name": "x", "type": {"kind": "int", "bits": 12}}
			]}]}`,
			"bad integer width",
		},
		{
			"unknown operator",
			`{"name": "C", "functions": [{"name": "f", "body": [
			  {"stmt": "return", "value": {"expr": "binary", "op": "%",
			    "type": {"kind": "int", "bits": 8},
			    "left": {"expr": "literal", "text": "1", "type": {"kind": "int", "bits": 8}},
			    "right": {"expr": "literal", "text": "2", "type": {"kind": "int", "bits": 8}}}}
			]}]}`,
			"unknown binary operator",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ast.DecodeContract([]byte(tt.body), 0)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
