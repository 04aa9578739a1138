package source

import (
	"testing"
)

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.sol", []byte("contract C {\n  fn f() {}\n}\n"))

	tests := []struct {
		name string
		off  uint32
		line uint32
		col  uint32
	}{
		{name: "start_of_file", off: 0, line: 1, col: 1},
		{name: "mid_first_line", off: 9, line: 1, col: 10},
		{name: "start_of_second_line", off: 13, line: 2, col: 1},
		{name: "third_line", off: 25, line: 3, col: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if start.Line != tt.line || start.Col != tt.col {
				t.Fatalf("offset %d: expected %d:%d, got %d:%d", tt.off, tt.line, tt.col, start.Line, start.Col)
			}
		})
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc\n"))
	if !changed {
		t.Fatal("expected CRLF normalization to report a change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("unexpected normalization result: %q", out)
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.sol", []byte("a"))
	b := fs.AddVirtual("b.sol", []byte("b"))
	if a != 0 || b != 1 {
		t.Fatalf("expected sequential IDs 0,1 got %d,%d", a, b)
	}
	if got, ok := fs.Lookup("b.sol"); !ok || got != b {
		t.Fatalf("Lookup(b.sol) = %d,%v", got, ok)
	}
}
