package driver

import (
	"bytes"
	"fmt"

	"mica/internal/ast"
	"mica/internal/diag"
	"mica/internal/eravm"
	"mica/internal/ir"
	"mica/internal/objfile"
	"mica/internal/source"
)

// Result is the serialized output for one compiled contract.
type Result struct {
	Path   string
	Output []byte
}

// CompileFile loads one contract description from disk and compiles it
// under job.
func CompileFile(fset *source.FileSet, path string, job Job) (*Result, error) {
	id, err := fset.Load(path)
	if err != nil {
		return nil, err
	}
	return compile(fset, id, job)
}

// CompileSource compiles an in-memory contract description under job.
func CompileSource(fset *source.FileSet, name string, data []byte, job Job) (*Result, error) {
	id := fset.AddVirtual(name, data)
	return compile(fset, id, job)
}

// compile is the pipeline for one unit. Every unit gets its own module,
// interner, and builder; nothing is shared across units.
func compile(fset *source.FileSet, id source.FileID, job Job) (*Result, error) {
	if err := job.Check(); err != nil {
		return nil, err
	}
	file := fset.Get(id)
	contract, err := ast.DecodeContract(file.Content, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Path, err)
	}

	mod := ir.NewModule(contract.Name)
	types := ir.NewInterner()
	b := ir.NewBuilder(mod, types)
	if _, err := ir.LowerContract(b, contract); err != nil {
		return nil, err
	}

	if job.Stage == StageLowered {
		// Target selection is a formality until a second backend exists.
		if job.Target != TargetEraVM {
			return nil, fmt.Errorf("target %d has no lowering pass", job.Target)
		}
		if err := eravm.Lower(mod, types); err != nil {
			return nil, err
		}
		if err := ir.Validate(mod, types); err != nil {
			return nil, diag.Verify(err)
		}
	}

	var buf bytes.Buffer
	switch job.Format {
	case FormatText:
		opts := ir.DumpOptions{Locations: job.DebugInfo, Files: fset}
		if err := ir.DumpModule(&buf, mod, types, opts); err != nil {
			return nil, err
		}
	case FormatBinary:
		if err := objfile.Encode(&buf, mod, types); err != nil {
			return nil, err
		}
	}
	return &Result{Path: file.Path, Output: buf.Bytes()}, nil
}
