package ir

import (
	"errors"
	"fmt"
)

// Validate checks the well-formedness of a lowered module. It is the hard
// gate between target lowering and serialization: a module that fails here
// is never handed downstream.
func Validate(m *Module, types *Interner) error {
	if m == nil {
		return nil
	}
	var errs []error

	// Target lowering must leave no containers behind.
	for _, c := range m.Contracts {
		errs = append(errs, fmt.Errorf("residual contract container %s", c.Name))
	}
	for _, o := range m.Objects {
		errs = append(errs, fmt.Errorf("residual object container %s", o.Name))
	}

	errs = append(errs, validateGlobals(m, types))

	seen := make(map[string]bool, len(m.Funcs))
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("duplicate function %s", f.Name))
		}
		seen[f.Name] = true
		if err := validateFunc(m, f, types); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}

	return errors.Join(errs...)
}

func validateGlobals(m *Module, types *Interner) error {
	var errs []error
	seen := make(map[string]bool, len(m.Globals))
	for _, g := range m.Globals {
		if g == nil {
			continue
		}
		if seen[g.Name] {
			errs = append(errs, fmt.Errorf("duplicate global %s", g.Name))
		}
		seen[g.Name] = true
		if _, ok := types.Lookup(g.Type); !ok {
			errs = append(errs, fmt.Errorf("global %s: unknown type", g.Name))
		}
		if g.Align != AlignFor(g.Space) {
			errs = append(errs, fmt.Errorf("global %s: alignment %d does not match address space %s",
				g.Name, g.Align, g.Space))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(m *Module, f *Func, types *Interner) error {
	var errs []error

	if len(f.Results) > 1 {
		errs = append(errs, fmt.Errorf("%d result types; at most one is supported", len(f.Results)))
	}
	if f.Declared {
		if len(f.Blocks) > 0 {
			return errors.Join(append(errs, fmt.Errorf("declaration has a body"))...)
		}
		return errors.Join(errs...)
	}
	if len(f.Blocks) == 0 {
		errs = append(errs, fmt.Errorf("defined function has no blocks"))
		return errors.Join(errs...)
	}

	if err := validateTerminators(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateValues(m, f); err != nil {
		errs = append(errs, err)
	}
	if err := validateAlignment(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateCalls(m, f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateTerminators checks that every block ends in exactly one
// terminator, that no high-level return survived lowering, and that branch
// targets exist.
func validateTerminators(f *Func) error {
	var errs []error

	blockExists := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}

	for i, bb := range f.Blocks {
		switch bb.Term.Kind {
		case TermNone:
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		case TermSolReturn:
			errs = append(errs, fmt.Errorf("bb%d: high-level return survived lowering", i))
		case TermBr:
			if !blockExists(bb.Term.Br.Target) {
				errs = append(errs, fmt.Errorf("bb%d: branch target bb%d does not exist", i, bb.Term.Br.Target))
			}
		case TermCondBr:
			if !blockExists(bb.Term.CondBr.Then) {
				errs = append(errs, fmt.Errorf("bb%d: then target bb%d does not exist", i, bb.Term.CondBr.Then))
			}
			if !blockExists(bb.Term.CondBr.Else) {
				errs = append(errs, fmt.Errorf("bb%d: else target bb%d does not exist", i, bb.Term.CondBr.Else))
			}
		case TermReturn:
			hasValue := bb.Term.Return.HasValue
			if hasValue && len(f.Results) == 0 {
				errs = append(errs, fmt.Errorf("bb%d: return with value in void function", i))
			}
			if !hasValue && len(f.Results) == 1 {
				errs = append(errs, fmt.Errorf("bb%d: return without value in non-void function", i))
			}
		}
	}
	return errors.Join(errs...)
}

// validateValues checks single assignment and definition-before-use in
// layout order.
func validateValues(m *Module, f *Func) error {
	var errs []error

	defined := make(map[ValueID]bool)
	for _, p := range f.Params {
		if p.Value == NoValueID {
			errs = append(errs, fmt.Errorf("unbound parameter value"))
			continue
		}
		defined[p.Value] = true
	}

	use := func(v ValueID, ctx string) {
		if v == NoValueID || !defined[v] {
			errs = append(errs, fmt.Errorf("%s: use of undefined value %%%d", ctx, v))
		}
	}

	for i, bb := range f.Blocks {
		for j := range bb.Instrs {
			in := &bb.Instrs[j]
			ctx := fmt.Sprintf("bb%d instr %d", i, j)

			switch in.Kind {
			case InstrConst, InstrAlloca:
				// no operands
			case InstrLoad:
				use(in.Load.Addr, ctx)
			case InstrStore:
				use(in.Store.Value, ctx)
				use(in.Store.Addr, ctx)
			case InstrBin:
				use(in.Bin.Left, ctx)
				use(in.Bin.Right, ctx)
			case InstrCmp:
				use(in.Cmp.Left, ctx)
				use(in.Cmp.Right, ctx)
			case InstrCast:
				use(in.Cast.Value, ctx)
			case InstrGEP:
				use(in.GEP.Base, ctx)
				use(in.GEP.Index, ctx)
			case InstrAddrOf:
				if m.FindGlobal(in.AddrOf.Global) == nil {
					errs = append(errs, fmt.Errorf("%s: address of unknown global %s", ctx, in.AddrOf.Global))
				}
			case InstrCall:
				for _, a := range in.Call.Args {
					use(a, ctx)
				}
			}

			if in.Result != NoValueID {
				if defined[in.Result] {
					errs = append(errs, fmt.Errorf("%s: value %%%d defined twice", ctx, in.Result))
				}
				defined[in.Result] = true
			}
		}

		ctx := fmt.Sprintf("bb%d terminator", i)
		switch bb.Term.Kind {
		case TermReturn:
			if bb.Term.Return.HasValue {
				use(bb.Term.Return.Value, ctx)
			}
		case TermCondBr:
			use(bb.Term.CondBr.Cond, ctx)
		case TermSolReturn:
			use(bb.Term.SolReturn.Offset, ctx)
			use(bb.Term.SolReturn.Length, ctx)
		}
	}

	return errors.Join(errs...)
}

// validateAlignment enforces the address-space alignment rule on every load
// and store: word-aligned for stack-resident scalars, byte-aligned
// otherwise.
func validateAlignment(f *Func) error {
	var errs []error
	for i, bb := range f.Blocks {
		for j := range bb.Instrs {
			in := &bb.Instrs[j]
			switch in.Kind {
			case InstrLoad:
				if in.Load.Align != AlignFor(in.Load.Space) {
					errs = append(errs, fmt.Errorf("bb%d instr %d: load alignment %d does not match address space %s",
						i, j, in.Load.Align, in.Load.Space))
				}
			case InstrStore:
				if in.Store.Align != AlignFor(in.Store.Space) {
					errs = append(errs, fmt.Errorf("bb%d instr %d: store alignment %d does not match address space %s",
						i, j, in.Store.Align, in.Store.Space))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// validateCalls checks that every call target resolves to a module function
// with a matching arity.
func validateCalls(m *Module, f *Func) error {
	var errs []error
	for i, bb := range f.Blocks {
		for j := range bb.Instrs {
			in := &bb.Instrs[j]
			if in.Kind != InstrCall {
				continue
			}
			callee := m.FindFunc(in.Call.Callee)
			if callee == nil {
				errs = append(errs, fmt.Errorf("bb%d instr %d: call to unknown function %s", i, j, in.Call.Callee))
				continue
			}
			if len(in.Call.Args) != len(callee.Params) {
				errs = append(errs, fmt.Errorf("bb%d instr %d: call to %s with %d args, want %d",
					i, j, in.Call.Callee, len(in.Call.Args), len(callee.Params)))
			}
			if in.Call.HasResult && len(callee.Results) == 0 {
				errs = append(errs, fmt.Errorf("bb%d instr %d: call expects a result from void function %s",
					i, j, in.Call.Callee))
			}
		}
	}
	return errors.Join(errs...)
}
