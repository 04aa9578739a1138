package ir

import (
	"fmt"
	"io"

	"mica/internal/source"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// Locations appends source line/column attribution to operations that
	// carry a span. Requires Files.
	Locations bool
	Files     *source.FileSet
}

// DumpModule writes a deterministic human-readable rendering of a module:
// the same module structure always produces the same text. Both pipeline
// stages share this format; containers only appear in mid-level dumps.
func DumpModule(w io.Writer, m *Module, types *Interner, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{w: w, types: types, opts: opts}

	fmt.Fprintf(w, "module @%s\n", m.Name)

	for _, g := range m.Globals {
		p.global(g)
	}
	for _, c := range m.Contracts {
		p.contract(c)
	}
	for _, o := range m.Objects {
		p.object(o, "")
	}
	for _, f := range m.Funcs {
		p.fn(f, "")
	}
	return p.err
}

type printer struct {
	w     io.Writer
	types *Interner
	opts  DumpOptions
	err   error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) global(g *Global) {
	init := ""
	if g.Init == InitZero {
		init = " zeroinit"
	}
	linkage := ""
	if g.Linkage == LinkagePrivate {
		linkage = " private"
	}
	p.printf("\nglobal @%s : %s space=%s align=%d%s%s\n",
		g.Name, p.types.String(g.Type), g.Space, g.Align, linkage, init)
}

func (p *printer) contract(c *Contract) {
	p.printf("\ncontract @%s {\n", c.Name)
	for _, f := range c.Funcs {
		p.fn(f, "  ")
	}
	p.printf("}\n")
}

func (p *printer) object(o *Object, indent string) {
	p.printf("\n%sobject @%s ctx=%s {\n", indent, o.Name, o.Context)
	p.blocks(o.Blocks, indent)
	if o.Child != nil {
		p.object(o.Child, indent+"  ")
	}
	p.printf("%s}\n", indent)
}

func (p *printer) fn(f *Func, indent string) {
	linkage := ""
	if f.Linkage == LinkagePrivate {
		linkage = " private"
	}
	ctx := ""
	if f.Context != ContextNone {
		ctx = fmt.Sprintf(" ctx=%s", f.Context)
	}

	p.printf("\n%sfunc @%s(", indent, f.Name)
	for i, prm := range f.Params {
		if i > 0 {
			p.printf(", ")
		}
		if prm.Value != NoValueID {
			p.printf("%%%d: %s", prm.Value, p.types.String(prm.Type))
		} else {
			p.printf("%s", p.types.String(prm.Type))
		}
	}
	p.printf(")")
	if len(f.Results) > 0 {
		p.printf(" -> ")
		for i, r := range f.Results {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%s", p.types.String(r))
		}
	}
	p.printf("%s%s", linkage, ctx)

	if f.Declared {
		p.printf(" declare\n")
		return
	}
	p.printf(" {\n")
	p.blocks(f.Blocks, indent)
	p.printf("%s}\n", indent)
}

func (p *printer) blocks(blocks []*Block, indent string) {
	for i, bb := range blocks {
		p.printf("%sbb%d:\n", indent, i)
		for j := range bb.Instrs {
			p.printf("%s  %s%s\n", indent, p.instr(&bb.Instrs[j]), p.loc(bb.Instrs[j].Span))
		}
		if bb.Term.Kind != TermNone {
			p.printf("%s  %s%s\n", indent, p.term(&bb.Term), p.loc(bb.Term.Span))
		}
	}
}

func (p *printer) instr(in *Instr) string {
	res := ""
	if in.Result != NoValueID {
		res = fmt.Sprintf("%%%d = ", in.Result)
	}
	switch in.Kind {
	case InstrConst:
		return fmt.Sprintf("%sconst %s %s", res, p.types.String(in.Type), in.Const.Value)
	case InstrAlloca:
		return fmt.Sprintf("%salloca %s", res, p.types.String(in.Alloca.Elem))
	case InstrLoad:
		return fmt.Sprintf("%sload %s, %%%d space=%s align=%d",
			res, p.types.String(in.Type), in.Load.Addr, in.Load.Space, in.Load.Align)
	case InstrStore:
		return fmt.Sprintf("store %%%d, %%%d space=%s align=%d",
			in.Store.Value, in.Store.Addr, in.Store.Space, in.Store.Align)
	case InstrBin:
		return fmt.Sprintf("%s%s %s %%%d, %%%d",
			res, in.Bin.Op, p.types.String(in.Type), in.Bin.Left, in.Bin.Right)
	case InstrCmp:
		return fmt.Sprintf("%scmp %s %%%d, %%%d", res, in.Cmp.Pred, in.Cmp.Left, in.Cmp.Right)
	case InstrCast:
		return fmt.Sprintf("%s%s %%%d to %s", res, in.Cast.Op, in.Cast.Value, p.types.String(in.Type))
	case InstrGEP:
		return fmt.Sprintf("%sgep %s, %%%d[%%%d]",
			res, p.types.String(in.GEP.Elem), in.GEP.Base, in.GEP.Index)
	case InstrAddrOf:
		return fmt.Sprintf("%saddrof @%s", res, in.AddrOf.Global)
	case InstrCall:
		args := ""
		for i, a := range in.Call.Args {
			if i > 0 {
				args += ", "
			}
			args += fmt.Sprintf("%%%d", a)
		}
		return fmt.Sprintf("%scall @%s(%s)", res, in.Call.Callee, args)
	}
	return fmt.Sprintf("instr(%d)", in.Kind)
}

func (p *printer) term(t *Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return fmt.Sprintf("ret %%%d", t.Return.Value)
		}
		return "ret"
	case TermBr:
		return fmt.Sprintf("br bb%d", t.Br.Target)
	case TermCondBr:
		return fmt.Sprintf("condbr %%%d, bb%d, bb%d", t.CondBr.Cond, t.CondBr.Then, t.CondBr.Else)
	case TermUnreachable:
		return "unreachable"
	case TermSolReturn:
		return fmt.Sprintf("sol.return %%%d, %%%d", t.SolReturn.Offset, t.SolReturn.Length)
	}
	return fmt.Sprintf("term(%d)", t.Kind)
}

func (p *printer) loc(span source.Span) string {
	if !p.opts.Locations || p.opts.Files == nil || span.Empty() {
		return ""
	}
	if int(span.File) >= p.opts.Files.Len() {
		return ""
	}
	start, _ := p.opts.Files.Resolve(span)
	return fmt.Sprintf(" loc(%d:%d)", start.Line, start.Col)
}
