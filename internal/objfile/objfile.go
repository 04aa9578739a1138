// Package objfile reads and writes the binary object-file form of a
// lowered module. The format is a schema-versioned msgpack payload; source
// locations are not carried (they belong to the textual dump).
package objfile

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/vmihailenco/msgpack/v5"

	"mica/internal/ir"
)

// Schema version - increment when the payload format changes.
const schemaVersion uint16 = 1

type wireType struct {
	Kind  uint8
	Bits  uint32
	Space uint8
	Elem  uint32
	Len   uint32
}

type wireGlobal struct {
	Name     string
	Type     uint32
	Space    uint8
	Align    uint32
	Private  bool
	ZeroInit bool
}

type wireParam struct {
	Type  uint32
	Value int32
}

type wireInstr struct {
	Kind   uint8
	Result int32
	Type   uint32

	Const     string // decimal
	Elem      uint32
	Addr      int32
	Space     uint8
	Align     uint32
	Value     int32
	Op        uint8
	Left      int32
	Right     int32
	Base      int32
	Index     int32
	Global    string
	Callee    string
	Args      []int32
	HasResult bool
}

type wireTerm struct {
	Kind     uint8
	HasValue bool
	Value    int32
	Cond     int32
	Then     int32
	Else     int32
	Offset   int32
	Length   int32
}

type wireBlock struct {
	Instrs []wireInstr
	Term   wireTerm
}

type wireFunc struct {
	Name     string
	Params   []wireParam
	Results  []uint32
	Blocks   []wireBlock
	Private  bool
	Context  uint8
	Declared bool
}

type payload struct {
	Schema  uint16
	Name    string
	Types   []wireType
	Globals []wireGlobal
	Funcs   []wireFunc
}

// Encode writes the module's object-file form to w. Only a fully lowered
// module can be written; residual contract or object containers are an
// error.
func Encode(w io.Writer, m *ir.Module, types *ir.Interner) error {
	if len(m.Contracts) != 0 || len(m.Objects) != 0 {
		return errors.New("objfile: module still holds unlowered containers")
	}

	p := payload{Schema: schemaVersion, Name: m.Name}
	for id := 0; id < types.Count(); id++ {
		// Slot 0 is the interner's reserved invalid id; it travels as the
		// zero entry so decoded ids line up.
		t, ok := types.Lookup(ir.TypeID(id))
		if !ok {
			p.Types = append(p.Types, wireType{})
			continue
		}
		p.Types = append(p.Types, wireType{
			Kind:  uint8(t.Kind),
			Bits:  t.Bits,
			Space: uint8(t.Space),
			Elem:  uint32(t.Elem),
			Len:   t.Len,
		})
	}
	for _, g := range m.Globals {
		p.Globals = append(p.Globals, wireGlobal{
			Name:     g.Name,
			Type:     uint32(g.Type),
			Space:    uint8(g.Space),
			Align:    g.Align,
			Private:  g.Linkage == ir.LinkagePrivate,
			ZeroInit: g.Init == ir.InitZero,
		})
	}
	for _, f := range m.Funcs {
		wf := wireFunc{
			Name:     f.Name,
			Private:  f.Linkage == ir.LinkagePrivate,
			Context:  uint8(f.Context),
			Declared: f.Declared,
		}
		for _, prm := range f.Params {
			wf.Params = append(wf.Params, wireParam{Type: uint32(prm.Type), Value: int32(prm.Value)})
		}
		for _, ty := range f.Results {
			wf.Results = append(wf.Results, uint32(ty))
		}
		for _, blk := range f.Blocks {
			wb := wireBlock{Term: encodeTerm(&blk.Term)}
			for i := range blk.Instrs {
				wi, err := encodeInstr(&blk.Instrs[i])
				if err != nil {
					return fmt.Errorf("objfile: function %s: %w", f.Name, err)
				}
				wb.Instrs = append(wb.Instrs, wi)
			}
			wf.Blocks = append(wf.Blocks, wb)
		}
		p.Funcs = append(p.Funcs, wf)
	}
	return msgpack.NewEncoder(w).Encode(&p)
}

func encodeInstr(in *ir.Instr) (wireInstr, error) {
	wi := wireInstr{
		Kind:   uint8(in.Kind),
		Result: int32(in.Result),
		Type:   uint32(in.Type),
	}
	switch in.Kind {
	case ir.InstrConst:
		if in.Const.Value == nil {
			return wi, errors.New("constant without a value")
		}
		wi.Const = in.Const.Value.Text(10)
	case ir.InstrAlloca:
		wi.Elem = uint32(in.Alloca.Elem)
	case ir.InstrLoad:
		wi.Addr = int32(in.Load.Addr)
		wi.Space = uint8(in.Load.Space)
		wi.Align = in.Load.Align
	case ir.InstrStore:
		wi.Value = int32(in.Store.Value)
		wi.Addr = int32(in.Store.Addr)
		wi.Space = uint8(in.Store.Space)
		wi.Align = in.Store.Align
	case ir.InstrBin:
		wi.Op = uint8(in.Bin.Op)
		wi.Left = int32(in.Bin.Left)
		wi.Right = int32(in.Bin.Right)
	case ir.InstrCmp:
		wi.Op = uint8(in.Cmp.Pred)
		wi.Left = int32(in.Cmp.Left)
		wi.Right = int32(in.Cmp.Right)
	case ir.InstrCast:
		wi.Op = uint8(in.Cast.Op)
		wi.Value = int32(in.Cast.Value)
	case ir.InstrGEP:
		wi.Base = int32(in.GEP.Base)
		wi.Elem = uint32(in.GEP.Elem)
		wi.Index = int32(in.GEP.Index)
	case ir.InstrAddrOf:
		wi.Global = in.AddrOf.Global
	case ir.InstrCall:
		wi.Callee = in.Call.Callee
		wi.HasResult = in.Call.HasResult
		for _, a := range in.Call.Args {
			wi.Args = append(wi.Args, int32(a))
		}
	default:
		return wi, fmt.Errorf("unknown instruction kind %d", in.Kind)
	}
	return wi, nil
}

func encodeTerm(t *ir.Terminator) wireTerm {
	wt := wireTerm{Kind: uint8(t.Kind)}
	switch t.Kind {
	case ir.TermReturn:
		wt.HasValue = t.Return.HasValue
		wt.Value = int32(t.Return.Value)
	case ir.TermBr:
		wt.Then = int32(t.Br.Target)
	case ir.TermCondBr:
		wt.Cond = int32(t.CondBr.Cond)
		wt.Then = int32(t.CondBr.Then)
		wt.Else = int32(t.CondBr.Else)
	case ir.TermSolReturn:
		wt.Offset = int32(t.SolReturn.Offset)
		wt.Length = int32(t.SolReturn.Length)
	}
	return wt
}

// Decode reads a module back from its object-file form. The returned
// interner holds exactly the types the module references.
func Decode(r io.Reader) (*ir.Module, *ir.Interner, error) {
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, nil, fmt.Errorf("objfile: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, nil, fmt.Errorf("objfile: unsupported schema version %d (want %d)", p.Schema, schemaVersion)
	}

	// Re-interning preserves IDs: descriptors are written in ID order and
	// the interner hands them back densely.
	types := ir.NewInterner()
	for id, wt := range p.Types {
		t := ir.Type{
			Kind:  ir.Kind(wt.Kind),
			Bits:  wt.Bits,
			Space: ir.AddrSpace(wt.Space),
			Elem:  ir.TypeID(wt.Elem),
			Len:   wt.Len,
		}
		if t.Kind == ir.KindInvalid {
			continue // the reserved slot
		}
		if got := types.Intern(t); got != ir.TypeID(id) {
			return nil, nil, fmt.Errorf("objfile: type table out of order at id %d", id)
		}
	}

	m := ir.NewModule(p.Name)
	for _, wg := range p.Globals {
		m.Globals = append(m.Globals, &ir.Global{
			Name:    wg.Name,
			Type:    ir.TypeID(wg.Type),
			Space:   ir.AddrSpace(wg.Space),
			Align:   wg.Align,
			Linkage: linkageOf(wg.Private),
			Init:    initOf(wg.ZeroInit),
		})
	}
	for _, wf := range p.Funcs {
		f := &ir.Func{
			Name:     wf.Name,
			Linkage:  linkageOf(wf.Private),
			Context:  ir.Context(wf.Context),
			Declared: wf.Declared,
		}
		for _, wp := range wf.Params {
			f.Params = append(f.Params, ir.Param{Type: ir.TypeID(wp.Type), Value: ir.ValueID(wp.Value)})
		}
		for _, ty := range wf.Results {
			f.Results = append(f.Results, ir.TypeID(ty))
		}
		for _, wb := range wf.Blocks {
			blk := &ir.Block{Term: decodeTerm(&wb.Term)}
			for i := range wb.Instrs {
				in, err := decodeInstr(&wb.Instrs[i])
				if err != nil {
					return nil, nil, fmt.Errorf("objfile: function %s: %w", f.Name, err)
				}
				blk.Instrs = append(blk.Instrs, in)
			}
			f.Blocks = append(f.Blocks, blk)
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, types, nil
}

func decodeInstr(wi *wireInstr) (ir.Instr, error) {
	in := ir.Instr{
		Kind:   ir.InstrKind(wi.Kind),
		Result: ir.ValueID(wi.Result),
		Type:   ir.TypeID(wi.Type),
	}
	switch in.Kind {
	case ir.InstrConst:
		v, ok := new(big.Int).SetString(wi.Const, 10)
		if !ok {
			return in, fmt.Errorf("bad constant literal %q", wi.Const)
		}
		in.Const.Value = v
	case ir.InstrAlloca:
		in.Alloca.Elem = ir.TypeID(wi.Elem)
	case ir.InstrLoad:
		in.Load = ir.LoadInstr{Addr: ir.ValueID(wi.Addr), Space: ir.AddrSpace(wi.Space), Align: wi.Align}
	case ir.InstrStore:
		in.Store = ir.StoreInstr{Value: ir.ValueID(wi.Value), Addr: ir.ValueID(wi.Addr), Space: ir.AddrSpace(wi.Space), Align: wi.Align}
	case ir.InstrBin:
		in.Bin = ir.BinInstr{Op: ir.BinOp(wi.Op), Left: ir.ValueID(wi.Left), Right: ir.ValueID(wi.Right)}
	case ir.InstrCmp:
		in.Cmp = ir.CmpInstr{Pred: ir.CmpPred(wi.Op), Left: ir.ValueID(wi.Left), Right: ir.ValueID(wi.Right)}
	case ir.InstrCast:
		in.Cast = ir.CastInstr{Op: ir.CastOp(wi.Op), Value: ir.ValueID(wi.Value)}
	case ir.InstrGEP:
		in.GEP = ir.GEPInstr{Base: ir.ValueID(wi.Base), Elem: ir.TypeID(wi.Elem), Index: ir.ValueID(wi.Index)}
	case ir.InstrAddrOf:
		in.AddrOf.Global = wi.Global
	case ir.InstrCall:
		in.Call.Callee = wi.Callee
		in.Call.HasResult = wi.HasResult
		for _, a := range wi.Args {
			in.Call.Args = append(in.Call.Args, ir.ValueID(a))
		}
	default:
		return in, fmt.Errorf("unknown instruction kind %d", wi.Kind)
	}
	return in, nil
}

func decodeTerm(wt *wireTerm) ir.Terminator {
	t := ir.Terminator{Kind: ir.TermKind(wt.Kind)}
	switch t.Kind {
	case ir.TermReturn:
		t.Return = ir.ReturnTerm{HasValue: wt.HasValue, Value: ir.ValueID(wt.Value)}
	case ir.TermBr:
		t.Br.Target = ir.BlockID(wt.Then)
	case ir.TermCondBr:
		t.CondBr = ir.CondBrTerm{Cond: ir.ValueID(wt.Cond), Then: ir.BlockID(wt.Then), Else: ir.BlockID(wt.Else)}
	case ir.TermSolReturn:
		t.SolReturn = ir.SolReturnTerm{Offset: ir.ValueID(wt.Offset), Length: ir.ValueID(wt.Length)}
	}
	return t
}

func linkageOf(private bool) ir.Linkage {
	if private {
		return ir.LinkagePrivate
	}
	return ir.LinkageExternal
}

func initOf(zero bool) ir.GlobalInit {
	if zero {
		return ir.InitZero
	}
	return ir.InitNone
}
