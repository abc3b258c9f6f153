package wasmtest

import "github.com/wippyai/wasm-repl/wasm"

// Arith is a module exercising every value type the session renders.
//
//	add(i32, i32) i32         div_s(i32, i32) i32
//	nop()                     unreachable()
//	add64(i64, i64) i64       ref_id(externref) externref
//	funcref_id(funcref) funcref
//	floats(f32, f64) (f32, f64)
//	recurse()                 "☃" aliases nop
//	global g32 i32 = 42       global g64 i64 = -1
func Arith() Module {
	return Module{
		Types: []FuncType{
			{Params: []byte{I32, I32}, Results: []byte{I32}},
			{},
			{Params: []byte{I64, I64}, Results: []byte{I64}},
			{Params: []byte{ExternRef}, Results: []byte{ExternRef}},
			{Params: []byte{FuncRef}, Results: []byte{FuncRef}},
			{Params: []byte{F32, F64}, Results: []byte{F32, F64}},
		},
		Funcs: []Func{
			{Type: 0, Body: []byte{OpLocalGet, 0, OpLocalGet, 1, OpI32Add}},
			{Type: 0, Body: []byte{OpLocalGet, 0, OpLocalGet, 1, OpI32DivS}},
			{Type: 1},
			{Type: 1, Body: []byte{OpUnreachable}},
			{Type: 2, Body: []byte{OpLocalGet, 0, OpLocalGet, 1, OpI64Add}},
			{Type: 3, Body: []byte{OpLocalGet, 0}},
			{Type: 4, Body: []byte{OpLocalGet, 0}},
			{Type: 5, Body: []byte{OpLocalGet, 0, OpLocalGet, 1}},
			{Type: 1, Body: []byte{OpCall, 8}},
		},
		Globals: []Global{
			{Type: I32, Init: I32Const(42)},
			{Type: I64, Init: I64Const(-1)},
		},
		Exports: []wasm.Export{
			FuncExport("add", 0),
			FuncExport("div_s", 1),
			FuncExport("nop", 2),
			FuncExport("unreachable", 3),
			FuncExport("add64", 4),
			FuncExport("ref_id", 5),
			FuncExport("funcref_id", 6),
			FuncExport("floats", 7),
			FuncExport("recurse", 8),
			FuncExport("☃", 2),
			GlobalExport("g32", 0),
			GlobalExport("g64", 1),
		},
	}
}

// Const exports value() returning v.
func Const(v int32) Module {
	return Module{
		Types:   []FuncType{{Results: []byte{I32}}},
		Funcs:   []Func{{Type: 0, Body: I32Const(v)}},
		Exports: []wasm.Export{FuncExport("value", 0)},
	}
}

// Forwarder imports value() from module and re-exports it as get().
func Forwarder(module string) Module {
	return Module{
		Types:   []FuncType{{Results: []byte{I32}}},
		Imports: []wasm.Import{FuncImport(module, "value", 0)},
		Funcs:   []Func{{Type: 0, Body: []byte{OpCall, 0}}},
		Exports: []wasm.Export{FuncExport("get", 1)},
	}
}

// Exiter exports exit(code) which calls WASI proc_exit.
func Exiter() Module {
	return Module{
		Types:   []FuncType{{Params: []byte{I32}}},
		Imports: []wasm.Import{FuncImport("wasi_snapshot_preview1", "proc_exit", 0)},
		Funcs:   []Func{{Type: 0, Body: []byte{OpLocalGet, 0, OpCall, 0}}},
		Exports: []wasm.Export{FuncExport("exit", 1)},
	}
}

// StartExit has a start function that calls WASI proc_exit(code).
func StartExit(code int32) Module {
	return Module{
		Types:   []FuncType{{Params: []byte{I32}}, {}},
		Imports: []wasm.Import{FuncImport("wasi_snapshot_preview1", "proc_exit", 0)},
		Funcs:   []Func{{Type: 1, Body: Ops(I32Const(code), []byte{OpCall, 0})}},
		Start:   Uint32(1),
	}
}

// StartTrap has a start function that executes unreachable.
func StartTrap() Module {
	return Module{
		Types: []FuncType{{}},
		Funcs: []Func{{Type: 0, Body: []byte{OpUnreachable}}},
		Start: Uint32(0),
	}
}

// Invalid decodes cleanly but fails validation: add has no operands.
func Invalid() Module {
	return Module{
		Types:   []FuncType{{Results: []byte{I32}}},
		Funcs:   []Func{{Type: 0, Body: []byte{OpI32Add}}},
		Exports: []wasm.Export{FuncExport("bad", 0)},
	}
}
