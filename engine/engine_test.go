package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wippyai/wasm-repl/wasm/wasmtest"
)

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestEngine_CompileInstantiateCall(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	compiled, err := e.Compile(ctx, wasmtest.Arith().Bytes())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	name := e.NextName("module")
	mod, err := e.Instantiate(ctx, compiled, name)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if mod.Name() != name {
		t.Errorf("Name() = %q, want %q", mod.Name(), name)
	}

	res, err := mod.ExportedFunction("add").Call(ctx, 2, 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(res) != 1 || res[0] != 5 {
		t.Errorf("add(2, 3) = %v, want [5]", res)
	}

	if g := mod.ExportedGlobal("g32"); g == nil || g.Get() != 42 {
		t.Errorf("g32 = %v, want 42", g)
	}
}

func TestEngine_Traps(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, &Config{Interpreter: true})

	compiled, err := e.Compile(ctx, wasmtest.Arith().Bytes())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mod, err := e.Instantiate(ctx, compiled, e.NextName("module"))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	tests := []struct {
		fn     string
		params []uint64
		want   TrapID
	}{
		{fn: "div_s", params: []uint64{1, 0}, want: TrapDivByZero},
		{fn: "div_s", params: []uint64{0x80000000, 0xffffffff}, want: TrapIntegerOverflow},
		{fn: "unreachable", want: TrapUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			_, err := mod.ExportedFunction(tt.fn).Call(ctx, tt.params...)
			trap, ok := FromError(err)
			if !ok {
				t.Fatalf("%s: error %v not classified as trap", tt.fn, err)
			}
			if trap.ID != tt.want {
				t.Errorf("%s: ID = %d, want %d", tt.fn, trap.ID, tt.want)
			}
		})
	}
}

func TestEngine_CompileInvalid(t *testing.T) {
	e := newTestEngine(t, nil)
	if _, err := e.Compile(context.Background(), wasmtest.Invalid().Bytes()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestEngine_StartTrap(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	compiled, err := e.Compile(ctx, wasmtest.StartTrap().Bytes())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = e.Instantiate(ctx, compiled, e.NextName("module"))
	trap, ok := FromError(err)
	if !ok {
		t.Fatalf("start error %v not classified as trap", err)
	}
	if trap.ID != TrapUnreachable {
		t.Errorf("ID = %d, want %d", trap.ID, TrapUnreachable)
	}
}

func TestEngine_NextNameUnique(t *testing.T) {
	e := newTestEngine(t, nil)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		n := e.NextName("module")
		if seen[n] {
			t.Fatalf("duplicate name %q", n)
		}
		seen[n] = true
	}
	if n := e.NextName("wasi"); !strings.HasPrefix(n, "repl:wasi/") {
		t.Errorf("NextName(wasi) = %q", n)
	}
}

func TestEngine_WASIExit(t *testing.T) {
	ctx := context.Background()
	var stdout bytes.Buffer
	e := newTestEngine(t, &Config{Stdout: &stdout, Args: []string{"prog"}})

	hostName := e.NextName("wasi")
	host, err := e.InstantiateWASI(ctx, hostName)
	if err != nil {
		t.Fatalf("InstantiateWASI: %v", err)
	}
	found := false
	for _, n := range host.Exports() {
		if n == "proc_exit" {
			found = true
		}
	}
	if !found {
		t.Fatalf("proc_exit missing from %v", host.Exports())
	}

	fx := wasmtest.Exiter()
	fx.Imports[0].Module = hostName
	compiled, err := e.Compile(ctx, fx.Bytes())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mod, err := e.Instantiate(ctx, compiled, e.NextName("module"))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	_, err = mod.ExportedFunction("exit").Call(ctx, 42)
	code, ok := ExitCode(err)
	if !ok || code != 42 {
		t.Errorf("ExitCode = %d, %v; want 42, true (err %v)", code, ok, err)
	}

	if err := host.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty", cfg: Config{}},
		{name: "env", cfg: Config{Env: []string{"A=1", "B="}}},
		{name: "env without value", cfg: Config{Env: []string{"A"}}, wantErr: true},
		{name: "env without key", cfg: Config{Env: []string{"=1"}}, wantErr: true},
		{name: "dir", cfg: Config{Dirs: []string{"/tmp", "/tmp:/data"}}},
		{name: "empty dir", cfg: Config{Dirs: []string{":/data"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitMount(t *testing.T) {
	tests := []struct{ in, host, guest string }{
		{"/tmp", "/tmp", "/tmp"},
		{"/tmp:/data", "/tmp", "/data"},
		{"/tmp:", "/tmp", "/tmp"},
	}
	for _, tt := range tests {
		host, guest := splitMount(tt.in)
		if host != tt.host || guest != tt.guest {
			t.Errorf("splitMount(%q) = %q, %q; want %q, %q", tt.in, host, guest, tt.host, tt.guest)
		}
	}
}
