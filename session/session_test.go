package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/wasm/wasmtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSession(t *testing.T, cfg Config) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg.Out = &out
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s, &out
}

func mustLoad(t *testing.T, s *Session, name string, fx wasmtest.Module) {
	t.Helper()
	if err := s.Load(context.Background(), name, fx.Bytes(), SourceHex); err != nil {
		t.Fatalf("Load(%q): %v", name, err)
	}
}

func wantCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	if got := errors.CodeOf(err); got != code {
		t.Fatalf("error %v: code = %d, want %d", err, got, code)
	}
}

func takeOutput(out *bytes.Buffer) string {
	s := out.String()
	out.Reset()
	return s
}

func TestFind(t *testing.T) {
	s, _ := newSession(t, Config{})

	_, err := s.Find("")
	wantCode(t, err, errors.EPROTO)

	mustLoad(t, s, "", wasmtest.Arith())
	mustLoad(t, s, "c", wasmtest.Const(1))
	mustLoad(t, s, "", wasmtest.Const(2))

	latest, err := s.Find("")
	if err != nil {
		t.Fatalf("Find(): %v", err)
	}
	if latest.Name() != "" || latest != s.modules[2] {
		t.Errorf("Find() returned %q, want most recent module", latest.Name())
	}

	named, err := s.Find("c")
	if err != nil {
		t.Fatalf("Find(c): %v", err)
	}
	if named != s.modules[1] {
		t.Error("Find(c) returned the wrong module")
	}

	_, err = s.Find("missing")
	wantCode(t, err, errors.ENOENT)
}

func TestLoad_Stages(t *testing.T) {
	tests := []struct {
		name string
		want string
		data []byte
		code errors.Code
	}{
		{
			name: "decode",
			data: []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00},
			want: "load error: unknown binary version\n",
			code: errors.EINVAL,
		},
		{
			name: "validate",
			data: wasmtest.Invalid().Bytes(),
			want: "validation error: ",
			code: errors.EINVAL,
		},
		{
			name: "unresolved import",
			data: wasmtest.Forwarder("M").Bytes(),
			want: "instantiation error: unknown import \"M\" \"value\"\n",
			code: errors.ENOENT,
		},
		{
			name: "start trap",
			data: wasmtest.StartTrap().Bytes(),
			want: "Error: [trap] unreachable executed (8): unreachable\n",
			code: errors.EFAULT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := newSession(t, Config{})
			err := s.Load(context.Background(), "m", tt.data, SourceHex)
			wantCode(t, err, tt.code)

			if got := out.String(); !strings.HasPrefix(got, tt.want) {
				t.Errorf("output = %q, want prefix %q", got, tt.want)
			}
			if st := s.Stats(); st.Modules != 0 {
				t.Errorf("failed load registered a module: %+v", st)
			}
			if err := s.ledger.check(); err != nil {
				t.Errorf("failed load leaked: %v", err)
			}
		})
	}
}

func TestLoad_Capacity(t *testing.T) {
	s, _ := newSession(t, Config{MaxModules: 1})
	mustLoad(t, s, "", wasmtest.Const(1))

	err := s.Load(context.Background(), "", wasmtest.Const(2).Bytes(), SourceHex)
	wantCode(t, err, errors.EOVERFLOW)
	wantCode(t, s.LoadFile(context.Background(), "", "/nonexistent"), errors.EOVERFLOW)
}

func TestLoadFile(t *testing.T) {
	s, _ := newSession(t, Config{})
	path := filepath.Join(t.TempDir(), "arith.wasm")
	if err := os.WriteFile(path, wasmtest.Arith().Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.LoadFile(context.Background(), "a", path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	mod, err := s.Find("a")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if mod.Source() != SourceFile {
		t.Errorf("Source() = %v, want file", mod.Source())
	}

	err = s.LoadFile(context.Background(), "", filepath.Join(t.TempDir(), "missing.wasm"))
	wantCode(t, err, errors.ENOENT)
}

func TestRegister_Shadowing(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	mustLoad(t, s, "", wasmtest.Const(7))
	if err := s.Register(ctx, "", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mustLoad(t, s, "first", wasmtest.Forwarder("M"))

	mustLoad(t, s, "", wasmtest.Const(9))
	if err := s.Register(ctx, "", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mustLoad(t, s, "second", wasmtest.Forwarder("M"))

	takeOutput(out)
	if err := s.Invoke(ctx, "first", "get", nil); err != nil {
		t.Fatalf("Invoke(first): %v", err)
	}
	if err := s.Invoke(ctx, "second", "get", nil); err != nil {
		t.Fatalf("Invoke(second): %v", err)
	}
	if diff := cmp.Diff("Result: 7:i32\nResult: 9:i32\n", takeOutput(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	want := Stats{Modules: 4, Registrations: 2, Providers: 2}
	if diff := cmp.Diff(want, s.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if diff := cmp.Diff(Stats{}, s.Stats()); diff != "" {
		t.Errorf("Stats after reset (-want +got):\n%s", diff)
	}
}

func TestRegister_NamedModule(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	mustLoad(t, s, "seven", wasmtest.Const(7))
	mustLoad(t, s, "", wasmtest.Const(9))
	if err := s.Register(ctx, "seven", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mustLoad(t, s, "", wasmtest.Forwarder("M"))

	takeOutput(out)
	if err := s.Invoke(ctx, "", "get", nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := takeOutput(out); got != "Result: 7:i32\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{MaxRegistrations: 1})

	wantCode(t, s.Register(ctx, "", "M"), errors.EPROTO)

	mustLoad(t, s, "", wasmtest.Const(1))
	wantCode(t, s.Register(ctx, "missing", "M"), errors.ENOENT)

	if err := s.Register(ctx, "", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	wantCode(t, s.Register(ctx, "", "N"), errors.EOVERFLOW)
}

func TestRegister_KindMismatch(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	// g32 is a global, so it cannot satisfy a function import
	mustLoad(t, s, "", wasmtest.Arith())
	if err := s.Register(ctx, "", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	fx := wasmtest.Forwarder("M")
	fx.Imports[0].Name = "g32"
	takeOutput(out)

	err := s.Load(ctx, "", fx.Bytes(), SourceHex)
	wantCode(t, err, errors.ENOENT)
	if got := takeOutput(out); got != "instantiation error: unknown import \"M\" \"g32\"\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRegister_SignatureMismatch(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	mustLoad(t, s, "", wasmtest.Arith())
	if err := s.Register(ctx, "", "M"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	fx := wasmtest.Forwarder("M")
	fx.Imports[0].Name = "add"
	takeOutput(out)

	err := s.Load(ctx, "", fx.Bytes(), SourceHex)
	wantCode(t, err, errors.EINVAL)
	if got := takeOutput(out); !strings.HasPrefix(got, "instantiation error: ") {
		t.Errorf("output = %q", got)
	}
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})
	mustLoad(t, s, "", wasmtest.Arith())
	takeOutput(out)

	tests := []struct {
		fn   string
		want string
		args []string
	}{
		{fn: "add", args: []string{"1", "2"}, want: "Result: 3:i32\n"},
		{fn: "add", args: []string{"0xffffffff", "1"}, want: "Result: 0:i32\n"},
		{fn: "add64", args: []string{"0xffffffffffffffff", "0"}, want: "Result: 18446744073709551615:i64\n"},
		{fn: "nop", want: "Result: <Empty Stack>\n"},
		{fn: `\xe2\x98\x83`, want: "Result: <Empty Stack>\n"},
		{fn: `"nop"`, want: "Result: <Empty Stack>\n"},
		{fn: "floats", args: []string{"1065353216", "0x3ff0000000000000"}, want: "Result: 1065353216:f32, 4607182418800017408:f64\n"},
		{fn: "ref_id", args: []string{"null"}, want: "Result: null:externref\n"},
		{fn: "ref_id", args: []string{"0"}, want: "Result: 0:externref\n"},
		{fn: "ref_id", args: []string{"5"}, want: "Result: 5:externref\n"},
		{fn: "funcref_id", args: []string{"null"}, want: "Result: null:funcref\n"},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			if err := s.Invoke(ctx, "", tt.fn, tt.args); err != nil {
				t.Fatalf("Invoke(%s %v): %v", tt.fn, tt.args, err)
			}
			if got := takeOutput(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvoke_Errors(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	wantCode(t, s.Invoke(ctx, "", "add", nil), errors.EPROTO)

	mustLoad(t, s, "", wasmtest.Arith())
	takeOutput(out)

	tests := []struct {
		name string
		fn   string
		args []string
		code errors.Code
	}{
		{name: "missing arg", fn: "add", args: []string{"1"}, code: errors.EPROTO},
		{name: "extra arg", fn: "add", args: []string{"1", "2", "3"}, code: errors.EPROTO},
		{name: "malformed arg", fn: "add", args: []string{"1", "x"}, code: errors.EINVAL},
		{name: "malformed before missing", fn: "add", args: []string{"x"}, code: errors.EINVAL},
		{name: "malformed before extra", fn: "add", args: []string{"x", "1", "2"}, code: errors.EINVAL},
		{name: "out of range", fn: "add", args: []string{"1", "4294967296"}, code: errors.EINVAL},
		{name: "unknown function", fn: "sub", code: errors.ENOENT},
		{name: "global is not a function", fn: "g32", code: errors.ENOENT},
		{name: "bad escape", fn: `\q`, code: errors.EINVAL},
		{name: "concrete funcref", fn: "funcref_id", args: []string{"3"}, code: errors.ENOTSUP},
		{name: "unknown module", fn: "add", code: errors.ENOENT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := ""
			if tt.name == "unknown module" {
				module = "nope"
			}
			wantCode(t, s.Invoke(ctx, module, tt.fn, tt.args), tt.code)
			if got := takeOutput(out); got != "" {
				t.Errorf("failed invoke printed %q", got)
			}
		})
	}

	// the instance is still usable
	if err := s.Invoke(ctx, "", "add", []string{"2", "2"}); err != nil {
		t.Fatalf("Invoke after errors: %v", err)
	}
	if got := takeOutput(out); got != "Result: 4:i32\n" {
		t.Errorf("output = %q", got)
	}
}

func TestInvoke_Trap(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})
	mustLoad(t, s, "", wasmtest.Arith())
	takeOutput(out)

	err := s.Invoke(ctx, "", "div_s", []string{"1", "0"})
	wantCode(t, err, errors.EFAULT)
	if _, ok := engine.ExitCode(err); ok {
		t.Error("division trap reported as exit")
	}
	want := "Error: [trap] integer divide by zero (1): integer divide by zero\n"
	if got := takeOutput(out); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	err = s.Invoke(ctx, "", "unreachable", nil)
	wantCode(t, err, errors.EFAULT)
	if got := takeOutput(out); got != "Error: [trap] unreachable executed (8): unreachable\n" {
		t.Errorf("output = %q", got)
	}

	if err := s.Invoke(ctx, "", "div_s", []string{"6", "3"}); err != nil {
		t.Fatalf("Invoke after trap: %v", err)
	}
}

func TestGlobalGet(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})
	mustLoad(t, s, "a", wasmtest.Arith())
	mustLoad(t, s, "", wasmtest.Const(1))
	takeOutput(out)

	if err := s.GlobalGet(ctx, "a", "g32"); err != nil {
		t.Fatalf("GlobalGet(g32): %v", err)
	}
	if err := s.GlobalGet(ctx, "a", `"g64"`); err != nil {
		t.Fatalf("GlobalGet(g64): %v", err)
	}
	if diff := cmp.Diff("Result: 42:i32\nResult: 18446744073709551615:i64\n", takeOutput(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	wantCode(t, s.GlobalGet(ctx, "a", "missing"), errors.ENOENT)
	wantCode(t, s.GlobalGet(ctx, "a", "add"), errors.ENOENT)
	wantCode(t, s.GlobalGet(ctx, "", "g32"), errors.ENOENT)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})

	path := filepath.Join(t.TempDir(), "out.wasm")
	wantCode(t, s.Save(ctx, "", path), errors.EPROTO)

	raw := wasmtest.Arith().Bytes()
	if err := s.Load(ctx, "", append([]byte(nil), raw...), SourceHex); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Save(ctx, "", path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(raw, got); diff != "" {
		t.Errorf("saved bytes mismatch (-want +got):\n%s", diff)
	}

	wantCode(t, s.Save(ctx, "", filepath.Join(t.TempDir(), "no", "such", "dir.wasm")), errors.EIO)
}

func TestSave_Disabled(t *testing.T) {
	s, _ := newSession(t, Config{DisableWriter: true})
	mustLoad(t, s, "", wasmtest.Const(1))
	wantCode(t, s.Save(context.Background(), "", filepath.Join(t.TempDir(), "x.wasm")), errors.ENOTSUP)
}

func TestLinkWASI(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, Config{})

	// without the host, WASI imports are unresolved
	err := s.Load(ctx, "", wasmtest.Exiter().Bytes(), SourceHex)
	wantCode(t, err, errors.ENOENT)
	takeOutput(out)

	if err := s.LinkWASI(ctx); err != nil {
		t.Fatalf("LinkWASI: %v", err)
	}
	wantCode(t, s.LinkWASI(ctx), errors.EPROTO)

	mustLoad(t, s, "", wasmtest.Exiter())
	err = s.Invoke(ctx, "", "exit", []string{"3"})
	code, ok := engine.ExitCode(err)
	if !ok || code != 3 {
		t.Fatalf("ExitCode = %d, %v; want 3 (err %v)", code, ok, err)
	}
	if got := takeOutput(out); got != "" {
		t.Errorf("voluntary exit printed %q", got)
	}

	if diff := cmp.Diff(Stats{Modules: 1, Providers: 1, WASI: true}, s.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if diff := cmp.Diff(Stats{}, s.Stats()); diff != "" {
		t.Errorf("Stats after reset (-want +got):\n%s", diff)
	}

	// a fresh session can link again
	if err := s.LinkWASI(ctx); err != nil {
		t.Fatalf("LinkWASI after reset: %v", err)
	}
}

func TestReset_Balanced(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})

	for round := 0; round < 3; round++ {
		if err := s.LinkWASI(ctx); err != nil {
			t.Fatalf("LinkWASI: %v", err)
		}
		mustLoad(t, s, "a", wasmtest.Arith())
		mustLoad(t, s, "", wasmtest.Const(int32(round)))
		for _, name := range []string{"M", "M", "N"} {
			if err := s.Register(ctx, "", name); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}
		mustLoad(t, s, "", wasmtest.Forwarder("M"))
		_ = s.Load(ctx, "", []byte("junk"), SourceHex)

		if err := s.Reset(ctx); err != nil {
			t.Fatalf("round %d: Reset: %v", round, err)
		}
		if diff := cmp.Diff(Stats{}, s.Stats()); diff != "" {
			t.Errorf("round %d: Stats after reset (-want +got):\n%s", round, diff)
		}
		for r, n := range s.ledger.outstanding {
			if n != 0 {
				t.Errorf("round %d: %s outstanding = %d", round, r, n)
			}
		}
	}
}

func TestReset_DetectsLeak(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})
	s.ledger.acquire(resChainNode)

	err := s.Reset(ctx)
	if !errors.IsKind(err, errors.KindLeak) {
		t.Fatalf("Reset error = %v, want leak", err)
	}
	wantCode(t, err, errors.EBUSY)

	if err := s.Reset(ctx); err != nil {
		t.Errorf("second Reset: %v", err)
	}
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "no message"},
		{err: errors.MissingImport("M", "f"), want: `unknown import "M" "f"`},
		{err: &errors.Error{Phase: errors.PhaseLink, Kind: errors.KindInstantiation}, want: "[link] instantiation"},
	}
	for _, tt := range tests {
		if got := diagnostic(tt.err); got != tt.want {
			t.Errorf("diagnostic(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
