package session

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/wasm"
)

// Source records where a module's bytes came from.
type Source uint8

const (
	SourceHex Source = iota
	SourceFile
)

func (s Source) String() string {
	if s == SourceFile {
		return "file"
	}
	return "hex"
}

// Module is one loaded module. Everything it holds was acquired in the
// order raw, parsed, compiled, instance and is released in reverse.
type Module struct {
	parsed   *wasm.Module
	compiled wazero.CompiledModule
	instance api.Module
	name     string
	raw      []byte
	source   Source
}

// Name returns the module's name, empty for unnamed modules.
func (m *Module) Name() string {
	return m.name
}

// Source reports where the module's bytes came from.
func (m *Module) Source() Source {
	return m.source
}

// Size returns the length of the module binary.
func (m *Module) Size() int {
	return len(m.raw)
}

// Exports returns the module's decoded export table.
func (m *Module) Exports() []wasm.Export {
	return m.parsed.Exports
}

// Instance returns the module's live instance.
func (m *Module) Instance() api.Module {
	return m.instance
}

func (m *Module) release(ctx context.Context, l *ledger) error {
	var errs []error
	if m.instance != nil {
		errs = append(errs, m.instance.Close(ctx))
		m.instance = nil
		l.release(resInstance)
	}
	if m.compiled != nil {
		errs = append(errs, m.compiled.Close(ctx))
		m.compiled = nil
		l.release(resCompiled)
	}
	m.parsed = nil
	if m.raw != nil {
		m.raw = nil
		l.release(resBuffer)
	}
	m.name = ""
	return stderrors.Join(errs...)
}

// CheckCapacity fails with an overflow error when no further module fits.
func (s *Session) CheckCapacity() error {
	if len(s.modules) >= s.cfg.MaxModules {
		return errors.Overflow(errors.PhaseRuntime, "module", s.cfg.MaxModules)
	}
	return nil
}

// LoadFile reads path and loads it as the module name.
func (s *Session) LoadFile(ctx context.Context, name, path string) error {
	if err := s.CheckCapacity(); err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		Logger().Error("failed to read module", zap.String("path", path), zap.Error(err))
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(errors.PhaseIO, errors.KindNotFound, err, "read "+path)
		}
		return errors.IO(errors.PhaseIO, "read "+path, err)
	}
	return s.Load(ctx, name, raw, SourceFile)
}

// Load takes ownership of raw and runs decode, validation, linking and
// instantiation. On failure the stage's diagnostic is printed, everything
// acquired is released and nothing is registered. A trap in the start
// function is printed as a trap and fails the load.
func (s *Session) Load(ctx context.Context, name string, raw []byte, src Source) (err error) {
	if err := s.CheckCapacity(); err != nil {
		return err
	}

	log := Logger().With(zap.String("module", name), zap.Stringer("source", src), zap.Int("size", len(raw)))
	mod := &Module{raw: raw, source: src}
	s.ledger.acquire(resBuffer)
	defer func() {
		if err == nil {
			return
		}
		if rerr := mod.release(ctx, s.ledger); rerr != nil {
			log.Warn("release after failed load", zap.Error(rerr))
		}
	}()

	parsed, err := wasm.ParseModule(raw)
	if err != nil {
		log.Error("load error", zap.Error(err))
		s.print.stage(stageLoad, err)
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode module")
	}
	mod.parsed = parsed

	validated, err := s.engine.Compile(ctx, raw)
	if err != nil {
		log.Error("validation error", zap.Error(err))
		s.print.stage(stageValidation, err)
		return errors.Wrap(errors.PhaseValidate, errors.KindInvalidData, err, "validate module")
	}
	s.ledger.acquire(resCompiled)
	mod.compiled = validated

	linked, err := s.resolve(parsed)
	if err != nil {
		log.Error("instantiation error", zap.Error(err))
		s.print.stage(stageInstantiate, err)
		return err
	}
	if linked != parsed {
		compiled, err := s.engine.Compile(ctx, linked.Encode())
		if err != nil {
			log.Error("instantiation error", zap.Error(err))
			s.print.stage(stageInstantiate, err)
			return errors.Instantiation(err)
		}
		s.ledger.acquire(resCompiled)
		mod.compiled = compiled
		if cerr := validated.Close(ctx); cerr != nil {
			log.Warn("close validated module", zap.Error(cerr))
		}
		s.ledger.release(resCompiled)
	}

	inst, err := s.engine.Instantiate(ctx, mod.compiled, s.engine.NextName("module"))
	if err != nil {
		if trap, ok := engine.FromError(err); ok {
			log.Error("start function trapped", zap.Error(trap))
			s.print.trap(trap)
			return errors.Wrap(errors.PhaseInstantiate, errors.KindTrap, trap, "run start function")
		}
		log.Error("instantiation error", zap.Error(err))
		s.print.stage(stageInstantiate, err)
		return errors.Instantiation(err)
	}
	s.ledger.acquire(resInstance)
	mod.instance = inst
	mod.name = name

	s.modules = append(s.modules, mod)
	log.Debug("module loaded", zap.String("instance", inst.Name()), zap.Int("imports", len(parsed.Imports)))
	return nil
}

// Find returns the module called name, or the most recently loaded module
// when name is empty. Unnamed modules never match a name.
func (s *Session) Find(name string) (*Module, error) {
	if len(s.modules) == 0 {
		Logger().Debug("no module loaded")
		return nil, errors.NotInitialized(errors.PhaseRuntime, "module")
	}
	if name == "" {
		return s.modules[len(s.modules)-1], nil
	}
	for _, m := range s.modules {
		if m.name != "" && m.name == name {
			return m, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseRuntime, "module", name)
}
