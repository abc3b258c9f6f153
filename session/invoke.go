package session

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/value"
	"github.com/wippyai/wasm-repl/wasm"
)

// Invoke calls an exported function of the named (or most recent) module
// with args parsed against its parameter types and prints the results.
//
// A trap is printed and returned as a trap error. A voluntary exit is not
// printed; the returned error carries the exit code for engine.ExitCode.
func (s *Session) Invoke(ctx context.Context, moduleName, funcName string, args []string) error {
	name, err := value.Unescape(funcName)
	if err != nil {
		Logger().Error("failed to unescape function name", zap.String("func", funcName))
		return err
	}
	mod, err := s.Find(moduleName)
	if err != nil {
		return err
	}
	log := Logger().With(zap.String("module", mod.name), zap.String("func", name))

	fn := mod.instance.ExportedFunction(name)
	if fn == nil {
		log.Error("exported function not found")
		return errors.NotFound(errors.PhaseInvoke, "function", name)
	}
	def := fn.Definition()
	paramTypes, err := value.FromAPITypes(def.ParamTypes())
	if err != nil {
		return err
	}
	resultTypes, err := value.FromAPITypes(def.ResultTypes())
	if err != nil {
		return err
	}

	// Arguments convert left to right, so a malformed one is reported
	// before a missing one after it.
	s.params = s.params[:0]
	for i, t := range paramTypes {
		if i >= len(args) {
			log.Debug("missing arg", zap.Int("want", len(paramTypes)), zap.Int("got", len(args)))
			return errors.InvalidInput(errors.PhaseProtocol, "missing arg")
		}
		v, err := value.Parse(t, args[i])
		if err != nil {
			log.Debug("arg conversion failed", zap.Int("index", i), zap.Error(err))
			return err
		}
		raw, err := v.Encode()
		if err != nil {
			return err
		}
		s.params = append(s.params, raw)
	}
	if len(args) > len(paramTypes) {
		log.Debug("extra arg", zap.Int("want", len(paramTypes)), zap.Int("got", len(args)))
		return errors.InvalidInput(errors.PhaseProtocol, "extra arg")
	}

	start := time.Now()
	res, err := fn.Call(ctx, s.params...)
	if s.cfg.PrintStats {
		log.Info("call stats",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("params", len(s.params)),
			zap.Int("results", len(res)))
	}
	if err != nil {
		trap, ok := engine.FromError(err)
		if !ok {
			log.Error("call failed", zap.Error(err))
			return errors.Wrap(errors.PhaseInvoke, errors.KindTrap, err, "call "+name)
		}
		if trap.Exit() {
			log.Debug("voluntary exit", zap.Uint32("code", trap.ExitCode))
			return errors.Wrap(errors.PhaseInvoke, errors.KindTrap, trap, "voluntary exit")
		}
		s.print.trap(trap)
		log.Debug("call trapped", zap.Error(trap))
		return errors.Wrap(errors.PhaseInvoke, errors.KindTrap, trap, "call "+name)
	}

	s.results = s.results[:0]
	for i, t := range resultTypes {
		s.results = append(s.results, value.Decode(t, res[i]))
	}
	s.print.result(s.results)
	return nil
}

// GlobalGet prints the current value of an exported global.
func (s *Session) GlobalGet(ctx context.Context, moduleName, exportName string) error {
	name, err := value.Unescape(exportName)
	if err != nil {
		Logger().Error("failed to unescape global name", zap.String("name", exportName))
		return err
	}
	mod, err := s.Find(moduleName)
	if err != nil {
		return err
	}
	if _, ok := mod.parsed.FindExport(name, wasm.KindGlobal); !ok {
		Logger().Error("exported global not found", zap.String("module", mod.name), zap.String("name", name))
		return errors.NotFound(errors.PhaseInvoke, "global", name)
	}
	g := mod.instance.ExportedGlobal(name)
	if g == nil {
		return errors.NotFound(errors.PhaseInvoke, "global", name)
	}
	t, err := value.FromAPI(g.Type())
	if err != nil {
		return err
	}
	s.print.result([]value.Value{value.Decode(t, g.Get())})
	return nil
}

// Save writes the binary of the named (or most recent) module to path.
func (s *Session) Save(ctx context.Context, moduleName, path string) error {
	if s.cfg.DisableWriter {
		return errors.Unsupported(errors.PhaseIO, "module writer disabled")
	}
	mod, err := s.Find(moduleName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, mod.parsed.Encode(), 0o644); err != nil {
		Logger().Error("failed to write module", zap.String("path", path), zap.Error(err))
		return errors.IO(errors.PhaseIO, "write "+path, err)
	}
	Logger().Debug("module saved", zap.String("module", mod.name), zap.String("path", path))
	return nil
}
