package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/wasm"
)

// provider makes one instance's exports importable under a public name.
type provider struct {
	exports map[string]byte
	// name is what importers write as the import module.
	name string
	// instance is the private engine name the import is rewritten to.
	instance string
	host     bool
}

func (p *provider) provides(imp wasm.Import) bool {
	if p.name != imp.Module {
		return false
	}
	kind, ok := p.exports[imp.Name]
	return ok && kind == imp.Kind
}

// push makes p the highest-precedence provider.
func (s *Session) push(p *provider) {
	s.chain = append(s.chain, nil)
	copy(s.chain[1:], s.chain)
	s.chain[0] = p
	s.ledger.acquire(resChainNode)
}

// lookup returns the first provider in the chain that satisfies imp.
func (s *Session) lookup(imp wasm.Import) *provider {
	for _, p := range s.chain {
		if p.provides(imp) {
			return p
		}
	}
	return nil
}

// resolve binds every import of parsed to a provider and returns the module
// with its import section rewritten to the providers' private names. A
// module without imports is returned as is.
func (s *Session) resolve(parsed *wasm.Module) (*wasm.Module, error) {
	if len(parsed.Imports) == 0 {
		return parsed, nil
	}
	targets := make([]string, len(parsed.Imports))
	for i, imp := range parsed.Imports {
		p := s.lookup(imp)
		if p == nil {
			return nil, errors.MissingImport(imp.Module, imp.Name)
		}
		targets[i] = p.instance
		Logger().Debug("import resolved",
			zap.String("module", imp.Module),
			zap.String("name", imp.Name),
			zap.String("kind", wasm.KindName(imp.Kind)),
			zap.String("instance", p.instance),
			zap.Bool("host", p.host))
	}
	return parsed.RewriteImports(func(i int, _ wasm.Import) string {
		return targets[i]
	}), nil
}

// LinkWASI instantiates the WASI preview1 host functions and makes them the
// highest-precedence provider. A session holds at most one WASI host.
func (s *Session) LinkWASI(ctx context.Context) error {
	if s.wasi != nil {
		Logger().Error("wasi is already linked")
		return errors.New(errors.PhaseHost, errors.KindAlreadyLinked).
			Detail("wasi is already linked").
			Build()
	}
	host, err := s.engine.InstantiateWASI(ctx, s.engine.NextName("wasi"))
	if err != nil {
		Logger().Error("failed to link wasi", zap.Error(err))
		return errors.Wrap(errors.PhaseHost, errors.KindInstantiation, err, "instantiate wasi")
	}
	s.wasi = host
	s.ledger.acquire(resHost)

	exports := make(map[string]byte, len(host.Exports()))
	for _, n := range host.Exports() {
		exports[n] = wasm.KindFunc
	}
	s.push(&provider{
		name:     engine.WASIModuleName,
		instance: host.Name(),
		exports:  exports,
		host:     true,
	})
	Logger().Debug("wasi linked", zap.String("instance", host.Name()), zap.Int("functions", len(exports)))
	return nil
}

// Register exposes the exports of the named (or most recent) module to
// later loads under name. An earlier registration of the same name stays in
// the chain, shadowed.
func (s *Session) Register(ctx context.Context, moduleName, name string) error {
	if len(s.modules) == 0 {
		return errors.NotInitialized(errors.PhaseLink, "module")
	}
	if len(s.registrations) >= s.cfg.MaxRegistrations {
		return errors.Overflow(errors.PhaseLink, "registration", s.cfg.MaxRegistrations)
	}
	mod, err := s.Find(moduleName)
	if err != nil {
		return err
	}

	owned := strings.Clone(name)
	exports := make(map[string]byte, len(mod.parsed.Exports))
	for _, e := range mod.parsed.Exports {
		exports[e.Name] = e.Kind
	}
	s.push(&provider{
		name:     owned,
		instance: mod.instance.Name(),
		exports:  exports,
	})
	s.registrations = append(s.registrations, owned)
	s.ledger.acquire(resRegistration)

	Logger().Debug("module registered",
		zap.String("name", owned),
		zap.String("module", mod.name),
		zap.String("instance", mod.instance.Name()),
		zap.Int("exports", len(exports)))
	return nil
}
