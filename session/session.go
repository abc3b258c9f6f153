package session

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/value"
)

// Session holds every module, registration and import provider of one REPL
// run. It is not safe for concurrent use.
type Session struct {
	engine        *engine.Engine
	wasi          *engine.HostModule
	ledger        *ledger
	print         printer
	modules       []*Module
	registrations []string
	// chain is searched front to back; index 0 is the newest provider.
	chain   []*provider
	params  []uint64
	results []value.Value
	cfg     Config
}

// Stats summarizes session occupancy.
type Stats struct {
	Modules       int
	Registrations int
	Providers     int
	WASI          bool
}

// New creates an empty session with its own engine.
func New(ctx context.Context, cfg Config) (*Session, error) {
	cfg.setDefaults()
	eng, err := engine.New(ctx, cfg.Engine)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "create engine")
	}
	return &Session{
		cfg:    cfg,
		engine: eng,
		print:  printer{w: cfg.Out},
		ledger: newLedger(),
	}, nil
}

// Engine returns the session's engine.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// Stats returns current table sizes.
func (s *Session) Stats() Stats {
	return Stats{
		Modules:       len(s.modules),
		Registrations: len(s.registrations),
		Providers:     len(s.chain),
		WASI:          s.wasi != nil,
	}
}

// Reset releases registrations, import providers, modules (newest first)
// and the WASI host, then checks that every acquisition was released.
// The session is usable afterwards.
func (s *Session) Reset(ctx context.Context) error {
	var errs []error

	if want := len(s.registrations) + s.ledger.count(resHost); len(s.chain) != want {
		errs = append(errs, errors.New(errors.PhaseRuntime, errors.KindLeak).
			Detail("%d providers for %d registrations", len(s.chain), len(s.registrations)).
			Build())
	}

	for len(s.chain) > 0 {
		s.chain[0] = nil
		s.chain = s.chain[1:]
		s.ledger.release(resChainNode)
	}
	s.chain = nil

	for n := len(s.registrations); n > 0; n = len(s.registrations) {
		s.registrations = s.registrations[:n-1]
		s.ledger.release(resRegistration)
	}

	for n := len(s.modules); n > 0; n = len(s.modules) {
		mod := s.modules[n-1]
		s.modules[n-1] = nil
		s.modules = s.modules[:n-1]
		if err := mod.release(ctx, s.ledger); err != nil {
			errs = append(errs, err)
		}
	}

	s.params = nil
	s.results = nil

	if s.wasi != nil {
		if err := s.wasi.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		s.wasi = nil
		s.ledger.release(resHost)
	}

	if err := s.ledger.check(); err != nil {
		errs = append(errs, err)
		s.ledger = newLedger()
	}

	if len(errs) > 0 {
		Logger().Error("session reset incomplete", zap.Errors("errors", errs))
		return errors.Wrap(errors.PhaseRuntime, errors.KindLeak, stderrors.Join(errs...), "reset session")
	}
	Logger().Debug("session reset")
	return nil
}

// Close resets the session and closes its engine.
func (s *Session) Close(ctx context.Context) error {
	err := s.Reset(ctx)
	return stderrors.Join(err, s.engine.Close(ctx))
}
