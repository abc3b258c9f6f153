package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WASIModuleName is the import module name WASI preview1 guests link against.
const WASIModuleName = wasi_snapshot_preview1.ModuleName

// HostModule is an instantiated set of host functions.
type HostModule struct {
	api.Module
	compiled wazero.CompiledModule
	exports  []string
}

// Exports returns the exported function names in sorted order.
func (h *HostModule) Exports() []string {
	return h.exports
}

// Close closes the instance and then its compiled module.
func (h *HostModule) Close(ctx context.Context) error {
	return errors.Join(h.Module.Close(ctx), h.compiled.Close(ctx))
}

// InstantiateWASI instantiates the WASI preview1 host functions under the
// private name given. Guests reach them once their imports are rewritten to
// that name; arguments, environment and preopens come from the guest's own
// module configuration.
func (e *Engine) InstantiateWASI(ctx context.Context, name string) (*HostModule, error) {
	builder := e.runtime.NewHostModuleBuilder(WASIModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	compiled, err := builder.Compile(ctx)
	if err != nil {
		return nil, err
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	defs := compiled.ExportedFunctions()
	exports := make([]string, 0, len(defs))
	for n := range defs {
		exports = append(exports, n)
	}
	sort.Strings(exports)

	return &HostModule{Module: mod, compiled: compiled, exports: exports}, nil
}
