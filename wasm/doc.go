// Package wasm decodes the framing of WebAssembly binary modules.
//
// ParseModule checks the preamble and section layout and lifts out the
// import and export tables, which is all the session needs before handing
// the bytes to the engine for full validation. Import descriptors are kept
// as raw bytes so RewriteImports can retarget an import's module name
// without re-encoding its type:
//
//	m, err := wasm.ParseModule(data)
//	if err != nil {
//		return err
//	}
//	linked := m.RewriteImports(func(_ int, imp wasm.Import) string {
//		return providers[imp.Module]
//	})
//	bin := linked.Encode()
package wasm
