package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
)

const wazeroModule = "github.com/tetratelabs/wazero"

// Engine owns one wazero runtime and hands out uniquely named instances.
type Engine struct {
	runtime  wazero.Runtime
	fsConfig wazero.FSConfig
	cfg      Config
	features api.CoreFeatures
	seq      uint64
}

// New creates an engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	features := api.CoreFeaturesV2
	if c.EnableThreads {
		features |= experimental.CoreFeaturesThreads
	}
	runtimeCfg = runtimeCfg.WithCoreFeatures(features)

	fsConfig := wazero.NewFSConfig()
	for _, d := range c.Dirs {
		host, guest := splitMount(d)
		fsConfig = fsConfig.WithDirMount(host, guest)
	}

	Logger().Debug("engine created",
		zap.Bool("interpreter", c.Interpreter),
		zap.Uint32("memory_limit_pages", c.MemoryLimitPages),
		zap.Strings("dirs", c.Dirs))

	return &Engine{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		fsConfig: fsConfig,
		cfg:      c,
		features: features,
	}, nil
}

// Features returns the enabled core features.
func (e *Engine) Features() api.CoreFeatures {
	return e.features
}

// Interpreter reports whether the interpreter backend is in use.
func (e *Engine) Interpreter() bool {
	return e.cfg.Interpreter
}

// NextName returns a fresh private instance name, e.g. "repl:module/3".
// Names are never reused for the life of the engine.
func (e *Engine) NextName(kind string) string {
	e.seq++
	return fmt.Sprintf("repl:%s/%d", kind, e.seq)
}

// Compile decodes and validates a binary module.
func (e *Engine) Compile(ctx context.Context, bin []byte) (wazero.CompiledModule, error) {
	return e.runtime.CompileModule(ctx, bin)
}

// Instantiate links compiled against the instances already in the runtime
// and runs its start section. Exported _start or _initialize functions are
// not called.
func (e *Engine) Instantiate(ctx context.Context, compiled wazero.CompiledModule, name string) (api.Module, error) {
	return e.runtime.InstantiateModule(ctx, compiled, e.moduleConfig(name))
}

func (e *Engine) moduleConfig(name string) wazero.ModuleConfig {
	mc := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions().
		WithArgs(e.cfg.Args...).
		WithFSConfig(e.fsConfig).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader)
	for _, kv := range e.cfg.Env {
		k, v, _ := strings.Cut(kv, "=")
		mc = mc.WithEnv(k, v)
	}
	if e.cfg.Stdout != nil {
		mc = mc.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		mc = mc.WithStderr(e.cfg.Stderr)
	}
	return mc
}

// Close releases the runtime and everything instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Version returns the wazero module version linked into the binary.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != wazeroModule {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}
