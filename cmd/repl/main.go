package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/repl"
	"github.com/wippyai/wasm-repl/session"
)

type options struct {
	prompt      string
	wasiDirs    []string
	wasiEnv     []string
	memoryPages uint32
	maxModules  int
	printStats  bool
	wasi        bool
	verbose     bool
	interpreter bool
	threads     bool
	noSave      bool
}

func main() {
	os.Exit(execute())
}

func execute() int {
	var (
		opts options
		code int
	)
	cmd := &cobra.Command{
		Use:   "wasm-repl [flags] [-- wasi-args...]",
		Short: "Line-oriented WebAssembly spec-test interpreter",
		Long: `wasm-repl reads commands such as ":load-hex", ":invoke" and ":register"
from standard input and runs them against a wazero runtime. Every flag can
also be set through a WASMREPL_<FLAG> environment variable.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyEnv(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			code, err = run(cmd.Context(), opts, args)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prompt, "repl-prompt", repl.DefaultPrompt, "prompt printed before each command")
	f.BoolVar(&opts.printStats, "print-stats", false, "log timing for every invocation")
	f.BoolVar(&opts.wasi, "wasi", false, "link a wasi_snapshot_preview1 host module")
	f.StringArrayVar(&opts.wasiDirs, "wasi-dir", nil, "preopen a directory for WASI guests (host[:guest])")
	f.StringArrayVar(&opts.wasiEnv, "wasi-env", nil, "environment variable for WASI guests (KEY=VALUE)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")
	f.BoolVar(&opts.interpreter, "interpreter", false, "use the interpreter instead of the compiler")
	f.BoolVar(&opts.threads, "threads", false, "enable the threads proposal")
	f.BoolVar(&opts.noSave, "disable-save", false, "make :save fail as unsupported")
	f.Uint32Var(&opts.memoryPages, "memory-limit-pages", 0, "cap linear memory size in 64KiB pages (0 = runtime default)")
	f.IntVar(&opts.maxModules, "max-modules", session.DefaultCapacity, "module and registration table capacity")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if code == 0 {
			code = 1
		}
	}
	return code
}

func newLogger(opts options) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	switch {
	case opts.verbose:
		level = zapcore.DebugLevel
	case opts.printStats:
		level = zapcore.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !opts.verbose
	return cfg.Build()
}

func run(ctx context.Context, opts options, args []string) (int, error) {
	log, err := newLogger(opts)
	if err != nil {
		return 1, fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log.Named("engine"))
	session.SetLogger(log.Named("session"))
	repl.SetLogger(log.Named("repl"))

	sess, err := session.New(ctx, session.Config{
		Out: os.Stdout,
		Engine: &engine.Config{
			Stdout:           os.Stdout,
			Stderr:           os.Stderr,
			Args:             append([]string{"wasm-repl"}, args...),
			Env:              opts.wasiEnv,
			Dirs:             opts.wasiDirs,
			MemoryLimitPages: opts.memoryPages,
			Interpreter:      opts.interpreter,
			EnableThreads:    opts.threads,
		},
		MaxModules:       opts.maxModules,
		MaxRegistrations: opts.maxModules,
		DisableWriter:    opts.noSave,
		PrintStats:       opts.printStats,
	})
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			log.Error("close session", zap.Error(err))
		}
	}()

	if opts.wasi {
		if err := sess.LinkWASI(ctx); err != nil {
			return 1, err
		}
	}

	cfg := repl.Config{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Prompt: opts.prompt,
		WASI:   opts.wasi,
	}
	var in io.Reader = os.Stdin
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		lr := newLineReader(opts.prompt)
		defer lr.Close()
		in = lr
		cfg.HidePrompt = true
		cfg.Styled = true
	}
	cfg.In = in

	return repl.New(sess, cfg).Run(ctx)
}
