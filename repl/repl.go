package repl

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/session"
)

type handler func(r *REPL, ctx context.Context, module, arg string) error

var subcommands = map[string]handler{
	"load": func(r *REPL, ctx context.Context, module, arg string) error {
		return r.sess.LoadFile(ctx, module, arg)
	},
	"load-hex": (*REPL).loadHex,
	"invoke": func(r *REPL, ctx context.Context, module, arg string) error {
		f := fields(arg)
		if len(f) == 0 {
			return errors.InvalidInput(errors.PhaseProtocol, "missing function name")
		}
		return r.sess.Invoke(ctx, module, f[0], f[1:])
	},
	"register": func(r *REPL, ctx context.Context, module, arg string) error {
		return r.sess.Register(ctx, module, arg)
	},
	"save": func(r *REPL, ctx context.Context, module, arg string) error {
		return r.sess.Save(ctx, module, arg)
	},
	"global-get": func(r *REPL, ctx context.Context, module, arg string) error {
		return r.sess.GlobalGet(ctx, module, arg)
	},
}

// REPL reads command lines and applies them to a session.
type REPL struct {
	sess *session.Session
	in   *bufio.Reader
	cfg  Config
}

// New creates a REPL over sess. Load-hex data is read from the same
// buffered reader as the command lines.
func New(sess *session.Session, cfg Config) *REPL {
	cfg.setDefaults()
	return &REPL{
		sess: sess,
		in:   bufio.NewReader(cfg.In),
		cfg:  cfg,
	}
}

// Run processes lines until end of input or a voluntary exit.
// End of input resets the session and returns 0. A voluntary exit returns
// the guest's exit code without resetting.
func (r *REPL) Run(ctx context.Context) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 1, err
		}
		if !r.cfg.HidePrompt {
			fmt.Fprintf(r.cfg.Out, "%s> ", r.cfg.Prompt)
		}
		line, err := r.in.ReadString('\n')
		if line != "" {
			if code, exit := r.Exec(ctx, line); exit {
				return code, nil
			}
		}
		if err != nil {
			if !stderrors.Is(err, io.EOF) {
				Logger().Error("read command", zap.Error(err))
			}
			break
		}
	}

	if err := r.sess.Reset(ctx); err != nil {
		return 1, err
	}
	return 0, nil
}

// Exec runs one command line. exit reports a voluntary exit with its code.
func (r *REPL) Exec(ctx context.Context, line string) (code int, exit bool) {
	cmd := parseLine(line)
	if cmd.kind == cmdIgnored {
		return 0, false
	}
	Logger().Debug("command",
		zap.String("cmd", cmd.name),
		zap.String("module", cmd.module),
		zap.String("subcommand", cmd.sub))

	err := r.dispatch(ctx, cmd)
	if err == nil {
		return 0, false
	}
	// Only a call ends the session. An exit from a start function fails the
	// load like any other trap.
	if cmd.sub == "invoke" {
		if c, ok := engine.ExitCode(err); ok {
			Logger().Info("guest exited", zap.Uint32("code", c))
			return int(c), true
		}
	}
	Logger().Warn("command failed",
		zap.String("cmd", cmd.name),
		zap.String("module", cmd.module),
		zap.String("subcommand", cmd.sub),
		zap.Error(err))
	fmt.Fprintf(r.cfg.Out, "Error: command '%s' failed with %d\n", cmd.name, errors.CodeOf(err))
	return 0, false
}

func (r *REPL) dispatch(ctx context.Context, cmd command) error {
	if cmd.err != nil {
		return cmd.err
	}
	switch cmd.kind {
	case cmdVersion:
		r.printVersion()
		return nil
	case cmdInit:
		return r.reset(ctx)
	}

	h, ok := subcommands[cmd.sub]
	if !ok {
		Logger().Warn("unknown command", zap.String("subcommand", cmd.sub))
		fmt.Fprintf(r.cfg.Err, "Error: unknown command %s\n", cmd.sub)
		return nil
	}
	if !cmd.hasArg {
		return errors.InvalidInput(errors.PhaseProtocol, "missing argument for "+cmd.sub)
	}
	return h(r, ctx, cmd.module, cmd.arg)
}

func (r *REPL) reset(ctx context.Context) error {
	if err := r.sess.Reset(ctx); err != nil {
		return err
	}
	if r.cfg.WASI {
		return r.sess.LinkWASI(ctx)
	}
	return nil
}

func (r *REPL) loadHex(ctx context.Context, module, arg string) error {
	if err := r.sess.CheckCapacity(); err != nil {
		return err
	}
	n, err := parseByteCount(arg)
	if err != nil {
		return err
	}
	Logger().Debug("reading module from input", zap.Int("bytes", n))
	buf, err := readHex(r.in, n)
	if err != nil {
		return err
	}
	return r.sess.Load(ctx, module, buf, session.SourceHex)
}
