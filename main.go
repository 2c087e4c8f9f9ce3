package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"mediafrag/config"
)

const appName = "mediafrag"

// env carries what commands share once the command line is parsed.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func() error
	started  time.Time
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{log: zap.NewNop(), started: time.Now()})
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return &env{log: zap.NewNop(), started: time.Now()}
}

// initializeAppContext runs before every command, after its flags (global
// ones included) have been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	e := envFromContext(ctx)
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	e.cfg = cfg
	log, closeLog, err := e.cfg.Logging.Prepare()
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.log, e.closeLog = log, closeLog

	e.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	e.log.Debug("Program ended", zap.Duration("elapsed", time.Since(e.started)), zap.Strings("parsed args", cmd.Args().Slice()))
	// syncing a terminal fails on some platforms
	_ = e.log.Sync()
	return nil
}

// release closes the log file. Errors are still logged after the command's
// After hook, so this runs only when the program is about to exit.
func (e *env) release() {
	if e.closeLog == nil {
		return
	}
	_ = e.log.Sync()
	_ = e.closeLog()
	e.log, e.closeLog = zap.NewNop(), nil
}

var errWasHandled bool

// exitErrHandler logs command errors while the logger is still available.
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.cfg != nil {
		e.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// reported by exitErrHandler or on exit directly to stderr
	return err
}

func newApp() *cli.Command {
	commands := []*cli.Command{
		scanCommand(),
		parseCommand(),
		setCommand(),
		checkCommand(),
		simulateCommand(),
		dumpConfigCommand(),
	}
	for _, c := range commands {
		c.Before = initializeAppContext
		c.After = destroyAppContext
		c.OnUsageError = usageErrorHandler
	}

	return &cli.Command{
		Name:            appName,
		Usage:           "locate, edit and enforce time ranges on media links in markdown notes",
		Version:         "dev (" + runtime.Version() + ")",
		HideHelpCommand: true,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags:           config.Flags(),
		Commands:        commands,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	e := envFromContext(ctx)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		e.release()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}
