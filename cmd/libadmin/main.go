package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/config"
)

const longHelp = `Library Store Admin CLI

Deletes content libraries together with every block they hold, and
inspects what is stored. Only database and blob store access is needed.

Configuration is read from LIBSTORE_* environment variables. A .env file
in the current directory is loaded first; variables already set in the
environment win.

`

// cli holds the state shared by all commands.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	logLevel string

	logger *slog.Logger
	svc    libstore.Service
	cfg    *config.ServerConfig
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin}
	err := c.execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "libadmin",
		Short:         "Administer content libraries",
		Long:          longHelp + config.EnvUsage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LIBSTORE_LOG_LEVEL)")

	root.AddCommand(c.deleteCmd(), c.listCmd(), c.blocksCmd())
	return root
}

// execute runs the command tree and releases the configuration afterwards,
// including when the command fails.
func (c *cli) execute(ctx context.Context, args []string) error {
	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if c.cfg != nil {
		if cerr := c.cfg.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close configuration: %w", cerr))
		}
		c.cfg = nil
	}
	return err
}

// setup builds the logger and the service unless a service was injected.
func (c *cli) setup() error {
	if c.svc != nil {
		if c.logger == nil {
			c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		return nil
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.SlogLevel()
	if c.logLevel != "" {
		if level, err = config.ParseLogLevel(c.logLevel); err != nil {
			return err
		}
	}
	c.logger = newLogger(c.stderr, level)
	cfg.Logger = c.logger

	svc, err := cfg.BuildService()
	if err != nil {
		_ = cfg.Close()
		return fmt.Errorf("failed to create service: %w", err)
	}
	c.cfg = cfg
	c.svc = svc
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}
