package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"socialkv/internal/config"
	"socialkv/internal/database"
	"socialkv/internal/keylock"
	"socialkv/internal/logging"
	"socialkv/internal/store"
)

const (
	optionNameConfig    = "config"
	optionNameBackend   = "backend"
	optionNameLogLevel  = "log-level"
	optionNameLogFormat = "log-format"
)

type command struct {
	root *cobra.Command
	cfg  *config.Config
	log  *logrus.Logger
}

type option func(*command)

func withArgs(args ...string) option { return func(c *command) { c.root.SetArgs(args) } }

func withOutput(w io.Writer) option { return func(c *command) { c.root.SetOut(w) } }

func newCommand(opts ...option) (*command, error) {
	c := &command{
		root: &cobra.Command{
			Use:           "socialkv",
			Short:         "Social graph storage over key-value backends",
			SilenceErrors: true,
			SilenceUsage:  true,
		},
	}
	c.root.PersistentPreRunE = c.load

	flags := c.root.PersistentFlags()
	flags.String(optionNameConfig, "", "path to a YAML config file")
	flags.String(optionNameBackend, "", fmt.Sprintf("backend to use, one of %v", database.Backends()))
	flags.String(optionNameLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(optionNameLogFormat, "", "log format (text or json)")

	c.initBenchCmd()
	c.initSelfTestCmd()
	c.initInspectCmd()
	c.initVersionCmd()

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *command) Execute() error {
	return c.root.Execute()
}

// load reads the config and applies flag overrides before any subcommand
// runs.
func (c *command) load(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString(optionNameConfig)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString(optionNameBackend); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString(optionNameLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString(optionNameLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = logger
	return nil
}

// connect opens and connects the configured backend.
func (c *command) connect(ctx context.Context) (database.Driver, error) {
	driver, err := database.Open(c.cfg.Backend)
	if err != nil {
		return nil, err
	}
	dsn, err := c.cfg.DSN(c.cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := driver.Connect(ctx, dsn); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.cfg.Backend, err)
	}
	c.log.WithField("backend", c.cfg.Backend).Debug("connected")
	return driver, nil
}

func (c *command) newStores(kv database.KV) *store.Stores {
	opts := []store.Option{
		store.WithLogger(c.log.WithField("component", "store")),
		store.WithFeedLimit(c.cfg.Store.FeedLimit),
		store.WithSearchLimit(c.cfg.Store.SearchLimit),
		store.WithOnlineWindow(c.cfg.Store.OnlineWindow),
	}
	if c.cfg.Store.SerializeWrites {
		opts = append(opts, store.WithLocker(keylock.NewStriped(keylock.DefaultStripes)))
	}
	return store.New(kv, opts...)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
