package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pevans/coinfeed/config"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/store"
	"github.com/pevans/coinfeed/tracker"
	"github.com/spf13/cobra"
)

// cli holds the state shared by every command: global flags, then the
// resolved config and open resources.
type cli struct {
	configPath string
	logLevel   string
	storeType  string
	storeDSN   string

	cfg     *config.Config
	log     logger.Logger
	store   store.Store
	tracker *tracker.Tracker
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cli{}, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run executes one command line, then syncs the logger and closes the
// store whether or not the command succeeded.
func run(ctx context.Context, c *cli, args []string) error {
	root := newRootCommand(c)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "coinfeed",
		Short:         "Crypto news scraper",
		Long:          `coinfeed scrapes crypto news articles and queues them for sentiment analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default is ~/.coinfeed/config.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&c.storeType, "store-type", "", "store engine: sqlite, postgres or memory")
	flags.StringVar(&c.storeDSN, "store-dsn", "", "store location: sqlite path or postgres DSN")

	root.AddCommand(
		newInitCommand(c),
		newScrapeCommand(c),
		newStatusCommand(c),
		newExportCommand(c),
		newAnalyzeCommand(c),
		newMarkAnalyzedCommand(c),
		newCleanupCommand(c),
		newInspectCommand(c),
		newServeCommand(c),
	)

	return root
}

// loadConfig resolves the configuration and logger. Flags beat the
// environment, which beats the config file.
func (c *cli) loadConfig() error {
	if c.cfg != nil {
		return nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.storeType != "" {
		cfg.Store.Type = c.storeType
	}
	if c.storeDSN != "" {
		cfg.Store.DSN = c.storeDSN
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	c.cfg = cfg
	c.log = log
	return nil
}

// open loads the configuration and opens the store.
func (c *cli) open(ctx context.Context) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	if c.store != nil {
		return nil
	}

	s, err := store.Open(ctx, c.cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.cfg.Store.Type, err)
	}

	c.store = s
	c.tracker = tracker.New(s, c.log)
	return nil
}

func (c *cli) close() error {
	if c.log != nil {
		_ = c.log.Sync()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
