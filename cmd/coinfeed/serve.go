package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/coinfeed"
	"github.com/pevans/coinfeed/logger"
	"github.com/pevans/coinfeed/metrics"
	"github.com/pevans/coinfeed/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	var (
		addr     string
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the consumer API and scheduled scrapes",
		Long: `Serve the sentiment consumer API, and Prometheus metrics on /metrics. With a
cron schedule, scrapes also run in the background; a run still in progress
when the next one is due causes that one to be skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.open(ctx); err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if schedule == "" {
				schedule = c.cfg.Schedule.Cron
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			rec := metrics.New(reg)

			if schedule != "" {
				scheduler, err := c.scheduler(ctx, schedule, rec)
				if err != nil {
					return err
				}
				scheduler.Start()
				defer func() { <-scheduler.Stop().Done() }()
			}

			gin.SetMode(gin.ReleaseMode)
			router := tracker.NewAPIServer(c.tracker).SetupRouter()
			router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
			router.GET("/health", func(ctx *gin.Context) {
				ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			return c.listen(ctx, addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule for scrapes, e.g. "*/30 * * * *"`)
	return cmd
}

// scheduler runs a scrape on every tick of spec until ctx is done.
func (c *cli) scheduler(ctx context.Context, spec string, rec metrics.Recorder) (*cron.Cron, error) {
	if _, err := coinfeed.ParseDateFilter(c.cfg.Schedule.DateFilter, time.Now()); err != nil {
		return nil, err
	}

	h, err := c.harvester(rec)
	if err != nil {
		return nil, err
	}

	cl := cronLogger{log: c.log.With(logger.String("component", "scheduler"))}
	scheduler := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err = scheduler.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		// Relative filters resolve against the day of each run.
		filter, _ := coinfeed.ParseDateFilter(c.cfg.Schedule.DateFilter, time.Now())
		if _, err := h.Run(ctx, coinfeed.RunOptions{DateFilter: filter}); err != nil {
			cl.log.Error("Scheduled scrape failed", logger.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl.log.Info("Scrapes scheduled", logger.String("schedule", spec))
	return scheduler, nil
}

// listen serves handler on addr until ctx is cancelled.
func (c *cli) listen(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info("Starting consumer API", logger.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	c.log.Info("Shutting down consumer API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(pairs(keysAndValues), logger.Error(err))...)
}

func pairs(keysAndValues []any) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
