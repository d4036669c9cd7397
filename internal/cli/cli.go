// Package cli implements the maracalc command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polandar/mara-calc/internal/adapters/validation"
	service "github.com/polandar/mara-calc/internal/app"
	"github.com/polandar/mara-calc/internal/config"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Predicter is satisfied by the local service and the remote Client.
type Predicter interface {
	Predict(ctx context.Context, in model.Input) (model.Prediction, error)
	PredictBatch(ctx context.Context, inputs []model.Input) ([]model.BatchItem, error)
	DefaultMileage() float64
}

// options are the persistent flags shared by every subcommand.
type options struct {
	server   string
	timeout  time.Duration
	logLevel string
	json     bool
}

// NewRootCmd builds the maracalc command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "maracalc",
		Short:         "Predict a marathon time from recent race results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithOptions(logger.Options{Writer: cmd.ErrOrStderr()}); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "", "base URL of a running mara-calc server; predictions run locally when empty")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout when --server is set")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	v := validation.New()
	root.AddCommand(newPredictCmd(opts))
	root.AddCommand(newBatchCmd(opts, v))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect returns the predicter for opts and a release func. Local mode loads
// config the same way the server does and starts the batch workers.
func connect(ctx context.Context, opts *options) (Predicter, func(), error) {
	if opts.server != "" {
		c := NewClient(opts.server, WithTimeout(opts.timeout))
		if err := c.Sync(ctx); err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithMaxBatchSize(cfg.MaxBatchSize),
		service.WithBatchTimeout(time.Duration(cfg.BatchTimeoutMS)*time.Millisecond),
		service.WithDefaultMileage(cfg.DefaultMileage),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}
	return svc, svc.Stop, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
