package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-translator/internal/bus"
	"github.com/tendant/simple-translator/internal/config"
	"github.com/tendant/simple-translator/internal/jobclient"
	"github.com/tendant/simple-translator/internal/metrics"
	"github.com/tendant/simple-translator/internal/poller"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	client  *jobclient.Client
	poller  *poller.Poller
	nats    *bus.Client
	events  *bus.StatusPublisher
	metrics *http.Server
}

var (
	serviceURL string
	a          *app
)

var rootCmd = &cobra.Command{
	Use:           "jobctl",
	Short:         "Submit translation jobs and watch them until they finish.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if a != nil {
			return nil
		}
		ready, err := newApp(serviceURL)
		if err != nil {
			return err
		}
		a = ready
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "", "Job service base URL (default $JOB_SERVICE_URL)")
}

func newApp(urlOverride string) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if urlOverride != "" {
		cfg.ServiceURL = urlOverride
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	client, err := jobclient.New(cfg.ServiceURL,
		jobclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		jobclient.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build job client: %w", err)
	}

	recorder, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	p, err := poller.New(client, cfg.Poll,
		poller.WithLogger(logger),
		poller.WithMetrics(recorder),
		poller.WithRetryable(jobclient.IsRetryable),
	)
	if err != nil {
		return nil, fmt.Errorf("build poller: %w", err)
	}

	built := &app{cfg: cfg, logger: logger, client: client, poller: p}

	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		built.nats = nc
		built.events = bus.NewStatusPublisher(nc, cfg.EventSubject)
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "subject", cfg.EventSubject)
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		built.metrics = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	logger.Debug("jobctl ready", "service_url", cfg.ServiceURL, "timeout", cfg.Poll.Timeout, "max_retries", cfg.Poll.MaxRetries)
	return built, nil
}

func (a *app) close() {
	a.poller.Wait()
	a.client.Close()
	if a.nats != nil {
		a.nats.Close()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
}
